package aggregate

import (
	"errors"
	"math"
)

// Thresholds is the Index/Candidate promotion rule: an absolute floor of
// suitable votes and a strict ratio bound. Exactly hitting the ratio does
// not promote.
type Thresholds struct {
	MinSuitableVotes int
	SuitableRatio    float64
}

var DefaultThresholds = Thresholds{MinSuitableVotes: 10, SuitableRatio: 0.5}

var (
	ErrEmptyBallot         = errors.New("ballot expresses no opinion")
	ErrSuitabilityRequired = errors.New("candidate questions require an explicit suitability opinion")
	ErrAchievementRequired = errors.New("index questions require an achievement opinion")
)

// Ballot is a canonicalized vote intent. Nil means no opinion on that axis.
type Ballot struct {
	IsSuitable       *bool
	IsAchieved       *bool
	UnsuitableReason *string
}

// Normalize turns a raw intent into the record shape the aggregator counts.
//
// Index questions take achievement votes; suitability defaults to true there
// unless the voter overrides it to false. Candidate questions need an
// explicit suitability opinion; a suitable vote may defer its achievement
// opinion, an unsuitable vote drops any achievement opinion and may carry a
// reason tag.
func Normalize(indexed bool, in Ballot) (Ballot, error) {
	if in.IsSuitable == nil && in.IsAchieved == nil {
		return Ballot{}, ErrEmptyBallot
	}
	if indexed {
		suitable := true
		if in.IsSuitable != nil {
			suitable = *in.IsSuitable
		}
		if !suitable {
			return Ballot{IsSuitable: boolPtr(false), UnsuitableReason: in.UnsuitableReason}, nil
		}
		if in.IsAchieved == nil {
			return Ballot{}, ErrAchievementRequired
		}
		return Ballot{IsSuitable: boolPtr(true), IsAchieved: in.IsAchieved}, nil
	}
	if in.IsSuitable == nil {
		return Ballot{}, ErrSuitabilityRequired
	}
	if !*in.IsSuitable {
		return Ballot{IsSuitable: boolPtr(false), UnsuitableReason: in.UnsuitableReason}, nil
	}
	return Ballot{IsSuitable: boolPtr(true), IsAchieved: in.IsAchieved}, nil
}

// Counters are the per-question vote tallies. Each axis is a field-wise sum
// over the question's vote rows, so replay order never matters.
type Counters struct {
	Suitable    int
	Unsuitable  int
	Achieved    int
	NotAchieved int
}

func (c Counters) VoteCount() int { return c.Suitable + c.Unsuitable }

// Apply adds one vote's contribution.
func (c Counters) Apply(isSuitable, isAchieved *bool) Counters {
	return c.shift(isSuitable, isAchieved, 1)
}

// Reverse subtracts a superseded vote's contribution. Counters clamp at zero
// so a stray reversal can never drive a tally negative.
func (c Counters) Reverse(isSuitable, isAchieved *bool) Counters {
	return c.shift(isSuitable, isAchieved, -1)
}

// Step applies a revote: the previous row's contribution comes out before
// the new row's goes in. prev may be nil for a first vote.
func Step(c Counters, prevSuitable, prevAchieved, nextSuitable, nextAchieved *bool) Counters {
	c = c.Reverse(prevSuitable, prevAchieved)
	return c.Apply(nextSuitable, nextAchieved)
}

func (c Counters) shift(isSuitable, isAchieved *bool, sign int) Counters {
	if isSuitable != nil {
		if *isSuitable {
			c.Suitable = clamp(c.Suitable + sign)
		} else {
			c.Unsuitable = clamp(c.Unsuitable + sign)
		}
	}
	if isAchieved != nil {
		if *isAchieved {
			c.Achieved = clamp(c.Achieved + sign)
		} else {
			c.NotAchieved = clamp(c.NotAchieved + sign)
		}
	}
	return c
}

// Indexed reports whether the tallies cross the promotion rule. The rule is
// re-evaluated from scratch on every vote, so demotion falls out for free.
func (t Thresholds) Indexed(c Counters) bool {
	total := c.Suitable + c.Unsuitable
	if total == 0 {
		return false
	}
	if c.Suitable < t.MinSuitableVotes {
		return false
	}
	return float64(c.Suitable)/float64(total) > t.SuitableRatio
}

// AchievedPercent is the consensus rate over voters who expressed an
// achievement opinion, rounded to the nearest integer percent.
func AchievedPercent(c Counters) int {
	total := c.Achieved + c.NotAchieved
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(c.Achieved) / float64(total) * 100))
}

// AchievedFlag derives the is_achieved classification: a strict majority of
// achievement opinions. With no opinions at all the prior value stands, so
// zero signal never toggles the flag.
func AchievedFlag(c Counters, prev bool) bool {
	if c.Achieved+c.NotAchieved == 0 {
		return prev
	}
	return c.Achieved > c.NotAchieved
}

// QuestionTally is the slice of a question the global roll-up needs.
type QuestionTally struct {
	Category    string
	Indexed     bool
	Achieved    int
	NotAchieved int
}

// Summary is the global roll-up over all approved questions. Rates are
// volume-weighted at the vote level: summing counts before dividing keeps a
// small category from dragging the overall rate around.
type Summary struct {
	OverallRate            float64
	LinguisticRate         float64
	MultimodalRate         float64
	LinguisticCount        int
	MultimodalCount        int
	IndexQuestionCount     int
	CandidateQuestionCount int
}

func Rollup(tallies []QuestionTally, linguisticCategory, multimodalCategory string) Summary {
	var s Summary
	var overallNum, overallDen int
	var lingNum, lingDen int
	var multiNum, multiDen int
	for _, q := range tallies {
		switch q.Category {
		case linguisticCategory:
			s.LinguisticCount++
		case multimodalCategory:
			s.MultimodalCount++
		}
		if !q.Indexed {
			s.CandidateQuestionCount++
			continue
		}
		s.IndexQuestionCount++
		den := q.Achieved + q.NotAchieved
		overallNum += q.Achieved
		overallDen += den
		switch q.Category {
		case linguisticCategory:
			lingNum += q.Achieved
			lingDen += den
		case multimodalCategory:
			multiNum += q.Achieved
			multiDen += den
		}
	}
	s.OverallRate = ratePercent(overallNum, overallDen)
	s.LinguisticRate = ratePercent(lingNum, lingDen)
	s.MultimodalRate = ratePercent(multiNum, multiDen)
	return s
}

func ratePercent(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(float64(num)/float64(den)*1000) / 10
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func boolPtr(v bool) *bool { return &v }
