package scoring

import (
	"fmt"
	"time"
)

// Classification is the aggregator's verdict on a movement
type Classification string

const (
	ClassificationProbableMatch Classification = "PROBABLE_MATCH"
	ClassificationManualReview  Classification = "MANUAL_REVIEW"
)

// Thresholds decide when a movement is a probable match
type Thresholds struct {
	MinConfidence int
	MinMatchScore int
}

// DefaultThresholds returns the stock thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{MinConfidence: 140, MinMatchScore: 50}
}

// RuleResult is the outcome of a single rule
type RuleResult struct {
	Rule      string
	Qualified bool
	Weight    int
	Score     int
	Reason    string
}

// Evaluation is the combined result of a rule set
type Evaluation struct {
	Confidence     int
	MatchScore     int
	Classification Classification
	Reasons        []string
	Results        []RuleResult
}

// IsProbableMatch returns true when the thresholds were met
func (e Evaluation) IsProbableMatch() bool {
	return e.Classification == ClassificationProbableMatch
}

// RuleSet is an ordered list of rules plus the thresholds that classify them.
// Confidence sums the weights of qualifying boolean rules. MatchScore is the
// maximum score of the match rules.
type RuleSet struct {
	BooleanRules []BooleanRule
	MatchRules   []MatchRule
	Thresholds   Thresholds
}

// DefaultRuleSet returns the built-in rules with default thresholds
func DefaultRuleSet() RuleSet {
	return NewRuleSet(DefaultThresholds())
}

// NewRuleSet returns the built-in rules with the given thresholds
func NewRuleSet(th Thresholds) RuleSet {
	return RuleSet{
		BooleanRules: []BooleanRule{
			RoundHundredRule(),
			PayDayRule(),
			TypicalTuitionRangeRule(),
		},
		MatchRules: []MatchRule{
			RoundAmountMatchRule(),
			DateProximityMatchRule(),
			ReferenceMatchRule(),
		},
		Thresholds: th,
	}
}

// Evaluate runs every rule against the candidate
func (rs RuleSet) Evaluate(c Candidate, now time.Time) Evaluation {
	ev := Evaluation{Classification: ClassificationManualReview}

	for _, rule := range rs.BooleanRules {
		res := RuleResult{Rule: rule.Name, Weight: rule.Weight}
		if rule.Qualifies(c) {
			res.Qualified = true
			ev.Confidence += rule.Weight
			ev.Reasons = append(ev.Reasons, fmt.Sprintf("%s (+%d)", rule.Name, rule.Weight))
		}
		ev.Results = append(ev.Results, res)
	}

	for _, rule := range rs.MatchRules {
		ms := rule.Score(c, now)
		ev.Results = append(ev.Results, RuleResult{Rule: rule.Name, Score: ms.Score, Reason: ms.Reason})
		if ms.Score > 0 {
			ev.Reasons = append(ev.Reasons, fmt.Sprintf("%s: %s (%d)", rule.Name, ms.Reason, ms.Score))
		}
		if ms.Score > ev.MatchScore {
			ev.MatchScore = ms.Score
		}
	}

	if ev.Confidence >= rs.Thresholds.MinConfidence || ev.MatchScore >= rs.Thresholds.MinMatchScore {
		ev.Classification = ClassificationProbableMatch
	}
	return ev
}
