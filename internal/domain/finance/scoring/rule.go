// Package scoring holds the stateless rules that decide whether a bank
// movement looks like a tuition payment worth proposing as a match.
package scoring

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is the payment-like data a rule looks at
type Candidate struct {
	Amount      decimal.Decimal
	Date        time.Time
	Reference   string
	Description string
}

// MatchScore is the output of a continuous rule, Score is in [0,100]
type MatchScore struct {
	Score  int
	Reason string
}

// BooleanRule qualifies a candidate or not. Qualifying rules contribute Weight.
type BooleanRule struct {
	Name      string
	Weight    int
	Qualifies func(c Candidate) bool
}

// MatchRule scores a candidate relative to now
type MatchRule struct {
	Name  string
	Score func(c Candidate, now time.Time) MatchScore
}

var hundred = decimal.NewFromInt(100)

func isMultipleOfHundred(d decimal.Decimal) bool {
	return d.Mod(hundred).IsZero()
}

func isIntegral(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

// RoundHundredRule qualifies amounts that are an exact multiple of 100
func RoundHundredRule() BooleanRule {
	return BooleanRule{
		Name:   "round_hundred",
		Weight: 100,
		Qualifies: func(c Candidate) bool {
			return isMultipleOfHundred(c.Amount)
		},
	}
}

// PayDayRule qualifies payments made on the 1st or 15th of the month
func PayDayRule() BooleanRule {
	return BooleanRule{
		Name:   "pay_day",
		Weight: 80,
		Qualifies: func(c Candidate) bool {
			day := c.Date.Day()
			return day == 1 || day == 15
		},
	}
}

var (
	tuitionMin = decimal.NewFromInt(1000)
	tuitionMax = decimal.NewFromInt(5000)
)

// TypicalTuitionRangeRule qualifies amounts within [1000, 5000]
func TypicalTuitionRangeRule() BooleanRule {
	return BooleanRule{
		Name:   "typical_tuition_range",
		Weight: 60,
		Qualifies: func(c Candidate) bool {
			return c.Amount.GreaterThanOrEqual(tuitionMin) && c.Amount.LessThanOrEqual(tuitionMax)
		},
	}
}

// RoundAmountMatchRule scores 50 for multiples of 100 and 30 for other whole amounts
func RoundAmountMatchRule() MatchRule {
	return MatchRule{
		Name: "round_amount",
		Score: func(c Candidate, _ time.Time) MatchScore {
			switch {
			case isMultipleOfHundred(c.Amount):
				return MatchScore{Score: 50, Reason: "amount is a multiple of 100"}
			case isIntegral(c.Amount):
				return MatchScore{Score: 30, Reason: "amount has no cents"}
			default:
				return MatchScore{}
			}
		},
	}
}

// DateProximityMatchRule scores how recent the payment is.
// The difference is measured in elapsed days, not calendar days.
func DateProximityMatchRule() MatchRule {
	return MatchRule{
		Name: "date_proximity",
		Score: func(c Candidate, now time.Time) MatchScore {
			diff := now.Sub(c.Date)
			if diff < 0 {
				diff = -diff
			}
			days := diff.Hours() / 24
			switch {
			case days <= 1:
				return MatchScore{Score: 30, Reason: "paid within a day"}
			case days <= 7:
				return MatchScore{Score: 15, Reason: "paid within a week"}
			case days <= 30:
				return MatchScore{Score: 5, Reason: "paid within a month"}
			default:
				return MatchScore{}
			}
		},
	}
}

// ReferenceMatchRule scores the shape of the bank reference
func ReferenceMatchRule() MatchRule {
	return MatchRule{
		Name: "reference",
		Score: func(c Candidate, _ time.Time) MatchScore {
			ref := c.Reference
			n := len([]rune(ref))
			switch {
			case ref == "":
				return MatchScore{}
			case n >= 8 && strings.ContainsRune(ref, '-'):
				return MatchScore{Score: 20, Reason: "structured reference"}
			case n >= 5:
				return MatchScore{Score: 10, Reason: "reference present"}
			default:
				return MatchScore{}
			}
		},
	}
}
