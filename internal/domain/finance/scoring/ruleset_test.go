package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRuleSet_Evaluate(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	rs := DefaultRuleSet()

	t.Run("confidence sums qualifying weights", func(t *testing.T) {
		ev := rs.Evaluate(Candidate{Amount: amount("1500"), Date: now}, now)
		assert.Equal(t, 240, ev.Confidence)
		assert.Equal(t, ClassificationProbableMatch, ev.Classification)
		assert.True(t, ev.IsProbableMatch())
	})

	t.Run("match score is the maximum, not the sum", func(t *testing.T) {
		c := Candidate{Amount: amount("1550"), Date: now, Reference: "REF-2024-01"}
		ev := rs.Evaluate(c, now)
		// 30 (whole amount), 30 (same day), 20 (reference)
		assert.Equal(t, 30, ev.MatchScore)
		assert.Len(t, ev.Reasons, 5)
	})

	t.Run("weak candidate goes to manual review", func(t *testing.T) {
		c := Candidate{Amount: amount("87.45"), Date: now.AddDate(0, -3, 2)}
		ev := rs.Evaluate(c, now)
		assert.Equal(t, 0, ev.Confidence)
		assert.Equal(t, 0, ev.MatchScore)
		assert.Equal(t, ClassificationManualReview, ev.Classification)
		assert.Empty(t, ev.Reasons)
	})

	t.Run("match score alone can reach the threshold", func(t *testing.T) {
		c := Candidate{Amount: amount("700"), Date: now.AddDate(0, -2, 3)}
		ev := rs.Evaluate(c, now)
		assert.Equal(t, 100, ev.Confidence)
		assert.Equal(t, 50, ev.MatchScore)
		assert.True(t, ev.IsProbableMatch())
	})

	t.Run("custom thresholds", func(t *testing.T) {
		strict := NewRuleSet(Thresholds{MinConfidence: 300, MinMatchScore: 60})
		ev := strict.Evaluate(Candidate{Amount: amount("1500"), Date: now}, now)
		assert.Equal(t, ClassificationManualReview, ev.Classification)
	})

	t.Run("every rule reports a result", func(t *testing.T) {
		ev := rs.Evaluate(Candidate{Amount: amount("1"), Date: now}, now)
		assert.Len(t, ev.Results, len(rs.BooleanRules)+len(rs.MatchRules))
	})
}

func TestRuleSet_EvaluateIsPure(t *testing.T) {
	now := time.Now()
	c := Candidate{Amount: amount("2000"), Date: now, Reference: "ABC-12345"}
	rs := DefaultRuleSet()
	assert.Equal(t, rs.Evaluate(c, now), rs.Evaluate(c, now))
}
