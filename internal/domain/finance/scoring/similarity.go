package scoring

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Similarity returns 1 - distance/maxLen of two case-folded strings, in [0,1].
// Distance uses the default costs, where a substitution counts as two edits.
// A string contained in the other counts as a full match.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 1
	}
	distance := levenshtein.DistanceForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	sim := 1 - float64(distance)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// BestTokenSimilarity compares key against every word of text and keeps the best
func BestTokenSimilarity(text, key string) float64 {
	best := Similarity(text, key)
	for _, tok := range strings.FieldsFunc(text, isSeparator) {
		if s := Similarity(tok, key); s > best {
			best = s
		}
	}
	return best
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '/' || r == ',' || r == ';' || r == '|'
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// InvoiceCandidate is an open invoice that a movement may be paying
type InvoiceCandidate struct {
	InvoiceID        uuid.UUID
	StudentID        uuid.UUID
	Number           string
	StudentReference string
	Outstanding      decimal.Decimal
	DueDate          time.Time
}

// Suggestion is a ranked invoice candidate
type Suggestion struct {
	InvoiceCandidate
	Similarity    float64
	AmountMatches bool
}

// RankInvoices orders candidates by how well the movement text names them.
// Candidates below minSimilarity are dropped unless the amount matches exactly.
// Ties fall back to exact amount, then due date.
func RankInvoices(c Candidate, candidates []InvoiceCandidate, minSimilarity float64, limit int) []Suggestion {
	text := strings.TrimSpace(c.Description + " " + c.Reference)

	out := make([]Suggestion, 0, len(candidates))
	for _, cand := range candidates {
		sim := BestTokenSimilarity(text, cand.Number)
		if cand.StudentReference != "" {
			if s := BestTokenSimilarity(text, cand.StudentReference); s > sim {
				sim = s
			}
		}
		amountMatches := cand.Outstanding.Equal(c.Amount)
		if sim < minSimilarity && !amountMatches {
			continue
		}
		out = append(out, Suggestion{InvoiceCandidate: cand, Similarity: sim, AmountMatches: amountMatches})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].AmountMatches != out[j].AmountMatches {
			return out[i].AmountMatches
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
