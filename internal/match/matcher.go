// Package match implements normalized fuzzy matching of company
// mentions against curated reference lists.
package match

import (
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum similarity score for a valid match.
const DefaultThreshold = 90.0

// legalSuffixes are trailing legal-entity tokens stripped before
// comparison, so "Apple Inc." and "Apple" normalize identically.
var legalSuffixes = map[string]bool{
	"ab": true, "ag": true, "aps": true, "as": true, "bv": true,
	"co": true, "company": true, "corp": true, "corporation": true,
	"gmbh": true, "holding": true, "holdings": true, "inc": true,
	"incorporated": true, "kft": true, "kg": true, "kk": true,
	"limited": true, "llc": true, "llp": true, "lp": true, "ltd": true,
	"nv": true, "oy": true, "oyj": true, "plc": true, "pte": true,
	"pty": true, "pvt": true, "sa": true, "sarl": true, "sas": true,
	"spa": true, "srl": true, "sro": true, "zrt": true,
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize cleans a company name for scoring: legal suffixes stripped,
// lowercased, punctuation removed, whitespace collapsed, accents folded
// to their plain equivalents. A name made only of legal boilerplate
// normalizes to the empty string.
func Normalize(name string) string {
	s := stripLegalSuffixes(name)
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")

	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	return s
}

func stripLegalSuffixes(name string) string {
	fields := strings.Fields(name)
	for len(fields) > 0 {
		last := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,;:()&"))
		if last != "" && !legalSuffixes[last] {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// Score is the edit-distance similarity of two normalized names on a
// 0 to 100 scale.
func Score(a, b string) float64 {
	return levenshtein.Similarity(a, b, nil) * 100
}

// Result is the outcome of matching one input mention.
type Result struct {
	Input string
	Match string // original reference text; empty when below threshold
	Score float64
	OK    bool
}

// Matcher matches mentions against a fixed reference list. References
// are normalized once at construction.
type Matcher struct {
	threshold float64
	originals []string
	cleaned   []string
}

func New(references []string, threshold float64) *Matcher {
	m := &Matcher{
		threshold: threshold,
		originals: references,
		cleaned:   make([]string, len(references)),
	}
	for i, ref := range references {
		m.cleaned[i] = Normalize(ref)
	}
	return m
}

// MatchSingle returns the best-scoring reference for one mention. An
// input that normalizes to the empty string never matches.
func (m *Matcher) MatchSingle(input string) Result {
	clean := Normalize(input)
	if clean == "" {
		return Result{Input: input}
	}

	bestIdx, bestScore := -1, -1.0
	for i, ref := range m.cleaned {
		if ref == "" {
			continue
		}
		if s := Score(clean, ref); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	if bestIdx < 0 {
		return Result{Input: input}
	}
	if bestScore < m.threshold {
		return Result{Input: input, Score: bestScore}
	}
	return Result{Input: input, Match: m.originals[bestIdx], Score: bestScore, OK: true}
}

// MatchBatch matches each input in order.
func (m *Matcher) MatchBatch(inputs []string) []Result {
	out := make([]Result, len(inputs))
	for i, in := range inputs {
		out[i] = m.MatchSingle(in)
	}
	return out
}
