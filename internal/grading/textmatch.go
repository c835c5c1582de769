package grading

import (
	"strings"
	"unicode"

	"github.com/mind-engage/mindengage-courses/internal/assessment"
)

// matchShortAnswer compares a free-text answer with the reference.
//
// The default (MatchContains) accepts when either string contains the other,
// ignoring case. It is permissive: a one-letter answer matches any reference
// containing that letter. Stricter modes are opt-in per question.
func matchShortAnswer(mode assessment.MatchMode, ref, got string, maxEdit int) bool {
	switch mode {
	case assessment.MatchExact:
		return strings.TrimSpace(ref) == strings.TrimSpace(got)
	case assessment.MatchNormalized:
		return normalize(ref) == normalize(got)
	case assessment.MatchFuzzy:
		nr, ng := normalize(ref), normalize(got)
		return nr == ng || (maxEdit > 0 && levenshtein(nr, ng) <= maxEdit)
	default:
		r := strings.ToLower(strings.TrimSpace(ref))
		g := strings.ToLower(strings.TrimSpace(got))
		return strings.Contains(r, g) || strings.Contains(g, r)
	}
}

// normalize casefolds, drops punctuation and collapses whitespace.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range []rune(s) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}

// levenshtein computes edit distance (insertion, deletion, substitution cost 1).
func levenshtein(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	n, m := len(ar), len(br)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	dp := make([]int, m+1)
	for j := 0; j <= m; j++ {
		dp[j] = j
	}
	for i := 1; i <= n; i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= m; j++ {
			tmp := dp[j]
			cost := 0
			if ar[i-1] != br[j-1] {
				cost = 1
			}
			dp[j] = min(dp[j]+1, dp[j-1]+1, prev+cost)
			prev = tmp
		}
	}
	return dp[m]
}
