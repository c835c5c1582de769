package grading

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-courses/internal/assessment"
)

// Submission maps a question index to the raw answer payload as decoded from
// JSON: a number (option index), a list of numbers (option indexes), a
// string (free text) or nil. A missing key means the question was skipped.
type Submission map[int]interface{}

// Option configures an Engine.
type Option func(*config)

type config struct {
	MaxEditDistance int // for MatchFuzzy short answers
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// Engine grades whole submissions against a test definition. It is pure and
// safe for concurrent use.
type Engine struct {
	cfg config
}

func NewEngine(opts ...Option) *Engine {
	cfg := config{MaxEditDistance: 1}
	for _, o := range opts {
		o(&cfg)
	}
	return &Engine{cfg: cfg}
}

// Grade scores sub against t and returns an unsaved result. Malformed
// payloads and indexes outside the test never fail the pass; they are
// recorded as unanswered.
func (e *Engine) Grade(t assessment.Test, studentID string, sub Submission) assessment.TestResult {
	res := assessment.TestResult{
		TestID:      t.ID,
		StudentID:   studentID,
		Answers:     make([]assessment.Answer, 0, len(t.Questions)),
		TotalPoints: t.TotalPoints(),
	}

	raw := 0.0
	for i, q := range t.Questions {
		payload, present := sub[i]
		a := e.gradeQuestion(q, payload, present)
		a.QuestionIndex = i
		a.PointsEarned = pointsFor(t, q, a)
		raw += a.PointsEarned
		res.Answers = append(res.Answers, a)
	}

	// Floor after summation: a penalty may cancel earlier credit.
	res.Score = math.Max(raw, 0)
	res.Percentage = percentage(res.Score, res.TotalPoints)
	res.Passed = res.Percentage >= t.PassPercentage
	return res
}

func (e *Engine) gradeQuestion(q assessment.Question, payload interface{}, present bool) assessment.Answer {
	var a assessment.Answer
	if !present || payload == nil {
		return a
	}
	switch b := q.Body.(type) {
	case assessment.SingleChoice:
		return gradeSingle(b.Options, payload)
	case assessment.TrueFalse:
		return gradeSingle(b.Options, payload)
	case assessment.MultipleChoice:
		return gradeMulti(b.Options, payload)
	case assessment.ShortAnswer:
		text, ok := toText(payload)
		if !ok || strings.TrimSpace(text) == "" {
			return a
		}
		a.Text, a.Answered = text, true
		a.Correct = matchShortAnswer(b.Match, b.Reference, text, e.cfg.MaxEditDistance)
	}
	return a
}

func gradeSingle(opts []assessment.Option, payload interface{}) assessment.Answer {
	var a assessment.Answer
	idx, ok := toIndex(payload)
	if !ok || idx < 0 || idx >= len(opts) {
		return a
	}
	a.Selected, a.Answered = []int{idx}, true
	correct := assessment.CorrectIndexes(opts)
	a.Correct = len(correct) > 0 && correct[0] == idx
	return a
}

func gradeMulti(opts []assessment.Option, payload interface{}) assessment.Answer {
	var a assessment.Answer
	idxs, ok := toIndexes(payload)
	if !ok {
		return a
	}
	for _, i := range idxs {
		if i < 0 || i >= len(opts) {
			return a
		}
	}
	a.Selected, a.Answered = idxs, true
	a.Correct = setEqual(toSet(idxs), toSet(assessment.CorrectIndexes(opts)))
	return a
}

func pointsFor(t assessment.Test, q assessment.Question, a assessment.Answer) float64 {
	switch {
	case a.Correct:
		return float64(q.Points)
	case a.Answered && t.NegativeMarking:
		return -(float64(q.Points) * t.NegativeMarkingPct / 100)
	default:
		return 0
	}
}

// percentage rounds half up; a test with no points scores 0.
func percentage(score float64, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(100*score/float64(total) + 0.5))
}

// helpers

func toIndex(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func toIndexes(v interface{}) ([]int, bool) {
	switch t := v.(type) {
	case []int:
		return t, true
	case []interface{}:
		out := make([]int, 0, len(t))
		for _, e := range t {
			n, ok := toIndex(e)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}

func toText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func toSet(arr []int) map[int]struct{} {
	m := make(map[int]struct{}, len(arr))
	for _, i := range arr {
		m[i] = struct{}{}
	}
	return m
}

func setEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
