//go:build property

package grading

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/mind-engage/mindengage-courses/internal/assessment"
)

// genTest builds tests of single-choice questions with random points and
// penalties, paired with random option picks (-1 means skipped).
func genCase() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(8, gen.IntRange(1, 20)),
		gen.SliceOfN(8, gen.IntRange(-1, 4)),
		gen.Float64Range(0, 100),
		gen.Bool(),
		gen.IntRange(0, 100),
	)
}

func build(vals []interface{}) (assessment.Test, Submission) {
	points := vals[0].([]int)
	picks := vals[1].([]int)
	t := assessment.Test{
		ID: "p", CourseID: "c", MaxAttempts: 1,
		NegativeMarkingPct: vals[2].(float64),
		NegativeMarking:    vals[3].(bool),
		PassPercentage:     vals[4].(int),
	}
	sub := Submission{}
	for i, p := range points {
		t.Questions = append(t.Questions, assessment.Question{
			Points: p, Body: assessment.SingleChoice{Options: opts(i % 4)},
		})
		if picks[i] >= 0 {
			sub[i] = picks[i]
		}
	}
	return t, sub
}

func TestGradeProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 500
	properties := gopter.NewProperties(params)
	e := NewEngine()

	properties.Property("score stays within [0, total]", prop.ForAll(
		func(vals []interface{}) bool {
			test, sub := build(vals)
			r := e.Grade(test, "s", sub)
			return r.Score >= 0 && r.Score <= float64(r.TotalPoints)
		}, genCase()))

	properties.Property("percentage and pass agree", prop.ForAll(
		func(vals []interface{}) bool {
			test, sub := build(vals)
			r := e.Grade(test, "s", sub)
			return r.Percentage == percentage(r.Score, r.TotalPoints) &&
				r.Passed == (r.Percentage >= test.PassPercentage) &&
				r.Percentage >= 0 && r.Percentage <= 100
		}, genCase()))

	properties.Property("skipped questions never cost points", prop.ForAll(
		func(vals []interface{}) bool {
			test, sub := build(vals)
			r := e.Grade(test, "s", sub)
			for _, a := range r.Answers {
				if !a.Answered && a.PointsEarned != 0 {
					return false
				}
			}
			return true
		}, genCase()))

	properties.TestingRun(t)
}
