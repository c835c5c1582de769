package assessment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Option struct {
	Text    string `json:"text"`
	Image   string `json:"image,omitempty"`
	Correct bool   `json:"is_correct"`
}

// Body is the type-specific part of a Question. Exactly one of
// SingleChoice, MultipleChoice, TrueFalse or ShortAnswer.
type Body interface {
	Kind() QuestionType
	validate() error
}

type QuestionType string

const (
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
)

// MatchMode selects how a short answer is compared to its reference.
type MatchMode string

const (
	MatchContains   MatchMode = "contains" // either side contains the other, case-insensitive
	MatchNormalized MatchMode = "normalized"
	MatchExact      MatchMode = "exact"
	MatchFuzzy      MatchMode = "fuzzy"
)

type SingleChoice struct{ Options []Option }
type MultipleChoice struct{ Options []Option }
type TrueFalse struct{ Options []Option }

type ShortAnswer struct {
	Reference string
	Match     MatchMode // empty means MatchContains
}

func (SingleChoice) Kind() QuestionType   { return TypeSingleChoice }
func (MultipleChoice) Kind() QuestionType { return TypeMultipleChoice }
func (TrueFalse) Kind() QuestionType      { return TypeTrueFalse }
func (ShortAnswer) Kind() QuestionType    { return TypeShortAnswer }

func (b SingleChoice) validate() error   { return validateOptions(b.Options) }
func (b MultipleChoice) validate() error { return validateOptions(b.Options) }
func (b TrueFalse) validate() error      { return validateOptions(b.Options) }

func (b ShortAnswer) validate() error {
	if strings.TrimSpace(b.Reference) == "" {
		return errors.New("short answer needs a reference answer")
	}
	switch b.Match {
	case "", MatchContains, MatchNormalized, MatchExact, MatchFuzzy:
		return nil
	}
	return fmt.Errorf("unknown match mode %q", b.Match)
}

func validateOptions(opts []Option) error {
	if len(opts) < 2 {
		return errors.New("choice question needs at least two options")
	}
	for _, o := range opts {
		if o.Correct {
			return nil
		}
	}
	return errors.New("choice question needs a correct option")
}

// CorrectIndexes lists the indexes of options flagged correct, in order.
func CorrectIndexes(opts []Option) []int {
	out := make([]int, 0, 1)
	for i, o := range opts {
		if o.Correct {
			out = append(out, i)
		}
	}
	return out
}

type Question struct {
	Text        string `json:"text"`
	Image       string `json:"image,omitempty"`
	Points      int    `json:"points"`
	Explanation string `json:"explanation,omitempty"`
	Body        Body   `json:"-"`
}

// Options returns the choice options of the question, nil for short answers.
func (q Question) Options() []Option {
	switch b := q.Body.(type) {
	case SingleChoice:
		return b.Options
	case MultipleChoice:
		return b.Options
	case TrueFalse:
		return b.Options
	}
	return nil
}

func (q Question) Validate() error {
	if q.Points <= 0 {
		return errors.New("points must be positive")
	}
	if q.Body == nil {
		return errors.New("question has no type")
	}
	return q.Body.validate()
}

// questionJSON is the stored/wire shape: a type tag plus the fields any
// variant may need.
type questionJSON struct {
	Text        string       `json:"text"`
	Image       string       `json:"image,omitempty"`
	Type        QuestionType `json:"type"`
	Options     []Option     `json:"options,omitempty"`
	Answer      string       `json:"correct_answer,omitempty"`
	Match       MatchMode    `json:"match,omitempty"`
	Points      int          `json:"points"`
	Explanation string       `json:"explanation,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	out := questionJSON{
		Text:        q.Text,
		Image:       q.Image,
		Points:      q.Points,
		Explanation: q.Explanation,
	}
	switch b := q.Body.(type) {
	case SingleChoice:
		out.Type, out.Options = TypeSingleChoice, b.Options
	case MultipleChoice:
		out.Type, out.Options = TypeMultipleChoice, b.Options
	case TrueFalse:
		out.Type, out.Options = TypeTrueFalse, b.Options
	case ShortAnswer:
		out.Type, out.Answer, out.Match = TypeShortAnswer, b.Reference, b.Match
	default:
		return nil, fmt.Errorf("question %q has no type", q.Text)
	}
	return json.Marshal(out)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var in questionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	q.Text, q.Image, q.Points, q.Explanation = in.Text, in.Image, in.Points, in.Explanation
	switch in.Type {
	case TypeSingleChoice:
		q.Body = SingleChoice{Options: in.Options}
	case TypeMultipleChoice:
		q.Body = MultipleChoice{Options: in.Options}
	case TypeTrueFalse:
		q.Body = TrueFalse{Options: in.Options}
	case TypeShortAnswer:
		q.Body = ShortAnswer{Reference: in.Answer, Match: in.Match}
	default:
		return fmt.Errorf("unknown question type %q", in.Type)
	}
	return nil
}

type Test struct {
	ID                 string     `json:"id"`
	CourseID           string     `json:"course_id"`
	ModuleIndex        int        `json:"module_index"`
	Title              string     `json:"title"`
	DurationMin        int        `json:"duration_min"`
	MaxAttempts        int        `json:"max_attempts"`
	PassPercentage     int        `json:"pass_percentage"`
	NegativeMarking    bool       `json:"negative_marking"`
	NegativeMarkingPct float64    `json:"negative_marking_pct"`
	FreePreview        bool       `json:"free_preview"`
	Published          bool       `json:"published"`
	Questions          []Question `json:"questions"`
}

func (t Test) TotalPoints() int {
	total := 0
	for _, q := range t.Questions {
		total += q.Points
	}
	return total
}

func (t Test) Validate() error {
	if t.ID == "" || t.CourseID == "" {
		return errors.New("test needs an id and a course")
	}
	if t.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if t.PassPercentage < 0 || t.PassPercentage > 100 {
		return errors.New("pass percentage must be within 0..100")
	}
	if t.NegativeMarkingPct < 0 || t.NegativeMarkingPct > 100 {
		return errors.New("negative marking percentage must be within 0..100")
	}
	for i, q := range t.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// Answer is the graded form of one question's response.
type Answer struct {
	QuestionIndex int     `json:"question_index"`
	Selected      []int   `json:"selected,omitempty"`
	Text          string  `json:"text,omitempty"`
	Answered      bool    `json:"answered"`
	Correct       bool    `json:"is_correct"`
	PointsEarned  float64 `json:"points_earned"`
}

// TestResult is immutable once appended to a Store.
type TestResult struct {
	ID          string    `json:"id" db:"id"`
	TestID      string    `json:"test_id" db:"test_id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	AttemptNo   int       `json:"attempt_no" db:"attempt_no"`
	Answers     []Answer  `json:"answers" db:"-"`
	Score       float64   `json:"score" db:"score"`
	TotalPoints int       `json:"total_points" db:"total_points"`
	Percentage  int       `json:"percentage" db:"percentage"`
	Passed      bool      `json:"passed" db:"passed"`
	CompletedAt time.Time `json:"completed_at" db:"-"`
}
