package assessment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionJSONKeepsVariant(t *testing.T) {
	in := biologyTest()
	raw, err := json.Marshal(in.Questions)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"short_answer"`)
	assert.Contains(t, string(raw), `"correct_answer":"mitochondria"`)

	var out []Question
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 4)
	assert.IsType(t, SingleChoice{}, out[0].Body)
	assert.Equal(t, ShortAnswer{Reference: "mitochondria"}, out[1].Body)
	assert.Equal(t, []int{0, 2}, CorrectIndexes(out[2].Options()))
	assert.Nil(t, out[1].Options())
}

func TestQuestionUnmarshalRejectsUnknownType(t *testing.T) {
	var q Question
	err := json.Unmarshal([]byte(`{"text":"?","type":"essay","points":1}`), &q)
	assert.ErrorContains(t, err, "essay")
}

func TestTestValidate(t *testing.T) {
	assert.NoError(t, biologyTest().Validate())
	assert.Equal(t, 15, biologyTest().TotalPoints())

	cases := map[string]func(*Test){
		"no attempts":      func(t *Test) { t.MaxAttempts = 0 },
		"pass over 100":    func(t *Test) { t.PassPercentage = 101 },
		"penalty over 100": func(t *Test) { t.NegativeMarkingPct = 150 },
		"zero points":      func(t *Test) { t.Questions[0].Points = 0 },
		"one option": func(t *Test) {
			t.Questions[0].Body = SingleChoice{Options: []Option{{Text: "A", Correct: true}}}
		},
		"no correct option": func(t *Test) {
			t.Questions[0].Body = SingleChoice{Options: []Option{{Text: "A"}, {Text: "B"}}}
		},
		"blank reference": func(t *Test) { t.Questions[1].Body = ShortAnswer{Reference: "  "} },
		"bad match mode":  func(t *Test) { t.Questions[1].Body = ShortAnswer{Reference: "x", Match: "regex"} },
		"no body":         func(t *Test) { t.Questions[1].Body = nil },
	}
	for name, mutate := range cases {
		tt := biologyTest()
		mutate(&tt)
		assert.Error(t, tt.Validate(), name)
	}
}
