package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mind-engage/mindengage-courses/internal/grading"
)

const maxSubmissionBytes = 1 << 20

// submissionSchema accepts either the bare {"<index>": payload} mapping or
// the same mapping wrapped as {"answers": {...}}. Keys must be integers but
// may lie outside the test; payload values are left open. The grader treats
// anything it cannot place or interpret as unanswered.
const submissionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "answers": {
      "type": "object",
      "maxProperties": 1000,
      "propertyNames": { "pattern": "^-?[0-9]+$" },
      "additionalProperties": { "maxLength": 10000, "maxItems": 256 }
    }
  },
  "type": "object",
  "anyOf": [
    {
      "required": ["answers"],
      "properties": { "answers": { "$ref": "#/$defs/answers" } },
      "additionalProperties": false
    },
    { "$ref": "#/$defs/answers" }
  ]
}`

var compiledSubmissionSchema = mustCompile("mem://submission.json", submissionSchema)

func mustCompile(url, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(err)
	}
	return c.MustCompile(url)
}

var errBadSubmission = errors.New("invalid submission")

// submissionHint is the client-facing detail for a rejected body; the
// validator's own message stays in the log.
const submissionHint = `answers must be a JSON object keyed by question index, optionally wrapped as {"answers": {...}}, at most 1 MiB`

// decodeSubmission reads and validates a submit body. Numbers are kept as
// json.Number so option indexes survive without float conversion.
func decodeSubmission(body io.Reader) (grading.Submission, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxSubmissionBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadSubmission, err)
	}
	if len(raw) > maxSubmissionBytes {
		return nil, fmt.Errorf("%w: body too large", errBadSubmission)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadSubmission, err)
	}
	if err := compiledSubmissionSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadSubmission, err)
	}

	m := doc.(map[string]interface{})
	if wrapped, ok := m["answers"].(map[string]interface{}); ok {
		m = wrapped
	}
	sub := make(grading.Submission, len(m))
	for k, v := range m {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			continue // out of int range or negative: no such question
		}
		sub[idx] = v
	}
	return sub, nil
}
