package api

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// reportSchema is the shape GET /submissions/report/exam/{id} must have
// before it is handed to the aggregator. Grading details stay open since
// their fields depend on the grading method.
var reportSchema = map[string]any{
	"type":     "object",
	"required": []any{"result_id", "exam_id", "total_points", "percentage_score", "passed", "submissions"},
	"properties": map[string]any{
		"result_id":        map[string]any{"type": "integer"},
		"exam_id":          map[string]any{"type": "integer"},
		"student_id":       map[string]any{"type": "integer"},
		"total_points":     map[string]any{"type": "number"},
		"percentage_score": map[string]any{"type": "number"},
		"passed":           map[string]any{"type": "boolean"},
		"question_type_summary": map[string]any{
			"type": []any{"object", "null"},
			"additionalProperties": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"count":         map[string]any{"type": "integer"},
					"points_earned": map[string]any{"type": "number"},
					"max_points":    map[string]any{"type": "number"},
				},
			},
		},
		"submissions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"question_id", "points_earned", "max_points"},
				"properties": map[string]any{
					"question_id":     map[string]any{"type": "integer"},
					"question_type":   map[string]any{"type": []any{"string", "null"}},
					"student_answer":  map[string]any{"type": []any{"string", "null"}},
					"correct_answer":  map[string]any{"type": []any{"string", "null"}},
					"points_earned":   map[string]any{"type": "number"},
					"max_points":      map[string]any{"type": "number"},
					"percentage":      map[string]any{"type": []any{"number", "null"}},
					"is_correct":      map[string]any{"type": []any{"boolean", "null"}},
					"grading_details": map[string]any{"type": []any{"object", "null"}},
				},
			},
		},
	},
}

var (
	compiledOnce   sync.Once
	compiledReport *jsonschema.Schema
	compileErr     error
)

// validateReport validates raw JSON against reportSchema. Returns
// *ErrInvalidPayload on failure.
func validateReport(path string, raw json.RawMessage) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ErrInvalidPayload{Path: path, Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := reportValidator()
	if err != nil {
		return &ErrInvalidPayload{Path: path, Content: raw, Err: fmt.Errorf("compile report schema: %w", err)}
	}

	if err := sch.Validate(parsed); err != nil {
		return &ErrInvalidPayload{Path: path, Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

func reportValidator() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		// The jsonschema library expects a parsed JSON value (any), so
		// round-trip the Go literal through encoding/json.
		defBytes, err := json.Marshal(reportSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		const url = "schema://exam-report.json"
		if err := c.AddResource(url, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledReport, compileErr = c.Compile(url)
	})
	return compiledReport, compileErr
}
