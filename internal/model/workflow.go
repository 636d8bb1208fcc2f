package model

//go:generate go tool schema-generate -p model -o workflow_gen.go workflow.schema.json
//go:generate gofmt -w workflow_gen.go

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"strconv"
)

// WorkflowSchema is the JSON schema every stored workflow satisfies.
//
//go:embed workflow.schema.json
var WorkflowSchema string

// WorkflowDocument is a workflow exactly as the model produced it.
// Keys and value types are kept verbatim so storage round-trips them unchanged.
type WorkflowDocument map[string]any

// ParseWorkflowDocument decodes a JSON object, keeping numbers in their literal form.
func ParseWorkflowDocument(data []byte) (WorkflowDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("workflow document is null")
	}
	if dec.More() {
		return nil, errors.New("trailing data after workflow document")
	}
	return WorkflowDocument(m), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *WorkflowDocument) UnmarshalJSON(data []byte) error {
	doc, err := ParseWorkflowDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Name returns workflow_name.
func (d WorkflowDocument) Name() string { return d.str("workflow_name") }

// Description returns the workflow description.
func (d WorkflowDocument) Description() string { return d.str("description") }

// CreatedAt returns the created_at timestamp, if any.
func (d WorkflowDocument) CreatedAt() string { return d.str("created_at") }

func (d WorkflowDocument) str(key string) string {
	s, _ := d[key].(string)
	return s
}

// Steps returns the number of entries under steps.
func (d WorkflowDocument) Steps() int {
	steps, _ := d["steps"].([]any)
	return len(steps)
}

// Typed decodes the document into its generated struct view.
func (d WorkflowDocument) Typed() (WorkflowDescription, error) {
	var out WorkflowDescription
	data, err := json.Marshal(d)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// StepRef renders a step_id or next_step value as a comparable key.
// Strings and numbers that print the same are the same step; nil is "".
func StepRef(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
