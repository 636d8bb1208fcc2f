package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/flowchat/internal/gateway"
	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeStepWorkflow = `{
  "workflow_name": "Customer Greeting",
  "description": "Greets customers and logs a ticket",
  "version": "1.0",
  "steps": [
    {"step_id": "greet", "name": "Greet", "description": "Say hello", "type": "output", "parameters": {}, "next_step": "collect"},
    {"step_id": "collect", "name": "Collect", "description": "Ask for the issue", "type": "input", "parameters": {"fields": ["issue"]}, "next_step": "ticket"},
    {"step_id": "ticket", "name": "Log ticket", "description": "Create a ticket", "type": "processing", "parameters": {}, "next_step": null}
  ],
  "flow_logic": "greet -> collect -> ticket",
  "system_instructions": "Greet warmly, then log a ticket.",
  "triggers": ["customer arrives"],
  "expected_outputs": ["ticket id"]
}`

func stubGateway(text string, err error) gateway.Func {
	return func(context.Context, gateway.Request) (gateway.Response, error) {
		return gateway.Response{Text: text}, err
	}
}

type memorySaver struct {
	docs []model.WorkflowDocument
	err  error
}

func (m *memorySaver) Save(_ context.Context, doc model.WorkflowDocument) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.docs = append(m.docs, doc)
	return "doc_20240101000000", nil
}

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding whitespace", in: "  \n```json{\"a\":1}```\n ", want: `{"a":1}`},
		{name: "opener only", in: "```json {\"a\":1}", want: `{"a":1}`},
		{name: "inner backticks kept", in: "{\"a\":\"```x```\"}", want: "{\"a\":\"```x```\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Clean(tt.in)
			if got != tt.want {
				t.Fatalf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := Clean(got); again != got {
				t.Fatalf("Clean is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestValidateWorkflow_MissingRequiredField(t *testing.T) {
	t.Parallel()

	for _, field := range RequiredWorkflowFields {
		t.Run(field, func(t *testing.T) {
			t.Parallel()
			doc := map[string]string{
				"workflow_name":       `"W"`,
				"description":         `"d"`,
				"steps":               `[]`,
				"system_instructions": `"s"`,
			}
			delete(doc, field)
			parts := make([]string, 0, len(doc))
			for k, v := range doc {
				parts = append(parts, `"`+k+`":`+v)
			}
			text := "{" + strings.Join(parts, ",") + "}"

			_, f := ValidateWorkflow(text)
			require.NotNil(t, f)
			assert.Equal(t, KindSchemaViolation, f.Kind)
			assert.Equal(t, field, f.Field)
			assert.Contains(t, f.Message, field)
			assert.Equal(t, text, f.RawOutput)
		})
	}
}

func TestValidateWorkflow_ReportsFirstMissingField(t *testing.T) {
	t.Parallel()

	_, f := ValidateWorkflow(`{"steps": []}`)
	require.NotNil(t, f)
	assert.Equal(t, "workflow_name", f.Field)
}

func TestValidateWorkflow_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		kind    Kind
		message string
	}{
		{name: "not json", text: "Sure! Here is your workflow", kind: KindMalformedOutput},
		{name: "array", text: "[1,2]", kind: KindMalformedOutput},
		{name: "null field", text: `{"workflow_name":null,"description":"d","steps":[],"system_instructions":"s"}`, kind: KindSchemaViolation, message: "workflow_name"},
		{name: "steps not array", text: `{"workflow_name":"W","description":"d","steps":"one","system_instructions":"s"}`, kind: KindSchemaViolation, message: "steps"},
		{
			name:    "dangling next_step",
			text:    `{"workflow_name":"W","description":"d","system_instructions":"s","steps":[{"step_id":"a","name":"A","next_step":"zzz"}]}`,
			kind:    KindSchemaViolation,
			message: `"zzz"`,
		},
		{
			name:    "duplicate step ids",
			text:    `{"workflow_name":"W","description":"d","system_instructions":"s","steps":[{"step_id":"a","name":"A"},{"step_id":"a","name":"B"}]}`,
			kind:    KindSchemaViolation,
			message: "duplicate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, f := ValidateWorkflow(tt.text)
			require.NotNil(t, f)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.text, f.RawOutput)
			if tt.message != "" {
				assert.Contains(t, f.Message, tt.message)
			}
		})
	}
}

func TestValidateWorkflow_AcceptsNumericStepIDs(t *testing.T) {
	t.Parallel()

	doc, f := ValidateWorkflow(`{"workflow_name":"W","description":"d","system_instructions":"s",
		"steps":[{"step_id":1,"name":"A","next_step":2},{"step_id":2,"name":"B","next_step":null}]}`)
	require.Nil(t, f)
	typed, err := doc.Typed()
	require.NoError(t, err)
	require.Len(t, typed.Steps, 2)
	assert.Equal(t, "2", model.StepRef(typed.Steps[0].NextStep))
}

func TestValidateWorkflow_StepNameOptional(t *testing.T) {
	t.Parallel()

	doc, f := ValidateWorkflow(`{"workflow_name":"W","description":"d","system_instructions":"s",
		"steps":[{"step_id":"a","next_step":"b"},{"step_id":"b","description":"no name here"}]}`)
	require.Nil(t, f, "failure: %v", f)
	assert.Equal(t, 2, doc.Steps())
}

func TestValidateWorkflow_MissingStepID(t *testing.T) {
	t.Parallel()

	_, f := ValidateWorkflow(`{"workflow_name":"W","description":"d","system_instructions":"s","steps":[{"name":"A"}]}`)
	require.NotNil(t, f)
	assert.Equal(t, KindSchemaViolation, f.Kind)
	assert.Contains(t, f.Message, "step_id")
}

func TestValidateWorkflow_KeepsDocumentVerbatim(t *testing.T) {
	t.Parallel()

	text := `{"workflow_name":"W","description":"d","system_instructions":"s","version":2,
		"metadata":{"owner":"ops","tags":["a"]},
		"steps":[{"step_id":1,"next_step":2},{"step_id":2}]}`
	doc, f := ValidateWorkflow(text)
	require.Nil(t, f, "failure: %v", f)

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, text, string(out))
	assert.Contains(t, string(out), `"version":2`)
	assert.Contains(t, string(out), `"step_id":1`)
	assert.NotContains(t, string(out), `"type"`)
	assert.NotContains(t, string(out), `"parameters"`)
}

func TestConfigPipeline_EmptyInput(t *testing.T) {
	t.Parallel()

	called := false
	gw := gateway.Func(func(context.Context, gateway.Request) (gateway.Response, error) {
		called = true
		return gateway.Response{}, nil
	})
	res := NewConfigPipeline(gw, &memorySaver{}).Generate(context.Background(), "   ")
	require.False(t, res.OK())
	assert.Equal(t, KindInvalidInput, res.Failure.Kind)
	assert.False(t, called)
}

func TestConfigPipeline_UpstreamFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota exceeded")
	res := NewConfigPipeline(stubGateway("", boom), &memorySaver{}).Generate(context.Background(), "greeter")
	require.False(t, res.OK())
	assert.Equal(t, KindUpstream, res.Failure.Kind)
	assert.ErrorIs(t, res.Failure, boom)
}

func TestConfigPipeline_MalformedKeepsRawOutput(t *testing.T) {
	t.Parallel()

	saver := &memorySaver{}
	res := NewConfigPipeline(stubGateway("```json\nnot json\n```", nil), saver).Generate(context.Background(), "greeter")
	require.False(t, res.OK())
	assert.Equal(t, KindMalformedOutput, res.Failure.Kind)
	assert.Equal(t, "not json", res.Failure.RawOutput)
	assert.Empty(t, saver.docs)
}

func TestConfigPipeline_PromptEmbedsInputAndTemplate(t *testing.T) {
	t.Parallel()

	var got gateway.Request
	gw := gateway.Func(func(_ context.Context, req gateway.Request) (gateway.Response, error) {
		got = req
		return gateway.Response{Text: threeStepWorkflow}, nil
	})
	res := NewConfigPipeline(gw, &memorySaver{}).Generate(context.Background(), "  workflow that greets customers  ")
	require.True(t, res.OK())

	require.Len(t, got.Messages, 1)
	assert.Equal(t, model.RoleUser, got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "User Input: workflow that greets customers\n")
	assert.Contains(t, got.Messages[0].Content, `"system_instructions"`)
	assert.Empty(t, got.Tools)
}

func TestConfigPipeline_InjectsCreatedAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	saver := &memorySaver{}
	res := NewConfigPipeline(stubGateway(threeStepWorkflow, nil), saver, WithConfigClock(func() time.Time { return now })).
		Generate(context.Background(), "greeter")
	require.True(t, res.OK())
	assert.Equal(t, "2024-02-03T04:05:06Z", res.Payload.Workflow.CreatedAt())
	assert.Equal(t, "doc_20240101000000.json", res.Payload.Filename)
	assert.Contains(t, res.Payload.Message, "doc_20240101000000.json")
	require.Len(t, saver.docs, 1)

	withCreated := strings.Replace(threeStepWorkflow, `"version": "1.0",`, `"version": "1.0", "created_at": "2023-12-31T00:00:00Z",`, 1)
	res = NewConfigPipeline(stubGateway(withCreated, nil), saver).Generate(context.Background(), "greeter")
	require.True(t, res.OK())
	assert.Equal(t, "2023-12-31T00:00:00Z", res.Payload.Workflow.CreatedAt())
}

func TestConfigPipeline_SaveFailure(t *testing.T) {
	t.Parallel()

	res := NewConfigPipeline(stubGateway(threeStepWorkflow, nil), &memorySaver{err: errors.New("disk full")}).
		Generate(context.Background(), "greeter")
	require.False(t, res.OK())
	assert.Equal(t, KindInternal, res.Failure.Kind)
}

func TestConfigPipeline_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	flows := store.NewWorkflowStore(filepath.Join(t.TempDir(), "flows"))
	p := NewConfigPipeline(stubGateway("```json\n"+threeStepWorkflow+"\n```", nil), flows)

	res := p.Generate(ctx, "workflow that greets customers and logs a ticket")
	require.True(t, res.OK(), "failure: %v", res.Failure)
	assert.Regexp(t, regexp.MustCompile(`^customer_greeting_\d{14}\.json$`), res.Payload.Filename)

	stored, err := flows.Load(ctx, res.Payload.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Steps())
	assert.Equal(t, "Customer Greeting", stored.Name())
	assert.NotEmpty(t, stored.CreatedAt())
}

func TestConfigPipeline_StoredDocumentMatchesModelOutput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "flows")
	flows := store.NewWorkflowStore(dir)
	output := `{"workflow_name":"Numbered","description":"d","system_instructions":"s","version":1.0,
		"created_at":"2024-05-06T07:08:09Z","metadata":{"source":"chat"},
		"steps":[{"step_id":1,"name":"Start","next_step":2},{"step_id":2,"name":"End"}]}`

	res := NewConfigPipeline(stubGateway(output, nil), flows).Generate(ctx, "numbered")
	require.True(t, res.OK(), "failure: %v", res.Failure)

	data, err := os.ReadFile(filepath.Join(dir, res.Payload.Filename))
	require.NoError(t, err)
	assert.JSONEq(t, output, string(data))
	assert.Contains(t, string(data), `"version": 1.0`)
	assert.NotContains(t, string(data), `"type"`)

	loaded, err := flows.Load(ctx, res.Payload.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, res.Payload.Workflow, loaded)
}
