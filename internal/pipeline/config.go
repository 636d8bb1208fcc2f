package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/metalagman/flowchat/internal/gateway"
	"github.com/metalagman/flowchat/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// RequiredWorkflowFields are checked in this order; the first missing one is reported.
var RequiredWorkflowFields = []string{"workflow_name", "description", "steps", "system_instructions"}

var workflowSchemaLoader = gojsonschema.NewStringLoader(model.WorkflowSchema)

// WorkflowSaver persists a workflow and returns its storage key.
type WorkflowSaver interface {
	Save(ctx context.Context, doc model.WorkflowDocument) (string, error)
}

// ConfigPipeline turns free text into a validated, persisted workflow.
type ConfigPipeline struct {
	gateway gateway.Gateway
	saver   WorkflowSaver
	now     func() time.Time
}

// ConfigOption customizes a ConfigPipeline.
type ConfigOption func(*ConfigPipeline)

// WithConfigClock overrides the clock used for created_at.
func WithConfigClock(now func() time.Time) ConfigOption {
	return func(p *ConfigPipeline) { p.now = now }
}

// NewConfigPipeline creates a config pipeline.
func NewConfigPipeline(gw gateway.Gateway, saver WorkflowSaver, opts ...ConfigOption) *ConfigPipeline {
	p := &ConfigPipeline{gateway: gw, saver: saver, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type preparedInput struct {
	text string
}

type generatedOutput struct {
	raw string
}

type cleanedOutput struct {
	text string
}

// Generate runs prepare, generate, clean, validate and persist in order.
func (p *ConfigPipeline) Generate(ctx context.Context, userInput string) Result[GeneratedWorkflow] {
	in, f := prepareConfigInput(userInput)
	if f != nil {
		return Failed[GeneratedWorkflow](f)
	}

	out, f := p.generate(ctx, in)
	if f != nil {
		return Failed[GeneratedWorkflow](f)
	}

	cleaned := cleanedOutput{text: Clean(out.raw)}
	log.Debug().Int("raw_len", len(out.raw)).Int("cleaned_len", len(cleaned.text)).Msg("config pipeline: cleaned model output")

	doc, f := ValidateWorkflow(cleaned.text)
	if f != nil {
		return Failed[GeneratedWorkflow](f)
	}
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = p.now().Format(time.RFC3339)
	}

	return p.persist(ctx, doc)
}

func prepareConfigInput(text string) (preparedInput, *Failure) {
	text = strings.TrimSpace(text)
	if text == "" {
		return preparedInput{}, Fail(KindInvalidInput, "input text is required", nil)
	}
	return preparedInput{text: text}, nil
}

func (p *ConfigPipeline) generate(ctx context.Context, in preparedInput) (generatedOutput, *Failure) {
	resp, err := p.gateway.Generate(ctx, gateway.Request{
		Messages: []model.Message{{Role: model.RoleUser, Content: workflowPrompt(in.text)}},
	})
	if err != nil {
		return generatedOutput{}, Fail(KindUpstream, "model call failed", err)
	}
	return generatedOutput{raw: resp.Text}, nil
}

func (p *ConfigPipeline) persist(ctx context.Context, doc model.WorkflowDocument) Result[GeneratedWorkflow] {
	key, err := p.saver.Save(ctx, doc)
	if err != nil {
		return Failed[GeneratedWorkflow](Fail(KindInternal, "save workflow", err))
	}
	filename := key + ".json"
	log.Info().Str("workflow", doc.Name()).Str("key", key).Int("steps", doc.Steps()).Msg("config pipeline: workflow saved")
	return Success(GeneratedWorkflow{
		Workflow:   doc,
		StorageKey: key,
		Filename:   filename,
		Message:    fmt.Sprintf("Flow configuration generated and saved to %s", filename),
	})
}

// Clean strips a code fence the model may have wrapped its answer in.
func Clean(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "```json"):
		text = text[len("```json"):]
	case strings.HasPrefix(text, "```"):
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ValidateWorkflow parses cleaned model output into a workflow document.
// The returned document holds every key of the output with its original value.
func ValidateWorkflow(text string) (model.WorkflowDocument, *Failure) {
	doc, err := model.ParseWorkflowDocument([]byte(text))
	if err != nil {
		return nil, &Failure{
			Kind:      KindMalformedOutput,
			Message:   "model output is not a JSON object",
			RawOutput: text,
			Err:       err,
		}
	}

	for _, field := range RequiredWorkflowFields {
		if v, ok := doc[field]; !ok || v == nil {
			return nil, &Failure{
				Kind:      KindSchemaViolation,
				Message:   fmt.Sprintf("missing required field: %s", field),
				Field:     field,
				RawOutput: text,
			}
		}
	}

	result, err := gojsonschema.Validate(workflowSchemaLoader, gojsonschema.NewGoLoader(map[string]any(doc)))
	if err != nil {
		return nil, &Failure{Kind: KindInternal, Message: "validate workflow schema", Err: err}
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, schemaErr := range result.Errors() {
			errs = append(errs, schemaErr.String())
		}
		sort.Strings(errs)
		return nil, &Failure{
			Kind:      KindSchemaViolation,
			Message:   strings.Join(errs, "; "),
			Field:     result.Errors()[0].Field(),
			RawOutput: text,
		}
	}

	typed, err := doc.Typed()
	if err != nil {
		return nil, &Failure{
			Kind:      KindMalformedOutput,
			Message:   "decode workflow",
			RawOutput: text,
			Err:       err,
		}
	}

	if f := checkStepGraph(typed.Steps); f != nil {
		f.RawOutput = text
		return nil, f
	}
	return doc, nil
}

// checkStepGraph requires unique step ids and next_step references that resolve within the document.
func checkStepGraph(steps []*model.Step) *Failure {
	ids := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		id := ""
		if step != nil {
			id = model.StepRef(step.StepId)
		}
		if id == "" {
			return &Failure{Kind: KindSchemaViolation, Message: fmt.Sprintf("steps[%d] has an empty step_id", i), Field: "steps"}
		}
		if _, dup := ids[id]; dup {
			return &Failure{Kind: KindSchemaViolation, Message: fmt.Sprintf("duplicate step_id %q", id), Field: "steps"}
		}
		ids[id] = struct{}{}
	}
	for i, step := range steps {
		next := model.StepRef(step.NextStep)
		if next == "" {
			continue
		}
		if _, ok := ids[next]; !ok {
			return &Failure{
				Kind:    KindSchemaViolation,
				Message: fmt.Sprintf("steps[%d] (%s) next_step %q does not match any step_id", i, model.StepRef(step.StepId), next),
				Field:   "steps",
			}
		}
	}
	return nil
}
