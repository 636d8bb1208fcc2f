// Package intent decides whether a chat turn carries enough data to invoke a tool.
package intent

import (
	"strings"
	"unicode"

	"github.com/metalagman/flowchat/internal/model"
	"github.com/metalagman/flowchat/internal/tools"
)

// Extracted field names for the bank account rule.
const (
	FieldName    = "name"
	FieldSurname = "surname"
	FieldID      = "id"
)

const minIDLength = 6

// accountPhrases signal account-creation intent in the message or the model reply.
var accountPhrases = []string{
	"create account",
	"open account",
	"new account",
	"bank account",
	"account creation",
	"make account",
}

// Turn is one chat exchange as seen by a rule.
type Turn struct {
	Message string
	Reply   string
	Persona string
}

// Rule extracts a tool's arguments from a turn.
type Rule interface {
	Extract(turn Turn) model.ExtractionResult
	// Arguments maps extracted fields to the tool's parameter names.
	Arguments(params map[string]string) map[string]string
}

// Extractor holds one rule per tool name.
type Extractor struct {
	rules map[string]Rule
}

// NewExtractor creates an extractor with the built-in rules.
func NewExtractor() *Extractor {
	return &Extractor{rules: map[string]Rule{
		tools.BankAccountName: BankAccountRule{},
	}}
}

// Register sets the rule for a tool.
func (e *Extractor) Register(toolName string, rule Rule) {
	e.rules[toolName] = rule
}

// ShouldInvoke evaluates the rule for toolName. Tools without a rule are never satisfied.
func (e *Extractor) ShouldInvoke(toolName string, turn Turn) model.ExtractionResult {
	rule, ok := e.rules[toolName]
	if !ok {
		return model.ExtractionResult{}
	}
	return rule.Extract(turn)
}

// Arguments converts a satisfied result into tool arguments.
func (e *Extractor) Arguments(toolName string, res model.ExtractionResult) map[string]string {
	rule, ok := e.rules[toolName]
	if !ok {
		return nil
	}
	return rule.Arguments(res.Parameters)
}

// BankAccountRule recognizes "FirstName LastName IDNumber" style messages.
//
// The keyword gate only marks intent. Only the pattern gate, evaluated on the
// user message alone, satisfies the tool, so an agent can collect the fields
// over several turns.
type BankAccountRule struct{}

// Extract implements Rule.
func (BankAccountRule) Extract(turn Turn) model.ExtractionResult {
	res := model.ExtractionResult{Intent: HasAccountIntent(turn.Message + " " + turn.Reply)}

	var alpha []string
	var id string
	tokens := strings.Fields(turn.Message)
	for _, tok := range tokens {
		switch {
		case isAlpha(tok):
			alpha = append(alpha, tok)
		case id == "" && isNumeric(tok) && len(tok) >= minIDLength:
			id = tok
		}
	}

	if len(tokens) >= 3 && len(alpha) >= 2 && id != "" {
		res.Satisfied = true
		res.Parameters = map[string]string{
			FieldName:    alpha[0],
			FieldSurname: alpha[1],
			FieldID:      id,
		}
		return res
	}

	if len(alpha) < 1 {
		res.MissingFields = append(res.MissingFields, FieldName)
	}
	if len(alpha) < 2 {
		res.MissingFields = append(res.MissingFields, FieldSurname)
	}
	if id == "" {
		res.MissingFields = append(res.MissingFields, FieldID)
	}
	return res
}

// Arguments implements Rule.
func (BankAccountRule) Arguments(params map[string]string) map[string]string {
	return map[string]string{
		tools.ParamFirstName:  params[FieldName],
		tools.ParamSecondName: params[FieldSurname],
		tools.ParamIDNumber:   params[FieldID],
	}
}

// HasAccountIntent reports whether text mentions account creation.
func HasAccountIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range accountPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
