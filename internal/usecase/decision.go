package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"deal-checker/internal/domain"
)

var decisionSchema = mustCompileSchema(fmt.Sprintf(`{
	"type": "object",
	"required": ["action", "confidence", "reason"],
	"properties": {
		"action": {"type": "string", "enum": [%s]},
		"confidence": {"type": "number", "minimum": 0, "maximum": 1},
		"reason": {"type": "string", "maxLength": %d}
	}
}`, quotedActions(), domain.MaxReasonLength))

func mustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("usecase: compile schema: %v", err))
	}
	return schema
}

// parseDecision validates raw model output. Besides the schema, confidence
// must be written as a float literal: 1 is rejected, 1.0 is accepted.
func parseDecision(raw string) (domain.Decision, error) {
	raw = strings.TrimSpace(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return domain.Decision{}, newError(ErrorInvalidAIResponse, ReasonDecisionMalformed, err)
	}

	result, err := decisionSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return domain.Decision{}, newError(ErrorInvalidAIResponse, ReasonDecisionMalformed, err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return domain.Decision{}, newError(ErrorInvalidAIResponse, ReasonDecisionInvalid, errors.New(strings.Join(msgs, "; ")))
	}

	if !isFloatLiteral(fields["confidence"]) {
		return domain.Decision{}, newError(ErrorInvalidAIResponse, ReasonDecisionInvalid,
			fmt.Errorf("confidence %s is not a float", fields["confidence"]))
	}

	var d domain.Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return domain.Decision{}, newError(ErrorInvalidAIResponse, ReasonDecisionMalformed, err)
	}
	return d, nil
}

func isFloatLiteral(num json.RawMessage) bool {
	return bytes.ContainsAny(bytes.TrimSpace(num), ".eE")
}
