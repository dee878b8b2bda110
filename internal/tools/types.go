package tools

import (
	"encoding/json"
	"fmt"
)

// Call is one tool invocation requested by the model.
type Call struct {
	// ID correlates the call with its Result and is returned unchanged.
	ID    string
	Name  string
	Input json.RawMessage
}

// Result is the outcome of a Call. Payload is always valid JSON; failures are
// reported as {"error": "..."} with IsError set.
type Result struct {
	CallID  string
	Payload string
	IsError bool
}

// Spec is a provider-neutral tool declaration.
type Spec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ValidationError reports tool arguments that could not be used.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func errorPayload(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}
