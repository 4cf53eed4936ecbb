// Package agent contains the reasoning loop: decision parsing, the
// orchestrator that drives inbound messages through claim, confirmation,
// and the bounded tool-dispatch cycle, and the observation formatting fed
// back to the model between steps.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecisionCall is a tool invocation requested by the model.
type DecisionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Decision is one step of model output: a thought plus either a tool call
// or a final response, never both.
type Decision struct {
	Thought  string        `json:"thought,omitempty"`
	Call     *DecisionCall `json:"call,omitempty"`
	Response string        `json:"response,omitempty"`
}

// Canonical returns the decision re-encoded as compact JSON, used when
// appending the assistant turn back into the conversation.
func (d *Decision) Canonical() string {
	data, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DecisionError is a structured validation failure. Loc names the field
// that failed when known.
type DecisionError struct {
	Loc string
	Msg string
}

func (e *DecisionError) Error() string {
	if e.Loc != "" {
		return fmt.Sprintf("invalid decision at %s: %s", e.Loc, e.Msg)
	}
	return fmt.Sprintf("invalid decision: %s", e.Msg)
}

func decisionErr(loc, msg string) error {
	return &DecisionError{Loc: loc, Msg: msg}
}

// ParseDecision extracts a decision from raw model output. Models drift
// from the contract in predictable ways, so parsing is permissive about
// the envelope and strict about the content:
//
//   - plain JSON object: accepted directly
//   - JSON string containing JSON: unwrapped and re-parsed
//   - prose with an embedded object: prefix-decoded from the first { or [
//   - JSON array: the first element is taken
//
// Whatever survives extraction must be an object with a non-empty
// "thought" and exactly one of "call" or "response".
func ParseDecision(raw string) (*Decision, error) {
	value, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	// A string payload may itself wrap JSON.
	if s, ok := value.(string); ok {
		value, err = extractJSON(s)
		if err != nil {
			return nil, err
		}
	}

	if list, ok := value.([]any); ok {
		if len(list) == 0 {
			return nil, decisionErr("", "empty array")
		}
		value = list[0]
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, decisionErr("", fmt.Sprintf("expected object, got %T", value))
	}
	return validateDecision(obj)
}

// extractJSON parses s as JSON, falling back to a prefix decode from the
// first brace or bracket when the payload is wrapped in prose.
func extractJSON(s string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(s), &value); err == nil {
		return value, nil
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, decisionErr("", "no JSON payload found")
	}
	dec := json.NewDecoder(strings.NewReader(s[start:]))
	if err := dec.Decode(&value); err != nil {
		return nil, decisionErr("", "no JSON payload found")
	}
	return value, nil
}

func validateDecision(obj map[string]any) (*Decision, error) {
	var d Decision

	if raw, ok := obj["thought"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, decisionErr("thought", "must be a string")
		}
		d.Thought = s
	}
	if strings.TrimSpace(d.Thought) == "" {
		return nil, decisionErr("thought", "must be a non-empty string")
	}

	rawCall, hasCall := obj["call"]
	if hasCall && rawCall == nil {
		hasCall = false
	}
	rawResponse, hasResponse := obj["response"]
	if hasResponse && rawResponse == nil {
		hasResponse = false
	}

	switch {
	case hasCall && hasResponse:
		return nil, decisionErr("", "call and response are mutually exclusive")
	case !hasCall && !hasResponse:
		return nil, decisionErr("", "either call or response is required")
	}

	if hasResponse {
		s, ok := rawResponse.(string)
		if !ok {
			return nil, decisionErr("response", "must be a string")
		}
		if s == "" {
			return nil, decisionErr("response", "must be a non-empty string")
		}
		d.Response = s
		return &d, nil
	}

	callObj, ok := rawCall.(map[string]any)
	if !ok {
		return nil, decisionErr("call", "must be an object")
	}
	name, ok := callObj["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, decisionErr("call.name", "must be a non-empty string")
	}
	call := &DecisionCall{Name: name, Arguments: map[string]any{}}
	if rawArgs, ok := callObj["arguments"]; ok && rawArgs != nil {
		args, ok := rawArgs.(map[string]any)
		if !ok {
			return nil, decisionErr("call.arguments", "must be an object")
		}
		call.Arguments = args
	}
	d.Call = call
	return &d, nil
}
