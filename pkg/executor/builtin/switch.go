package builtin

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/theuselessai/pipelit/pkg/engine"
	"github.com/theuselessai/pipelit/pkg/executor"
)

// SwitchExecutor evaluates an ordered list of field/operator/value rules
// against the node's input and emits a `_route` reserved output key naming
// the first matching rule's id (or the configured fallback route).
type SwitchExecutor struct {
	*executor.BaseExecutor
}

// NewSwitchExecutor creates a new switch executor.
func NewSwitchExecutor() *SwitchExecutor {
	return &SwitchExecutor{
		BaseExecutor: executor.NewBaseExecutor("switch"),
	}
}

// Execute resolves the configured rules against input and returns the
// matched route as a reserved `_route` output key.
func (e *SwitchExecutor) Execute(ctx context.Context, config map[string]any, input any) (any, error) {
	rules, err := parseSwitchRules(config)
	if err != nil {
		return nil, err
	}

	enableFallback := e.GetBoolDefault(config, "enable_fallback", true)

	lookup := func(field string) (interface{}, bool) {
		return resolveSwitchField(input, field)
	}

	route, matched := engine.EvaluateSwitchRules(rules, lookup, enableFallback)
	if !matched {
		return nil, fmt.Errorf("no switch rule matched and no fallback route configured")
	}

	return map[string]any{"_route": route}, nil
}

// Validate checks that every configured rule names a field, operator and id.
func (e *SwitchExecutor) Validate(config map[string]any) error {
	_, err := parseSwitchRules(config)
	return err
}

func parseSwitchRules(config map[string]any) ([]engine.SwitchRule, error) {
	raw, ok := config["rules"]
	if !ok {
		return nil, fmt.Errorf("required field missing: rules")
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field rules is not a list")
	}

	rules := make([]engine.SwitchRule, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("rules[%d] is not an object", i)
		}

		id, _ := m["id"].(string)
		field, _ := m["field"].(string)
		op, _ := m["operator"].(string)
		if id == "" {
			return nil, fmt.Errorf("rules[%d]: id is required", i)
		}
		if field == "" {
			return nil, fmt.Errorf("rules[%d]: field is required", i)
		}
		if op == "" {
			return nil, fmt.Errorf("rules[%d]: operator is required", i)
		}

		rules = append(rules, engine.SwitchRule{
			ID:       id,
			Field:    field,
			Operator: engine.SwitchOperator(op),
			Value:    m["value"],
		})
	}

	return rules, nil
}

// resolveSwitchField resolves a dotted field path (e.g. "user.age") against
// the node's input, which is ordinarily a map[string]any but may be a
// struct when an upstream executor returns typed data.
func resolveSwitchField(input any, field string) (interface{}, bool) {
	current := input
	for _, part := range strings.Split(field, ".") {
		if current == nil {
			return nil, false
		}

		if m, ok := current.(map[string]any); ok {
			val, present := m[part]
			if !present {
				return nil, false
			}
			current = val
			continue
		}

		v := reflect.ValueOf(current)
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, false
		}
		fv := v.FieldByName(part)
		if !fv.IsValid() {
			return nil, false
		}
		current = fv.Interface()
	}

	return current, true
}
