package builtin

import (
	"context"
	"testing"
)

func TestSwitchExecutor_Execute_FirstMatchWins(t *testing.T) {
	executor := NewSwitchExecutor()

	config := map[string]interface{}{
		"rules": []interface{}{
			map[string]interface{}{"id": "low", "field": "score", "operator": "lt", "value": 50},
			map[string]interface{}{"id": "high", "field": "score", "operator": "gte", "value": 50},
		},
	}

	input := map[string]interface{}{"score": 60}

	result, err := executor.Execute(context.Background(), config, input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	out, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map output, got %T", result)
	}
	if out["_route"] != "high" {
		t.Errorf("expected route 'high', got %v", out["_route"])
	}
}

func TestSwitchExecutor_Execute_NestedField(t *testing.T) {
	executor := NewSwitchExecutor()

	config := map[string]interface{}{
		"rules": []interface{}{
			map[string]interface{}{"id": "active", "field": "user.status", "operator": "equals", "value": "active"},
		},
	}

	input := map[string]interface{}{
		"user": map[string]interface{}{"status": "active"},
	}

	result, err := executor.Execute(context.Background(), config, input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	out := result.(map[string]any)
	if out["_route"] != "active" {
		t.Errorf("expected route 'active', got %v", out["_route"])
	}
}

func TestSwitchExecutor_Execute_Fallback(t *testing.T) {
	executor := NewSwitchExecutor()

	config := map[string]interface{}{
		"rules": []interface{}{
			map[string]interface{}{"id": "match", "field": "score", "operator": "gt", "value": 1000},
		},
	}

	input := map[string]interface{}{"score": 1}

	result, err := executor.Execute(context.Background(), config, input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	out := result.(map[string]any)
	if out["_route"] != "__other__" {
		t.Errorf("expected fallback route, got %v", out["_route"])
	}
}

func TestSwitchExecutor_Execute_NoFallbackConfigured(t *testing.T) {
	executor := NewSwitchExecutor()

	config := map[string]interface{}{
		"enable_fallback": false,
		"rules": []interface{}{
			map[string]interface{}{"id": "match", "field": "score", "operator": "gt", "value": 1000},
		},
	}

	input := map[string]interface{}{"score": 1}

	_, err := executor.Execute(context.Background(), config, input)
	if err == nil {
		t.Error("expected error when no rule matches and fallback is disabled")
	}
}

func TestSwitchExecutor_Validate_MissingRules(t *testing.T) {
	executor := NewSwitchExecutor()

	err := executor.Validate(map[string]interface{}{})
	if err == nil {
		t.Error("expected error for missing rules")
	}
}

func TestSwitchExecutor_Validate_RuleMissingField(t *testing.T) {
	executor := NewSwitchExecutor()

	config := map[string]interface{}{
		"rules": []interface{}{
			map[string]interface{}{"id": "x", "operator": "exists"},
		},
	}

	err := executor.Validate(config)
	if err == nil {
		t.Error("expected error for rule missing field")
	}
}

func TestSwitchExecutor_Validate_Success(t *testing.T) {
	executor := NewSwitchExecutor()

	config := map[string]interface{}{
		"rules": []interface{}{
			map[string]interface{}{"id": "x", "field": "score", "operator": "exists"},
		},
	}

	if err := executor.Validate(config); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}
