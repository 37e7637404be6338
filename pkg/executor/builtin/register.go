package builtin

import "github.com/theuselessai/pipelit/pkg/executor"

// RegisterBuiltins registers the http, transform, llm, function_call, telegram,
// conditional and switch executors with the given manager. The other executors
// in this package (merge, rss_parser, file_storage, html_clean, google_drive and
// the rest) are not registered here.
func RegisterBuiltins(manager executor.Manager) error {
	executors := map[string]executor.Executor{
		"http":          NewHTTPExecutor(),
		"transform":     NewTransformExecutor(),
		"llm":           NewLLMExecutor(),
		"function_call": NewFunctionCallExecutor(),
		"telegram":      NewTelegramExecutor(),
		"conditional":   NewConditionalExecutor(),
		"switch":        NewSwitchExecutor(),
	}

	for name, exec := range executors {
		if err := manager.Register(name, exec); err != nil {
			return err
		}
	}

	return nil
}

// MustRegisterBuiltins calls RegisterBuiltins and panics on error.
// This is a convenience function for initialization code.
func MustRegisterBuiltins(manager executor.Manager) {
	if err := RegisterBuiltins(manager); err != nil {
		panic("failed to register built-in executors: " + err.Error())
	}
}
