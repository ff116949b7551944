package tools

import "context"

type noop struct{}

func (t *noop) Definition() Definition {
	return Definition{Name: "noop", Desc: "No operation.", Schema: map[string]string{}}
}

func (t *noop) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	out := map[string]any{"noop": true}
	for k, v := range params {
		out[k] = v
	}
	return out, nil
}

// askUser is registered for the catalog only; the runner intercepts it to
// suspend the session instead of executing anything.
type askUser struct{}

func (t *askUser) Definition() Definition {
	return Definition{
		Name: "ask_user",
		Desc: "Pause the run and ask the user a question; resume when answered.",
		Schema: map[string]string{
			"question_id": "str", "question": "str", "expected": "str?", "options": "list[str]?",
		},
	}
}

func (t *askUser) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	out := map[string]any{"awaiting": true}
	for k, v := range params {
		out[k] = v
	}
	return out, nil
}
