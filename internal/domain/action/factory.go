package action

import (
	"rc-lights/internal/domain/model"
)

type Factory struct {
	handlers map[model.ActionKind]Handler
}

func NewFactory() *Factory {
	return &Factory{
		handlers: map[model.ActionKind]Handler{
			model.ActionToggle: &ToggleHandler{},
			model.ActionCycle:  &CycleHandler{},
		},
	}
}

// GetHandler returns nil for unknown action kinds.
func (f *Factory) GetHandler(kind model.ActionKind) Handler {
	return f.handlers[kind]
}
