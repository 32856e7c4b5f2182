package action

import (
	"rc-lights/internal/domain/model"
)

// ToggleHandler turns every entity off when any of them is on, and every
// entity on otherwise.
type ToggleHandler struct{}

func (h *ToggleHandler) Plan(rule *model.CommandRule, entities []string, states []*model.EntityState) ([]model.ServiceCall, error) {
	anyOn := false
	for _, s := range states {
		if s.IsOn() {
			anyOn = true
			break
		}
	}

	calls := make([]model.ServiceCall, 0, len(entities))
	for _, ent := range entities {
		if anyOn {
			calls = append(calls, model.TurnOff(ent))
		} else {
			calls = append(calls, model.TurnOn(ent))
		}
	}
	return calls, nil
}
