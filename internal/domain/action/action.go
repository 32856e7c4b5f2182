package action

import (
	"errors"

	"rc-lights/internal/domain/model"
)

var ErrNoCycles = errors.New("cycle command has no cycles")

// Handler plans the service calls of a command rule. entities and states
// are index-aligned; a nil state is a missing entity.
type Handler interface {
	Plan(rule *model.CommandRule, entities []string, states []*model.EntityState) ([]model.ServiceCall, error)
}
