package ports

import (
	"context"
	"errors"
	"rc-lights/internal/domain/model"
)

// ErrUnsupportedCall is returned by BlockingServiceCaller implementations
// that cannot honour the extended call signature.
var ErrUnsupportedCall = errors.New("unsupported service call signature")

// StateReader reads live entity state. A missing entity yields (nil, nil).
type StateReader interface {
	GetState(ctx context.Context, entityID string) (*model.EntityState, error)
}

type ServiceCaller interface {
	CallService(ctx context.Context, call model.ServiceCall) error
}

// BlockingServiceCaller is the extended signature, tried first when the
// caller supports it.
type BlockingServiceCaller interface {
	CallServiceBlocking(ctx context.Context, call model.ServiceCall, blocking bool) error
}

type HomeAssistantPort interface {
	StateReader
	ServiceCaller
	Configure(url, token string)
	IsConfigured() bool
}
