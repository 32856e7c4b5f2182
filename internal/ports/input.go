package ports

import (
	"context"
	"rc-lights/internal/domain/model"
)

// DispatcherPort is what input adapters drive.
type DispatcherPort interface {
	HandleEvent(ctx context.Context, data map[string]interface{}) model.DispatchReport
	Dispatch(ctx context.Context, code model.Code) model.DispatchReport
	Config() *model.Config
}

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
