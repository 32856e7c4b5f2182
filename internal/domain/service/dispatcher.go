package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rc-lights/internal/domain/action"
	"rc-lights/internal/domain/model"
	"rc-lights/internal/ports"
)

// TimeProvider supplies the current time for the debounce guard.
type TimeProvider interface {
	Now() time.Time
}

type realTimeProvider struct{}

func (realTimeProvider) Now() time.Time { return time.Now() }

// Dispatcher turns RC codes into light service calls. Configuration is fixed
// at construction; entity state is read fresh for every command.
type Dispatcher struct {
	cfg           *model.Config
	states        ports.StateReader
	caller        ports.ServiceCaller
	logger        ports.Logger
	actionFactory *action.Factory
	clock         TimeProvider
	mu            sync.Mutex
}

var _ ports.DispatcherPort = (*Dispatcher)(nil)

type Option func(*Dispatcher)

func WithTimeProvider(tp TimeProvider) Option {
	return func(d *Dispatcher) {
		if tp != nil {
			d.clock = tp
		}
	}
}

func NewDispatcher(cfg *model.Config, states ports.StateReader, caller ports.ServiceCaller, logger ports.Logger, opts ...Option) *Dispatcher {
	if cfg == nil {
		cfg = &model.Config{}
	}
	d := &Dispatcher{
		cfg:           cfg,
		states:        states,
		caller:        caller,
		logger:        logger,
		actionFactory: action.NewFactory(),
		clock:         realTimeProvider{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Config() *model.Config {
	return d.cfg
}

// HandleEvent is the entry point for event payloads carrying a code (or rc) field.
func (d *Dispatcher) HandleEvent(ctx context.Context, data map[string]interface{}) model.DispatchReport {
	code, ok := model.CodeFromEvent(data)
	if !ok {
		d.logger.Warn("no 'code' provided in event data", "data", data)
		return model.DispatchReport{}
	}
	return d.Dispatch(ctx, code)
}

// Dispatch runs every command rule matching code, in configuration order.
func (d *Dispatcher) Dispatch(ctx context.Context, code model.Code) model.DispatchReport {
	d.mu.Lock()
	defer d.mu.Unlock()

	report := model.DispatchReport{
		Code:    code,
		Alias:   d.cfg.ResolveRemote(code),
		Matched: []string{},
		Calls:   []model.ServiceCall{},
	}

	commands := d.cfg.MatchCommands(code)
	if len(commands) == 0 {
		d.logger.Warn("no matching command found for remote", "code", code, "alias", report.Alias)
		return report
	}

	d.logger.Debug("process remote", "code", code, "alias", report.Alias, "commands", len(commands))
	for _, rule := range commands {
		report.Matched = append(report.Matched, rule.Title)
		calls, err := d.runCommand(ctx, rule)
		if err != nil {
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", rule.Title, err))
			continue
		}
		report.Calls = append(report.Calls, calls...)
	}
	return report
}

var (
	errDebounced     = errors.New("entities updated too recently")
	errUnknownAction = errors.New("unknown command")
)

func (d *Dispatcher) runCommand(ctx context.Context, rule *model.CommandRule) ([]model.ServiceCall, error) {
	entities := d.cfg.Entities(rule)

	states := make([]*model.EntityState, len(entities))
	for i, ent := range entities {
		s, err := d.states.GetState(ctx, ent)
		if err != nil {
			d.logger.Error("failed to read entity state", "entity_id", ent, "command", rule.Title, "error", err)
			return nil, fmt.Errorf("read state of %s: %w", ent, err)
		}
		states[i] = s
	}

	// last_updated covers attribute changes, last_changed only the on/off state
	now := d.clock.Now()
	window := d.cfg.DebounceWindow()
	for _, s := range states {
		if s.UpdatedWithin(now, window) {
			d.logger.Info("skipping too recent command", "command", rule.Title, "entity_id", s.EntityID, "window", window)
			return nil, errDebounced
		}
	}

	handler := d.actionFactory.GetHandler(rule.Command)
	if handler == nil {
		d.logger.Warn("unknown command", "command", rule.Title, "kind", rule.Command)
		return nil, fmt.Errorf("%w %q", errUnknownAction, rule.Command)
	}

	calls, err := handler.Plan(rule, entities, states)
	if err != nil {
		d.logger.Warn("command not applied", "command", rule.Title, "error", err)
		return nil, err
	}

	issued := make([]model.ServiceCall, 0, len(calls))
	for _, call := range calls {
		d.logger.Info(fmt.Sprintf("%s %s", rule.Command, call.Service), "command", rule.Title, "data", call.Data())
		if err := d.callService(ctx, call); err != nil {
			d.logger.Error("service call failed", "service", call.Domain+"."+call.Service, "entity_id", call.EntityID, "error", err)
			continue
		}
		issued = append(issued, call)
	}
	return issued, nil
}

// callService tries the non-blocking signature first when the caller offers
// it and falls back to the plain one on ErrUnsupportedCall.
func (d *Dispatcher) callService(ctx context.Context, call model.ServiceCall) error {
	d.logger.Debug("hass_service", "domain", call.Domain, "service", call.Service, "data", call.Data())
	if bc, ok := d.caller.(ports.BlockingServiceCaller); ok {
		err := bc.CallServiceBlocking(ctx, call, false)
		if !errors.Is(err, ports.ErrUnsupportedCall) {
			return err
		}
	}
	return d.caller.CallService(ctx, call)
}
