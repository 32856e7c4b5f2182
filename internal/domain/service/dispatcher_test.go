package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"rc-lights/internal/domain/model"
	"rc-lights/internal/ports"
)

type MockHAPort struct {
	mock.Mock
}

func (m *MockHAPort) GetState(ctx context.Context, entityID string) (*model.EntityState, error) {
	args := m.Called(ctx, entityID)
	s, _ := args.Get(0).(*model.EntityState)
	return s, args.Error(1)
}

func (m *MockHAPort) CallService(ctx context.Context, call model.ServiceCall) error {
	args := m.Called(ctx, call)
	return args.Error(0)
}

// MockBlockingHAPort also offers the extended call signature.
type MockBlockingHAPort struct {
	MockHAPort
}

func (m *MockBlockingHAPort) CallServiceBlocking(ctx context.Context, call model.ServiceCall, blocking bool) error {
	args := m.Called(ctx, call, blocking)
	return args.Error(0)
}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

var now = time.Date(2024, 1, 15, 22, 0, 0, 0, time.UTC)

func testConfig() *model.Config {
	return &model.Config{
		Lights: map[string]string{
			"chambre1": "light.controller_dimmable_5d0c78",
			"chambre2": "light.controller_dimmable_61eabc",
			"salon":    "light.controller_dimmable_437607",
		},
		Remotes: map[model.Code]string{
			"13923313": "chambre_droit",
			"13923314": "chambre_gauche",
			"7484324":  "lit_milieu",
			"7934418":  "salon_gauche",
		},
		Commands: []*model.CommandRule{
			{Title: "Toggle chambre", Remotes: []model.Code{"chambre_droit", "lit_milieu"}, Lights: []string{"chambre1", "chambre2"}, Command: model.ActionToggle},
			{Title: "Cycle jour", Remotes: []model.Code{"chambre_gauche"}, Lights: []string{"chambre1", "chambre2"}, Command: model.ActionCycle, Cycles: [][]int{{20, 100}, {50, 255}, {255, 255}}},
			{Title: "Cycle salon", Remotes: []model.Code{"salon_gauche"}, Lights: []string{"salon"}, Command: model.ActionCycle, Cycles: [][]int{{255}, {150}, {50}}},
			{Title: "Raw code", Remotes: []model.Code{"555"}, Lights: []string{"light.garage"}, Command: model.ActionToggle},
			{Title: "Blink", Remotes: []model.Code{"blink"}, Lights: []string{"salon"}, Command: "blink"},
			{Title: "Empty", Lights: []string{"salon"}, Command: model.ActionToggle},
		},
	}
}

func state(entityID string, on bool, bri uint8, age time.Duration) *model.EntityState {
	return &model.EntityState{
		EntityID:    entityID,
		Light:       &huego.State{On: on, Bri: bri},
		LastUpdated: now.Add(-age),
	}
}

func newDispatcher(cfg *model.Config, ha ports.ServiceCaller, states ports.StateReader) *Dispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(cfg, states, ha, logger, WithTimeProvider(fixedTime{now}))
}

func TestDispatcher_ToggleOn(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_5d0c78").Return(state("light.controller_dimmable_5d0c78", false, 0, time.Hour), nil)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_61eabc").Return(state("light.controller_dimmable_61eabc", false, 0, time.Hour), nil)
	mockHA.On("CallService", mock.Anything, model.TurnOn("light.controller_dimmable_5d0c78")).Return(nil).Once()
	mockHA.On("CallService", mock.Anything, model.TurnOn("light.controller_dimmable_61eabc")).Return(nil).Once()

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.HandleEvent(context.Background(), map[string]interface{}{"code": float64(13923313)})

	assert.Equal(t, model.Code("13923313"), report.Code)
	assert.Equal(t, "chambre_droit", report.Alias)
	assert.Equal(t, []string{"Toggle chambre"}, report.Matched)
	assert.Len(t, report.Calls, 2)
	mockHA.AssertExpectations(t)
}

func TestDispatcher_ToggleOff(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_5d0c78").Return(state("light.controller_dimmable_5d0c78", true, 80, time.Hour), nil)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_61eabc").Return(nil, nil)
	mockHA.On("CallService", mock.Anything, model.TurnOff("light.controller_dimmable_5d0c78")).Return(nil).Once()
	mockHA.On("CallService", mock.Anything, model.TurnOff("light.controller_dimmable_61eabc")).Return(nil).Once()

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.HandleEvent(context.Background(), map[string]interface{}{"rc": "7484324"})

	assert.Equal(t, "lit_milieu", report.Alias)
	assert.Len(t, report.Calls, 2)
	mockHA.AssertExpectations(t)
}

func TestDispatcher_Cycle(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_5d0c78").Return(state("light.controller_dimmable_5d0c78", true, 50, time.Hour), nil)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_61eabc").Return(state("light.controller_dimmable_61eabc", true, 255, time.Hour), nil)
	mockHA.On("CallService", mock.Anything, model.SetBrightness("light.controller_dimmable_5d0c78", 255)).Return(nil).Once()
	mockHA.On("CallService", mock.Anything, model.SetBrightness("light.controller_dimmable_61eabc", 255)).Return(nil).Once()

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.Dispatch(context.Background(), "13923314")

	assert.Equal(t, []string{"Cycle jour"}, report.Matched)
	mockHA.AssertExpectations(t)
}

func TestDispatcher_RawCodeMatch(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.garage").Return(state("light.garage", false, 0, time.Hour), nil)
	mockHA.On("CallService", mock.Anything, model.TurnOn("light.garage")).Return(nil).Once()

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.Dispatch(context.Background(), "555")

	assert.Equal(t, "555", report.Alias)
	assert.Equal(t, []string{"Raw code"}, report.Matched)
	mockHA.AssertExpectations(t)
}

func TestDispatcher_Debounce(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_5d0c78").Return(state("light.controller_dimmable_5d0c78", false, 0, time.Hour), nil)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_61eabc").Return(state("light.controller_dimmable_61eabc", false, 0, 100*time.Millisecond), nil)

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.Dispatch(context.Background(), "13923313")

	assert.Empty(t, report.Calls)
	assert.Len(t, report.Skipped, 1)
	mockHA.AssertNotCalled(t, "CallService", mock.Anything, mock.Anything)
}

func TestDispatcher_DebounceWindowConfigurable(t *testing.T) {
	cfg := testConfig()
	window := 50
	cfg.DebounceMS = &window

	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_437607").Return(state("light.controller_dimmable_437607", true, 150, 100*time.Millisecond), nil)
	mockHA.On("CallService", mock.Anything, model.SetBrightness("light.controller_dimmable_437607", 50)).Return(nil).Once()

	d := newDispatcher(cfg, mockHA, mockHA)
	d.Dispatch(context.Background(), "7934418")

	mockHA.AssertExpectations(t)
}

func TestDispatcher_NoMatch(t *testing.T) {
	mockHA := new(MockHAPort)
	d := newDispatcher(testConfig(), mockHA, mockHA)

	report := d.Dispatch(context.Background(), "424242")

	assert.Equal(t, "424242", report.Alias)
	assert.Empty(t, report.Matched)
	mockHA.AssertNotCalled(t, "GetState", mock.Anything, mock.Anything)
}

func TestDispatcher_MissingCode(t *testing.T) {
	mockHA := new(MockHAPort)
	d := newDispatcher(testConfig(), mockHA, mockHA)

	report := d.HandleEvent(context.Background(), map[string]interface{}{"code": ""})
	assert.Empty(t, report.Code)
	report = d.HandleEvent(context.Background(), map[string]interface{}{})
	assert.Empty(t, report.Code)
	mockHA.AssertNotCalled(t, "GetState", mock.Anything, mock.Anything)
}

func TestDispatcher_UnknownAction(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.controller_dimmable_437607").Return(state("light.controller_dimmable_437607", true, 150, time.Hour), nil)

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.Dispatch(context.Background(), "blink")

	assert.Equal(t, []string{"Blink"}, report.Matched)
	assert.Len(t, report.Skipped, 1)
	mockHA.AssertNotCalled(t, "CallService", mock.Anything, mock.Anything)
}

func TestDispatcher_StateError(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, "light.garage").Return(nil, errors.New("boom"))

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.Dispatch(context.Background(), "555")

	assert.Empty(t, report.Calls)
	assert.Len(t, report.Skipped, 1)
	mockHA.AssertNotCalled(t, "CallService", mock.Anything, mock.Anything)
}

func TestDispatcher_CallFailureContinues(t *testing.T) {
	mockHA := new(MockHAPort)
	mockHA.On("GetState", mock.Anything, mock.Anything).Return(nil, nil)
	mockHA.On("CallService", mock.Anything, model.TurnOn("light.controller_dimmable_5d0c78")).Return(errors.New("HA API error: 500")).Once()
	mockHA.On("CallService", mock.Anything, model.TurnOn("light.controller_dimmable_61eabc")).Return(nil).Once()

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.Dispatch(context.Background(), "13923313")

	require.Len(t, report.Calls, 1)
	assert.Equal(t, "light.controller_dimmable_61eabc", report.Calls[0].EntityID)
	mockHA.AssertExpectations(t)
}

func TestDispatcher_BlockingSignature(t *testing.T) {
	mockHA := new(MockBlockingHAPort)
	mockHA.On("GetState", mock.Anything, "light.garage").Return(nil, nil)
	mockHA.On("CallServiceBlocking", mock.Anything, model.TurnOn("light.garage"), false).Return(nil).Once()

	d := newDispatcher(testConfig(), mockHA, mockHA)
	d.Dispatch(context.Background(), "555")

	mockHA.AssertExpectations(t)
	mockHA.AssertNotCalled(t, "CallService", mock.Anything, mock.Anything)
}

func TestDispatcher_SignatureFallback(t *testing.T) {
	mockHA := new(MockBlockingHAPort)
	mockHA.On("GetState", mock.Anything, "light.garage").Return(nil, nil)
	mockHA.On("CallServiceBlocking", mock.Anything, model.TurnOn("light.garage"), false).Return(ports.ErrUnsupportedCall).Once()
	mockHA.On("CallService", mock.Anything, model.TurnOn("light.garage")).Return(nil).Once()

	d := newDispatcher(testConfig(), mockHA, mockHA)
	report := d.Dispatch(context.Background(), "555")

	assert.Len(t, report.Calls, 1)
	mockHA.AssertExpectations(t)
}

func TestDispatcher_NilConfig(t *testing.T) {
	mockHA := new(MockHAPort)
	d := newDispatcher(nil, mockHA, mockHA)

	report := d.Dispatch(context.Background(), "13923313")
	assert.Empty(t, report.Matched)
	assert.NotNil(t, d.Config())
}
