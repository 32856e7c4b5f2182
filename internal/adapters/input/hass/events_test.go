package hass

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"rc-lights/internal/domain/model"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) HandleEvent(ctx context.Context, data map[string]interface{}) model.DispatchReport {
	args := m.Called(ctx, data)
	return args.Get(0).(model.DispatchReport)
}

func (m *MockDispatcher) Dispatch(ctx context.Context, code model.Code) model.DispatchReport {
	args := m.Called(ctx, code)
	return args.Get(0).(model.DispatchReport)
}

func (m *MockDispatcher) Config() *model.Config {
	return m.Called().Get(0).(*model.Config)
}

// fakeHA speaks just enough of the Home Assistant websocket API.
func fakeHA(t *testing.T, token string, codes ...float64) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/websocket", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]interface{}{"type": "auth_required", "ha_version": "2024.1.0"})
		var auth map[string]interface{}
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		if auth["access_token"] != token {
			conn.WriteJSON(map[string]interface{}{"type": "auth_invalid", "message": "Invalid access token"})
			return
		}
		conn.WriteJSON(map[string]interface{}{"type": "auth_ok"})

		var sub map[string]interface{}
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		assert.Equal(t, "subscribe_events", sub["type"])
		assert.Equal(t, DefaultEventType, sub["event_type"])
		conn.WriteJSON(map[string]interface{}{"id": sub["id"], "type": "result", "success": true, "result": nil})

		for _, code := range codes {
			conn.WriteJSON(map[string]interface{}{
				"id":   sub["id"],
				"type": "event",
				"event": map[string]interface{}{
					"event_type": DefaultEventType,
					"data":       map[string]interface{}{"device_id": "nodemcu", "code": code, "protocol": 1},
				},
			})
		}
		// keep the connection open until the client goes away
		conn.ReadMessage()
	}))
}

func TestWebsocketURL(t *testing.T) {
	tests := map[string]string{
		"http://ha:8123":             "ws://ha:8123/api/websocket",
		"https://ha.example.org/":    "wss://ha.example.org/api/websocket",
		"ws://ha:8123/api/websocket": "ws://ha:8123/api/websocket",
		"http://proxy/homeassistant": "ws://proxy/homeassistant/api/websocket",
	}
	for in, want := range tests {
		got, err := WebsocketURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := WebsocketURL("ftp://ha")
	assert.Error(t, err)
}

func TestEventListener_Dispatches(t *testing.T) {
	srv := fakeHA(t, "secret", 13923313, 7484321)
	defer srv.Close()

	received := make(chan model.Code, 2)
	d := new(MockDispatcher)
	d.On("HandleEvent", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		code, _ := model.CodeFromEvent(args.Get(1).(map[string]interface{}))
		received <- code
	}).Return(model.DispatchReport{})

	l := NewEventListener(srv.URL, "secret", "", d, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	for _, want := range []model.Code{"13923313", "7484321"} {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatal("event not dispatched")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestEventListener_AuthInvalid(t *testing.T) {
	srv := fakeHA(t, "secret")
	defer srv.Close()

	l := NewEventListener(srv.URL, "wrong", "", new(MockDispatcher), slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
}
