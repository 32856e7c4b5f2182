package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"rc-lights/internal/ports"
)

// DefaultEventType is the event fired by ESPHome's rc_switch receiver.
const DefaultEventType = "esphome.rc_switch_received"

var ErrAuthFailed = errors.New("Home Assistant authentication failed")

type message struct {
	ID          int             `json:"id,omitempty"`
	Type        string          `json:"type"`
	AccessToken string          `json:"access_token,omitempty"`
	EventType   string          `json:"event_type,omitempty"`
	Success     *bool           `json:"success,omitempty"`
	Message     string          `json:"message,omitempty"`
	Event       *event          `json:"event,omitempty"`
	Error       json.RawMessage `json:"error,omitempty"`
}

type event struct {
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data"`
}

// EventListener subscribes to a Home Assistant event type over the
// websocket API and dispatches the data of every event it receives.
type EventListener struct {
	hassURL        string
	token          string
	eventType      string
	dispatcher     ports.DispatcherPort
	logger         ports.Logger
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
}

func NewEventListener(hassURL, token, eventType string, dispatcher ports.DispatcherPort, logger ports.Logger) *EventListener {
	if eventType == "" {
		eventType = DefaultEventType
	}
	return &EventListener{
		hassURL:        hassURL,
		token:          token,
		eventType:      eventType,
		dispatcher:     dispatcher,
		logger:         logger,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: 5 * time.Second,
	}
}

// WebsocketURL maps http(s)://host to ws(s)://host/api/websocket.
func WebsocketURL(hassURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(hassURL, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported Home Assistant URL %q", hassURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/api/websocket") + "/api/websocket"
	return u.String(), nil
}

// Run listens until ctx is cancelled, reconnecting after failures.
// Authentication failures are not retried.
func (l *EventListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrAuthFailed) {
			return err
		}
		l.logger.Warn("Home Assistant event stream interrupted", "error", err, "retry_in", l.reconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *EventListener) listen(ctx context.Context) error {
	wsURL, err := WebsocketURL(l.hassURL)
	if err != nil {
		return err
	}
	conn, _, err := l.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := l.authenticate(conn); err != nil {
		return err
	}
	if err := l.subscribe(conn); err != nil {
		return err
	}
	l.logger.Info("subscribed to Home Assistant events", "event_type", l.eventType)

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if msg.Type != "event" || msg.Event == nil {
			continue
		}
		l.logger.Debug("RC event received", "event_type", msg.Event.EventType, "data", msg.Event.Data)
		l.dispatcher.HandleEvent(ctx, msg.Event.Data)
	}
}

func (l *EventListener) authenticate(conn *websocket.Conn) error {
	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if msg.Type != "auth_required" {
		return fmt.Errorf("unexpected message %q", msg.Type)
	}
	if err := conn.WriteJSON(message{Type: "auth", AccessToken: l.token}); err != nil {
		return err
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth result: %w", err)
	}
	if msg.Type != "auth_ok" {
		return fmt.Errorf("%w: %s", ErrAuthFailed, msg.Message)
	}
	return nil
}

func (l *EventListener) subscribe(conn *websocket.Conn) error {
	if err := conn.WriteJSON(message{ID: 1, Type: "subscribe_events", EventType: l.eventType}); err != nil {
		return err
	}
	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read subscribe result: %w", err)
	}
	if msg.Type != "result" || msg.Success == nil || !*msg.Success {
		return fmt.Errorf("subscribe_events %s failed: %s", l.eventType, msg.Error)
	}
	return nil
}
