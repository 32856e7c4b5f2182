package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"rc-lights/internal/domain/model"
	"rc-lights/internal/ports"
)

const (
	DefaultTopic = "rc"

	connectTimeout    = 10 * time.Second
	subscribeTimeout  = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrSubscribeFailed  = errors.New("mqtt subscribe failed")
)

// Subscriber feeds RC codes published on an MQTT topic to the dispatcher.
// The payload is either the bare code or a JSON object with a code field.
type Subscriber struct {
	cfg        model.MQTTConfig
	dispatcher ports.DispatcherPort
	logger     ports.Logger
	client     pahomqtt.Client
}

func NewSubscriber(cfg model.MQTTConfig, dispatcher ports.DispatcherPort, logger ports.Logger) *Subscriber {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "rc-lights"
	}
	return &Subscriber{cfg: cfg, dispatcher: dispatcher, logger: logger}
}

func (s *Subscriber) buildClientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetConnectTimeout(connectTimeout)

	// clean session drops subscriptions, restore them on every (re)connect
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		s.logger.Info("connected to MQTT", "broker", s.cfg.Broker)
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, s.onMessage)
		if token.WaitTimeout(subscribeTimeout) && token.Error() != nil {
			s.logger.Error("MQTT subscribe failed", "topic", s.cfg.Topic, "error", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.logger.Warn("MQTT connection lost", "error", err)
	})
	return opts
}

// Start connects to the broker and subscribes to the configured topic.
func (s *Subscriber) Start() error {
	s.client = pahomqtt.NewClient(s.buildClientOptions())
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

func (s *Subscriber) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesce)
	}
}

func (s *Subscriber) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	s.HandlePayload(context.Background(), msg.Topic(), msg.Payload())
}

// HandlePayload decodes one message and dispatches it. Panics in the
// dispatch path are logged instead of killing the paho router goroutine.
func (s *Subscriber) HandlePayload(ctx context.Context, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in MQTT handler", "topic", topic, "panic", r)
		}
	}()

	data, err := ParsePayload(payload)
	if err != nil {
		s.logger.Warn("invalid RC payload", "topic", topic, "error", err)
		return
	}
	s.dispatcher.HandleEvent(ctx, data)
}

// ParsePayload accepts `13923313`, `"13923313"` or `{"code": 13923313}`.
func ParsePayload(payload []byte) (map[string]interface{}, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	if payload[0] == '{' {
		var data map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, err
		}
		return data, nil
	}
	var code model.Code
	if payload[0] == '"' {
		if err := json.Unmarshal(payload, &code); err != nil {
			return nil, err
		}
	} else {
		code = model.Code(payload)
	}
	return map[string]interface{}{"code": string(code)}, nil
}
