package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"rc-lights/internal/domain/model"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("HASS_URL", "http://ha:8123")
	t.Setenv("HASS_TOKEN", "")
	t.Setenv("MQTT_BROKER", "tcp://mqtt:1883")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "http://a,http://b")

	cfg := &model.Config{HassURL: "http://old", HassToken: "file-token"}
	applyEnv(cfg)

	assert.Equal(t, "http://ha:8123", cfg.HassURL)
	assert.Equal(t, "file-token", cfg.HassToken)
	assert.Equal(t, "tcp://mqtt:1883", cfg.MQTT.Broker)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.HTTP.CORSOrigins)
}
