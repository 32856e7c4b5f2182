package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	httpinput "rc-lights/internal/adapters/input/http"
	"rc-lights/internal/adapters/input/hass"
	"rc-lights/internal/adapters/input/mqtt"
	"rc-lights/internal/adapters/output/homeassistant"
	"rc-lights/internal/adapters/output/persistence"
	"rc-lights/internal/domain/model"
	"rc-lights/internal/domain/service"
	"rc-lights/internal/logging"
)

var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	configPath := getEnv("CONFIG_PATH", "config.json")
	cfg, err := persistence.NewConfigRepository(configPath).Get(context.Background())
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}
	applyEnv(cfg)

	logger := logging.New(cfg.Logging, Version)
	logger.Info("starting rc-lights", "config", configPath,
		"lights", len(cfg.Lights), "remotes", len(cfg.Remotes), "commands", len(cfg.Commands))

	haClient := homeassistant.NewClient(homeassistant.WithRetries(cfg.Retries, cfg.RetryDelay()))
	haClient.Configure(cfg.HassURL, cfg.HassToken)
	if !haClient.IsConfigured() {
		logger.Warn("Home Assistant is not configured, set hass_url/hass_token or HASS_URL/HASS_TOKEN")
	}

	dispatcher := service.NewDispatcher(cfg, haClient, haClient, logging.Component(logger, "dispatcher"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Home Assistant event bus
	if haClient.IsConfigured() && !cfg.Events.Disabled {
		listener := hass.NewEventListener(cfg.HassURL, cfg.HassToken, cfg.Events.EventType, dispatcher, logging.Component(logger, "hass"))
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("Home Assistant event listener stopped", "error", err)
			}
		}()
	}

	// MQTT
	if cfg.MQTT.Broker != "" {
		sub := mqtt.NewSubscriber(cfg.MQTT, dispatcher, logging.Component(logger, "mqtt"))
		if err := sub.Start(); err != nil {
			logger.Error("MQTT subscriber failed to start", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer sub.Stop()
		}
	}

	// HTTP
	httpServer := httpinput.NewServer(dispatcher, logging.Component(logger, "http"), cfg.HTTP.CORSOrigins).NewHTTPServer(cfg.HTTP.Addr)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "HTTP shutdown: %v\n", err)
	}
}

// applyEnv lets the environment override connection settings from the file.
func applyEnv(cfg *model.Config) {
	cfg.HassURL = getEnv("HASS_URL", cfg.HassURL)
	cfg.HassToken = getEnv("HASS_TOKEN", cfg.HassToken)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.HTTP.CORSOrigins = strings.Split(origins, ",")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
