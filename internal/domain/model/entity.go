package model

import (
	"time"

	"github.com/amimof/huego"
)

const (
	StateOn  = "on"
	StateOff = "off"
)

// EntityState is a read-only snapshot of a Home Assistant light.
type EntityState struct {
	EntityID    string
	State       string       // raw HA state: on, off, unavailable...
	Light       *huego.State // On and Bri (0-255)
	LastUpdated time.Time
}

func (e *EntityState) IsOn() bool {
	return e != nil && e.Light != nil && e.Light.On
}

// Brightness is 0 for missing entities and lights without a brightness attribute.
func (e *EntityState) Brightness() int {
	if e == nil || e.Light == nil {
		return 0
	}
	return int(e.Light.Bri)
}

// UpdatedWithin reports whether the entity changed less than window before now.
// Timestamps in the future count as recent.
func (e *EntityState) UpdatedWithin(now time.Time, window time.Duration) bool {
	if e == nil || e.LastUpdated.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(e.LastUpdated) < window
}

const (
	DomainLight    = "light"
	ServiceTurnOn  = "turn_on"
	ServiceTurnOff = "turn_off"
)

type ServiceCall struct {
	Domain     string `json:"domain"`
	Service    string `json:"service"`
	EntityID   string `json:"entity_id"`
	Brightness *int   `json:"brightness,omitempty"`
}

func TurnOn(entityID string) ServiceCall {
	return ServiceCall{Domain: DomainLight, Service: ServiceTurnOn, EntityID: entityID}
}

func TurnOff(entityID string) ServiceCall {
	return ServiceCall{Domain: DomainLight, Service: ServiceTurnOff, EntityID: entityID}
}

func SetBrightness(entityID string, brightness int) ServiceCall {
	c := TurnOn(entityID)
	c.Brightness = &brightness
	return c
}

// Data is the service_data payload sent to Home Assistant.
func (c ServiceCall) Data() map[string]interface{} {
	data := map[string]interface{}{"entity_id": c.EntityID}
	if c.Brightness != nil {
		data["brightness"] = *c.Brightness
	}
	return data
}

// DispatchReport describes what a single RC event did.
type DispatchReport struct {
	Code    Code          `json:"code"`
	Alias   string        `json:"alias"`
	Matched []string      `json:"matched"`
	Skipped []string      `json:"skipped,omitempty"`
	Calls   []ServiceCall `json:"calls"`
}
