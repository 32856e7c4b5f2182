package model

import "time"

type ActionKind string

const (
	ActionToggle ActionKind = "toggle"
	ActionCycle  ActionKind = "cycle"
)

// DefaultDebounce is applied when the configuration does not set debounce_ms.
const DefaultDebounce = 300 * time.Millisecond

type CommandRule struct {
	Title   string     `json:"title" yaml:"title"`
	Remotes []Code     `json:"remotes" yaml:"remotes"` // remote aliases or raw codes
	Lights  []string   `json:"lights" yaml:"lights"`   // keys of Config.Lights or entity ids
	Command ActionKind `json:"command" yaml:"command"`
	Cycles  [][]int    `json:"cycles,omitempty" yaml:"cycles,omitempty"`

	// Applied to every cycle value, variable x.
	BrightnessFormula string `json:"brightness_formula,omitempty" yaml:"brightness_formula,omitempty"`
}

type MQTTConfig struct {
	Broker   string `json:"broker" yaml:"broker"` // e.g. tcp://localhost:1883, empty disables
	Topic    string `json:"topic,omitempty" yaml:"topic,omitempty"`
	ClientID string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	QoS      byte   `json:"qos,omitempty" yaml:"qos,omitempty"`
}

type EventsConfig struct {
	Disabled  bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	EventType string `json:"event_type,omitempty" yaml:"event_type,omitempty"`
}

type HTTPConfig struct {
	Addr        string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

type Config struct {
	HassURL      string `json:"hass_url" yaml:"hass_url"`
	HassToken    string `json:"hass_token" yaml:"hass_token"`
	Retries      int    `json:"retries,omitempty" yaml:"retries,omitempty"`
	RetryDelayMS int    `json:"retry_delay_ms,omitempty" yaml:"retry_delay_ms,omitempty"`
	DebounceMS   *int   `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty"`

	Lights   map[string]string `json:"lights" yaml:"lights"`
	Remotes  map[Code]string   `json:"remotes" yaml:"remotes"`
	Commands []*CommandRule    `json:"commands" yaml:"commands"` // Ordered slice

	MQTT    MQTTConfig    `json:"mqtt" yaml:"mqtt"`
	Events  EventsConfig  `json:"events" yaml:"events"`
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// DebounceWindow returns the debounce window, DefaultDebounce when unset.
// A zero or negative value disables the guard.
func (c *Config) DebounceWindow() time.Duration {
	if c.DebounceMS == nil {
		return DefaultDebounce
	}
	if *c.DebounceMS <= 0 {
		return 0
	}
	return time.Duration(*c.DebounceMS) * time.Millisecond
}

func (c *Config) RetryDelay() time.Duration {
	if c.RetryDelayMS <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// ResolveLight maps a light key to its entity id. Unknown keys pass through.
func (c *Config) ResolveLight(key string) string {
	if id, ok := c.Lights[key]; ok {
		return id
	}
	return key
}

// ResolveRemote maps a raw code to its remote alias. Unknown codes pass through.
func (c *Config) ResolveRemote(code Code) string {
	if alias, ok := c.Remotes[code]; ok {
		return alias
	}
	return string(code)
}

// MatchCommands returns, in configuration order, every rule listing either
// the resolved alias of code or code itself.
func (c *Config) MatchCommands(code Code) []*CommandRule {
	alias := c.ResolveRemote(code)
	var matched []*CommandRule
	for _, rule := range c.Commands {
		if rule == nil || len(rule.Remotes) == 0 {
			continue
		}
		for _, r := range rule.Remotes {
			if string(r) == alias || r == code {
				matched = append(matched, rule)
				break
			}
		}
	}
	return matched
}

// Entities returns the rule's lights resolved to entity ids.
func (c *Config) Entities(rule *CommandRule) []string {
	entities := make([]string, 0, len(rule.Lights))
	for _, l := range rule.Lights {
		entities = append(entities, c.ResolveLight(l))
	}
	return entities
}
