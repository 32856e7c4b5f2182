package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"rc-lights/internal/domain/model"
)

// ConfigRepository stores the configuration in a single file. Files ending
// in .yaml or .yml are YAML, anything else is JSON.
type ConfigRepository struct {
	filepath string
	mu       sync.RWMutex
}

// legacyRemote is the remote format of the MQTT daemon:
// {"title": "...", "rc": "1234567" | ["1", "2"], "toggle": "Dev" | ["Dev1", "Dev2"]}
type legacyRemote struct {
	Title  string       `json:"title" yaml:"title"`
	RC     stringOrList `json:"rc" yaml:"rc"`
	Toggle stringOrList `json:"toggle" yaml:"toggle"`
}

type legacyConfig struct {
	HassURL   string         `json:"hass_url" yaml:"hass_url"`
	HassToken string         `json:"hass_token" yaml:"hass_token"`
	Remotes   []legacyRemote `json:"remotes" yaml:"remotes"`
}

func NewConfigRepository(filepath string) *ConfigRepository {
	return &ConfigRepository{filepath: filepath}
}

func (r *ConfigRepository) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(r.filepath))
	return ext == ".yaml" || ext == ".yml"
}

func (r *ConfigRepository) Get(ctx context.Context) (*model.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyConfig(), nil
		}
		return nil, err
	}

	if r.isLegacy(data) {
		return r.migrate(data)
	}

	var cfg model.Config
	if err := r.unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	normalize(&cfg)
	return &cfg, nil
}

func (r *ConfigRepository) unmarshal(data []byte, v interface{}) error {
	if r.isYAML() {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// isLegacy reports whether remotes is a list rather than a code -> alias map.
func (r *ConfigRepository) isLegacy(data []byte) bool {
	if r.isYAML() {
		var probe struct {
			Remotes yaml.Node `yaml:"remotes"`
		}
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return false
		}
		return probe.Remotes.Kind == yaml.SequenceNode
	}
	var probe struct {
		Remotes json.RawMessage `json:"remotes"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return bytes.HasPrefix(bytes.TrimSpace(probe.Remotes), []byte("["))
}

// migrate turns daemon-style toggle remotes into toggle command rules.
// Remotes without toggle targets (custom functions) cannot be expressed
// and are dropped.
func (r *ConfigRepository) migrate(data []byte) (*model.Config, error) {
	var legacy legacyConfig
	if err := r.unmarshal(data, &legacy); err != nil {
		return nil, err
	}

	cfg := emptyConfig()
	cfg.HassURL = legacy.HassURL
	cfg.HassToken = legacy.HassToken

	for _, rem := range legacy.Remotes {
		if len(rem.Toggle) == 0 || len(rem.RC) == 0 {
			continue
		}
		rule := &model.CommandRule{
			Title:   rem.Title,
			Lights:  append([]string(nil), rem.Toggle...),
			Command: model.ActionToggle,
		}
		for _, code := range rem.RC {
			rule.Remotes = append(rule.Remotes, model.Code(code))
		}
		cfg.Commands = append(cfg.Commands, rule)
	}
	return cfg, nil
}

func (r *ConfigRepository) Save(ctx context.Context, config *model.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if r.isYAML() {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(r.filepath, data, 0600)
}

func emptyConfig() *model.Config {
	return &model.Config{
		Lights:   map[string]string{},
		Remotes:  map[model.Code]string{},
		Commands: []*model.CommandRule{},
	}
}

// normalize replaces missing collections with empty ones.
func normalize(cfg *model.Config) {
	if cfg.Lights == nil {
		cfg.Lights = map[string]string{}
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[model.Code]string{}
	}
	if cfg.Commands == nil {
		cfg.Commands = []*model.CommandRule{}
	}
}
