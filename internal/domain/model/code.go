package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Code is an RC code in its string form. Numeric codes from JSON, YAML or
// event payloads are normalized to their decimal representation.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid rc code %s: %w", data, err)
	}
	*c = Code(n.String())
	return nil
}

func (c *Code) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid rc code at line %d", value.Line)
	}
	*c = Code(strings.TrimSpace(value.Value))
	return nil
}

// CodeFrom converts an event value to a Code. It returns false for nil,
// empty strings and unsupported types.
func CodeFrom(v any) (Code, bool) {
	var s string
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s = strings.TrimSpace(val)
	case Code:
		s = strings.TrimSpace(string(val))
	case json.Number:
		s = val.String()
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case uint64:
		s = strconv.FormatUint(val, 10)
	default:
		return "", false
	}
	if s == "" {
		return "", false
	}
	return Code(s), true
}

// CodeFromEvent reads the code field of an event, falling back to rc.
func CodeFromEvent(data map[string]any) (Code, bool) {
	if c, ok := CodeFrom(data["code"]); ok {
		return c, true
	}
	return CodeFrom(data["rc"])
}
