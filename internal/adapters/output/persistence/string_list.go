package persistence

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
	"rc-lights/internal/domain/model"
)

// stringOrList accepts a single value or a list of values. Numbers are kept
// in their decimal form.
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	var list []model.Code
	if err := json.Unmarshal(data, &list); err == nil {
		*s = codesToStrings(list)
		return nil
	}
	var one model.Code
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = codesToStrings([]model.Code{one})
	return nil
}

func (s *stringOrList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = codesToStrings([]model.Code{model.Code(value.Value)})
		return nil
	case yaml.SequenceNode:
		var list []model.Code
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = codesToStrings(list)
		return nil
	}
	return fmt.Errorf("expected a value or a list at line %d", value.Line)
}

func codesToStrings(codes []model.Code) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c != "" {
			out = append(out, string(c))
		}
	}
	return out
}
