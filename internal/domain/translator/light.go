package translator

import (
	"time"

	"github.com/amimof/huego"
	"rc-lights/internal/domain/model"
)

// ToEntityState converts a Home Assistant state object, as returned by
// /api/states/<entity_id>, into an EntityState.
func ToEntityState(haState map[string]interface{}) *model.EntityState {
	entityID, _ := haState["entity_id"].(string)
	val, _ := haState["state"].(string)

	light := &huego.State{On: val == model.StateOn}
	if attr, ok := haState["attributes"].(map[string]interface{}); ok {
		// brightness is null while the light is off
		if bri, ok := attr["brightness"].(float64); ok {
			light.Bri = clampBrightness(bri)
		}
	}
	light.Reachable = val != "unavailable"

	return &model.EntityState{
		EntityID:    entityID,
		State:       val,
		Light:       light,
		LastUpdated: parseTime(haState["last_updated"]),
	}
}

func clampBrightness(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func parseTime(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
