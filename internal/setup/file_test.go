package setup

import (
	"strings"
	"testing"
)

const validSetupsYAML = `
setups:
  - id: living-room
    name: Living room
    lights:
      - living_room_ceiling
      - living_room_floor
    min_brightness: 10
    max_brightness: 100
    min_kelvin: 2500
    max_kelvin: 5000
    update_interval: 60
    transition: 2
  - id: bedroom
    lights:
      - bedroom_lamp
`

func TestLoadFromBytes(t *testing.T) {
	configs, err := LoadFromBytes([]byte(validSetupsYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if len(configs) != 2 {
		t.Fatalf("got %d setups, want 2", len(configs))
	}

	living := configs[0]
	if living.ID != "living-room" || living.Name != "Living room" {
		t.Errorf("unexpected first setup: %+v", living)
	}
	if len(living.Lights) != 2 {
		t.Errorf("got %d lights, want 2", len(living.Lights))
	}
	if living.TransitionSec != 2 {
		t.Errorf("transition = %f, want 2", living.TransitionSec)
	}

	// Second setup relies entirely on defaults applied later by New
	bedroom := configs[1]
	if bedroom.MinKelvin != 0 || bedroom.UpdateIntervalSec != 0 {
		t.Errorf("expected raw zero values before normalization, got %+v", bedroom)
	}
}

func TestLoadFromBytesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "setups: []", "no setups"},
		{"missing id", "setups:\n  - lights: [a]", "id is required"},
		{"duplicate id", "setups:\n  - id: x\n    lights: [a]\n  - id: x\n    lights: [b]", "duplicate id"},
		{"inverted brightness", "setups:\n  - id: x\n    lights: [a]\n    min_brightness: 80\n    max_brightness: 20", "min_brightness exceeds"},
		{"inverted kelvin", "setups:\n  - id: x\n    lights: [a]\n    min_kelvin: 5000\n    max_kelvin: 2500", "min_kelvin exceeds"},
		{"malformed yaml", "setups: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/setups.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
