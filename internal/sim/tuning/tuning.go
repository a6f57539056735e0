package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	ProximityR      float64 `yaml:"proximity_r"`
	OfferTTLMs      int64   `yaml:"offer_ttl_ms"`
	DefenseWindowMs int64   `yaml:"defense_window_ms"`

	RateLimits RateLimits `yaml:"rate_limits"`

	StarterItems map[string]int `yaml:"starter_items"`
}

type RateLimits struct {
	OfferWindowMs int64 `yaml:"offer_window_ms"`
	OfferMax      int   `yaml:"offer_max"` // 0 disables the limit
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		ProximityR:      220.0,
		OfferTTLMs:      5000,
		DefenseWindowMs: 1000,
		RateLimits: RateLimits{
			OfferWindowMs: 10000,
			OfferMax:      0,
		},
		StarterItems: map[string]int{"wood": 10, "rock": 10},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.ProximityR <= 0 {
		t.ProximityR = Defaults().ProximityR
	}
	if t.OfferTTLMs <= 0 {
		t.OfferTTLMs = Defaults().OfferTTLMs
	}
	if t.DefenseWindowMs <= 0 {
		t.DefenseWindowMs = Defaults().DefenseWindowMs
	}
	return t, nil
}
