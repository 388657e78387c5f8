package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := `profiles:
  - symbol: BTCUSDT
    timeframe: 1h
    interval_seconds: 60
    buy_threshold: 0.65
    sell_threshold: 0.6
    max_decisions: 500
  - symbol: ETHUSDT
    timeframe: 15m
    interval_seconds: 30
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("len = %d, want 2", len(profiles))
	}

	btc := profiles["BTCUSDT"]
	if btc.BuyThreshold != 0.65 || btc.IntervalSeconds != 60 || btc.MaxDecisions != 500 {
		t.Errorf("btc profile = %+v", btc)
	}
	if eth := profiles["ETHUSDT"]; eth.Timeframe != "15m" || eth.IntervalSeconds != 30 {
		t.Errorf("eth profile = %+v", eth)
	}
}

func TestLoadProfilesEmptyPath(t *testing.T) {
	profiles, err := LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("len = %d, want 0", len(profiles))
	}
}

func TestLoadProfilesMissingSymbol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  - timeframe: 1h\n"), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if _, err := LoadProfiles(path); err == nil {
		t.Fatal("expected error for entry without symbol")
	}
}
