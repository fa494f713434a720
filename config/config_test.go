package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ShowTimezone != "America/Denver" {
		t.Errorf("Expected default timezone America/Denver, got %s", cfg.ShowTimezone)
	}
	if cfg.VoteLength != 25 || cfg.ResultLength != 8 {
		t.Errorf("Expected 25s/8s windows, got %d/%d", cfg.VoteLength, cfg.ResultLength)
	}
	if cfg.VoteOptions != 3 || cfg.RandomizeFrom != 6 {
		t.Errorf("Expected 3 options from top 6, got %d/%d", cfg.VoteOptions, cfg.RandomizeFrom)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("VOTE_LENGTH_SECONDS", "40")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("Expected port override 9999, got %s", cfg.Port)
	}
	if cfg.VoteLength != 40 {
		t.Errorf("Expected vote length override 40, got %d", cfg.VoteLength)
	}
}

func TestIsAdminToken(t *testing.T) {
	cfg := &Config{AdminToken: "secret"}
	if !cfg.IsAdminToken("secret") {
		t.Error("Expected matching token to be accepted")
	}
	if cfg.IsAdminToken("wrong") {
		t.Error("Expected non-matching token to be rejected")
	}

	cfg = &Config{AdminToken: ""}
	if cfg.IsAdminToken("") {
		t.Error("Expected empty configured token to never match")
	}
}
