package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	opts := cfg.Convert.SerializeOptions()
	if !opts.PreserveWikiLinks || !opts.IncludeMetadata {
		t.Errorf("default serialize options = %+v", opts)
	}
	if cfg.Export.Workers != 4 {
		t.Errorf("workers = %d", cfg.Export.Workers)
	}
}

func TestConvertConfig_DetectorMode(t *testing.T) {
	cfg := ConvertConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default: %v", err)
	}
	if cfg.DetectorMode != "aggressive" {
		t.Errorf("mode = %q", cfg.DetectorMode)
	}

	cfg = ConvertConfig{DetectorMode: "conservative", MinLength: 10}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("conservative should pass: %v", err)
	}
	if len(cfg.EngineOptions()) != 3 {
		t.Error("expected three engine options")
	}

	cfg = ConvertConfig{DetectorMode: "eager"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown detector mode should fail")
	}
	cfg = ConvertConfig{MinLength: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("negative min length should fail")
	}
}

func TestExportConfig_Workers(t *testing.T) {
	for _, n := range []int{0, 65} {
		cfg := ExportConfig{Workers: n}
		if err := cfg.Validate(); err == nil {
			t.Errorf("workers %d should fail", n)
		}
	}
	cfg := ExportConfig{Workers: 8}
	if err := cfg.Validate(); err != nil {
		t.Errorf("workers 8 should pass: %v", err)
	}
}

func TestFullConfig_ConvertValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Convert.DetectorMode = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch convert error")
	}
}
