package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := Empty()

	if got := cfg.GetListen(); got != ":5173" {
		t.Errorf("Expected listen :5173, got %q", got)
	}
	if got := cfg.GetBackendURL(); got != "http://localhost:8080" {
		t.Errorf("Expected backend http://localhost:8080, got %q", got)
	}
	if got := cfg.GetRequestTimeout(); got != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", got)
	}
	if got := cfg.GetFrameRate(); got != 60 {
		t.Errorf("Expected frame rate 60, got %f", got)
	}
	if got := cfg.GetCameraFOV(); got != 75 {
		t.Errorf("Expected fov 75, got %f", got)
	}
	if cfg.GetCameraNear() != 0.1 || cfg.GetCameraFar() != 1000 {
		t.Errorf("Expected planes 0.1/1000, got %f/%f", cfg.GetCameraNear(), cfg.GetCameraFar())
	}
	if got := cfg.GetDampingFactor(); got != 0.05 {
		t.Errorf("Expected damping 0.05, got %f", got)
	}
	if cfg.GetViewWidth() != 800 || cfg.GetViewHeight() != 600 {
		t.Errorf("Expected 800x600, got %dx%d", cfg.GetViewWidth(), cfg.GetViewHeight())
	}
	if got := cfg.GetDefaultResolution(); got != 50 {
		t.Errorf("Expected resolution 50, got %d", got)
	}
	if !cfg.GetShowWireframe() {
		t.Error("Expected wireframe on by default")
	}
	if got := cfg.GetGRPCListen(); got != "" {
		t.Errorf("Expected streaming disabled, got %q", got)
	}
	if got := cfg.GetLiveRoute(); got != "/gradient-descent" {
		t.Errorf("Expected live route /gradient-descent, got %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Empty config should validate: %v", err)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.json")
	content := `{"listen": ":9000", "request_timeout": "2s", "default_resolution": 20, "show_wireframe": false}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.GetListen(); got != ":9000" {
		t.Errorf("Expected listen :9000, got %q", got)
	}
	if got := cfg.GetRequestTimeout(); got != 2*time.Second {
		t.Errorf("Expected 2s, got %v", got)
	}
	if got := cfg.GetDefaultResolution(); got != 20 {
		t.Errorf("Expected 20, got %d", got)
	}
	if cfg.GetShowWireframe() {
		t.Error("Expected wireframe off")
	}
	// Unset fields keep defaults.
	if got := cfg.GetCameraFOV(); got != 75 {
		t.Errorf("Expected default fov 75, got %f", got)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	yaml := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(yaml, []byte("listen: :1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(yaml); err == nil || !strings.Contains(err.Error(), ".json") {
		t.Errorf("Expected extension error, got %v", err)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	big := filepath.Join(dir, "big.json")
	if err := os.WriteFile(big, make([]byte, maxFileSize+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(broken); err == nil {
		t.Error("Expected parse error")
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"default_resolution": 500}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(invalid); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"empty", Empty(), false},
		{"bad timeout", &Config{RequestTimeout: ptrString("soon")}, true},
		{"negative timeout", &Config{RequestTimeout: ptrString("-1s")}, true},
		{"zero frame rate", &Config{FrameRate: ptrFloat64(0)}, true},
		{"fov too wide", &Config{CameraFOV: ptrFloat64(180)}, true},
		{"far before near", &Config{CameraNear: ptrFloat64(10), CameraFar: ptrFloat64(5)}, true},
		{"zero near", &Config{CameraNear: ptrFloat64(0)}, true},
		{"damping above one", &Config{DampingFactor: ptrFloat64(1.5)}, true},
		{"zero width", &Config{ViewWidth: ptrInt(0)}, true},
		{"zero height", &Config{ViewHeight: ptrInt(0)}, true},
		{"resolution zero", &Config{DefaultResolution: ptrInt(0)}, true},
		{"resolution max", &Config{DefaultResolution: ptrInt(200)}, false},
		{"wireframe", &Config{ShowWireframe: ptrBool(false)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetRequestTimeoutInvalidFallsBack(t *testing.T) {
	cfg := &Config{RequestTimeout: ptrString("nonsense")}
	if got := cfg.GetRequestTimeout(); got != 10*time.Second {
		t.Errorf("Expected fallback 10s, got %v", got)
	}
}

func TestMustLoadDefault(t *testing.T) {
	cfg := MustLoadDefault()
	if got := cfg.GetListen(); got != ":5173" {
		t.Errorf("Expected defaults file listen :5173, got %q", got)
	}
	if got := cfg.GetDefaultResolution(); got != 50 {
		t.Errorf("Expected defaults file resolution 50, got %d", got)
	}
}
