// Package config loads the service configuration from a JSON file. Every
// field is optional: the Get* accessors fall back to built-in defaults, so a
// partial file only overrides what it names.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/mathviz.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config represents the root service configuration.
type Config struct {
	// HTTP server
	Listen     *string `json:"listen,omitempty"`
	BackendURL *string `json:"backend_url,omitempty"`
	// RequestTimeout is a duration string like "10s".
	RequestTimeout *string `json:"request_timeout,omitempty"`

	// Scene
	FrameRate     *float64 `json:"frame_rate,omitempty"`
	CameraFOV     *float64 `json:"camera_fov,omitempty"`
	CameraNear    *float64 `json:"camera_near,omitempty"`
	CameraFar     *float64 `json:"camera_far,omitempty"`
	DampingFactor *float64 `json:"damping_factor,omitempty"`
	ViewWidth     *int     `json:"view_width,omitempty"`
	ViewHeight    *int     `json:"view_height,omitempty"`

	// Page controls
	DefaultResolution *int  `json:"default_resolution,omitempty"`
	ShowWireframe     *bool `json:"show_wireframe,omitempty"`

	// Live streaming. An empty grpc_listen disables it.
	GRPCListen *string `json:"grpc_listen,omitempty"`
	LiveRoute  *string `json:"live_route,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with all fields set to nil.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefault loads DefaultConfigPath, searching the current directory
// and its parents. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefault() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.RequestTimeout != nil && *c.RequestTimeout != "" {
		d, err := time.ParseDuration(*c.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout '%s': %w", *c.RequestTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("request_timeout must be positive, got %s", d)
		}
	}
	if c.FrameRate != nil && (*c.FrameRate <= 0 || *c.FrameRate > 240) {
		return fmt.Errorf("frame_rate must be in (0, 240], got %f", *c.FrameRate)
	}
	if c.CameraFOV != nil && (*c.CameraFOV <= 0 || *c.CameraFOV >= 180) {
		return fmt.Errorf("camera_fov must be in (0, 180), got %f", *c.CameraFOV)
	}
	if near, far := c.GetCameraNear(), c.GetCameraFar(); near <= 0 || far <= near {
		return fmt.Errorf("camera planes must satisfy 0 < near < far, got near=%f far=%f", near, far)
	}
	if c.DampingFactor != nil && (*c.DampingFactor <= 0 || *c.DampingFactor > 1) {
		return fmt.Errorf("damping_factor must be in (0, 1], got %f", *c.DampingFactor)
	}
	if c.ViewWidth != nil && *c.ViewWidth <= 0 {
		return fmt.Errorf("view_width must be positive, got %d", *c.ViewWidth)
	}
	if c.ViewHeight != nil && *c.ViewHeight <= 0 {
		return fmt.Errorf("view_height must be positive, got %d", *c.ViewHeight)
	}
	if c.DefaultResolution != nil && (*c.DefaultResolution < 1 || *c.DefaultResolution > 200) {
		return fmt.Errorf("default_resolution must be between 1 and 200, got %d", *c.DefaultResolution)
	}
	return nil
}

// GetListen returns the HTTP listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":5173"
	}
	return *c.Listen
}

// GetBackendURL returns the computation service URL or the default.
func (c *Config) GetBackendURL() string {
	if c.BackendURL == nil || *c.BackendURL == "" {
		return "http://localhost:8080"
	}
	return *c.BackendURL
}

// GetRequestTimeout parses and returns the RequestTimeout as a time.Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	if c.RequestTimeout == nil || *c.RequestTimeout == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.RequestTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second // default on parse error
	}
	return d
}

// GetFrameRate returns the live frame rate or the default.
func (c *Config) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 60
	}
	return *c.FrameRate
}

// GetCameraFOV returns the vertical field of view in degrees or the default.
func (c *Config) GetCameraFOV() float64 {
	if c.CameraFOV == nil {
		return 75
	}
	return *c.CameraFOV
}

// GetCameraNear returns the near plane or the default.
func (c *Config) GetCameraNear() float64 {
	if c.CameraNear == nil {
		return 0.1
	}
	return *c.CameraNear
}

// GetCameraFar returns the far plane or the default.
func (c *Config) GetCameraFar() float64 {
	if c.CameraFar == nil {
		return 1000
	}
	return *c.CameraFar
}

// GetDampingFactor returns the orbit damping factor or the default.
func (c *Config) GetDampingFactor() float64 {
	if c.DampingFactor == nil {
		return 0.05
	}
	return *c.DampingFactor
}

// GetViewWidth returns the headless viewport width or the default.
func (c *Config) GetViewWidth() int {
	if c.ViewWidth == nil {
		return 800
	}
	return *c.ViewWidth
}

// GetViewHeight returns the headless viewport height or the default.
func (c *Config) GetViewHeight() int {
	if c.ViewHeight == nil {
		return 600
	}
	return *c.ViewHeight
}

// GetDefaultResolution returns the initial grid resolution or the default.
func (c *Config) GetDefaultResolution() int {
	if c.DefaultResolution == nil {
		return 50
	}
	return *c.DefaultResolution
}

// GetShowWireframe returns the initial wireframe toggle or the default.
func (c *Config) GetShowWireframe() bool {
	if c.ShowWireframe == nil {
		return true
	}
	return *c.ShowWireframe
}

// GetGRPCListen returns the stream listen address. Empty means disabled.
func (c *Config) GetGRPCListen() string {
	if c.GRPCListen == nil {
		return ""
	}
	return *c.GRPCListen
}

// GetLiveRoute returns the route streamed over gRPC or the default.
func (c *Config) GetLiveRoute() string {
	if c.LiveRoute == nil || *c.LiveRoute == "" {
		return "/gradient-descent"
	}
	return *c.LiveRoute
}
