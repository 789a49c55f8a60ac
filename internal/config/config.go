package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/campusgig/gigcore/internal/util"
)

type Config struct {
	Identity Identity `json:"identity"`
	API      API      `json:"api"`
	Relay    Relay    `json:"relay"`
	Call     Call     `json:"call"`
	Notify   Notify   `json:"notify"`
	Feed     Feed     `json:"feed"`
}

type Identity struct {
	// Session token handed off from the web login. Read from TokenFile when
	// Token is empty; the GIGCORE_TOKEN env var overrides both.
	Token     string `json:"token"`
	TokenFile string `json:"token_file"`

	// Display name announced on calls. Falls back to the token's name claim.
	Name string `json:"name"`
}

type API struct {
	// Base URL of the CampusGig REST backend, e.g. "http://localhost:5000/api".
	BaseURL    string `json:"base_url"`
	TimeoutSec int    `json:"timeout_seconds"`
}

type Relay struct {
	// WebSocket URL of the socket relay server, e.g. "ws://localhost:5000/ws".
	URL string `json:"url"`

	// Reconnect backoff: first retry after ReconnectMinSec, doubling up to
	// ReconnectMaxSec. Identity registration and room joins replay on every
	// reconnect.
	ReconnectMinSec int `json:"reconnect_min_seconds"`
	ReconnectMaxSec int `json:"reconnect_max_seconds"`

	// Interval for websocket ping frames keeping the connection alive.
	PingSec int `json:"ping_seconds"`
}

type Call struct {
	// Disable video/audio calls entirely (no capture devices opened).
	Disabled bool `json:"disabled"`

	STUNServers []string `json:"stun_servers"`

	// Capture caps. Higher resolutions increase VP8 encoding latency.
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`
}

type Notify struct {
	// How long a transient notification stays visible.
	TTLSec int `json:"ttl_seconds"`
	// How many recent notifications to keep for replay.
	Buffer int `json:"buffer"`
}

type Feed struct {
	// Chroma style used for fenced code blocks in discussion posts.
	HighlightStyle string `json:"highlight_style"`
}

func Default() Config {
	return Config{
		Identity: Identity{
			TokenFile: "data/session.token",
		},
		API: API{
			BaseURL:    "http://localhost:5000/api",
			TimeoutSec: 10,
		},
		Relay: Relay{
			URL:             "ws://localhost:5000/ws",
			ReconnectMinSec: 1,
			ReconnectMaxSec: 30,
			PingSec:         20,
		},
		Call: Call{
			Disabled:    false,
			STUNServers: []string{"stun:stun.l.google.com:19302"},
			MaxWidth:    640,
			MaxHeight:   480,
		},
		Notify: Notify{
			TTLSec: 3,
			Buffer: 50,
		},
		Feed: Feed{
			HighlightStyle: "monokai",
		},
	}
}

func (c *Config) Validate() error {
	// Identity
	if strings.TrimSpace(c.Identity.Token) == "" && strings.TrimSpace(c.Identity.TokenFile) == "" {
		return errors.New("identity.token or identity.token_file is required")
	}

	// API
	if err := validateHTTPURL(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if c.API.TimeoutSec <= 0 {
		return errors.New("api.timeout_seconds must be > 0")
	}

	// Relay
	if err := validateWSURL(c.Relay.URL); err != nil {
		return fmt.Errorf("relay.url: %w", err)
	}
	if c.Relay.ReconnectMinSec <= 0 {
		return errors.New("relay.reconnect_min_seconds must be > 0")
	}
	if c.Relay.ReconnectMaxSec < c.Relay.ReconnectMinSec {
		return errors.New("relay.reconnect_max_seconds must be >= relay.reconnect_min_seconds")
	}
	if c.Relay.PingSec <= 0 {
		return errors.New("relay.ping_seconds must be > 0")
	}

	// Call
	if !c.Call.Disabled {
		if len(c.Call.STUNServers) == 0 {
			return errors.New("call.stun_servers must not be empty when calls are enabled")
		}
		if c.Call.MaxWidth <= 0 || c.Call.MaxHeight <= 0 {
			return errors.New("call.max_width and call.max_height must be > 0")
		}
	}

	// Notify
	if c.Notify.TTLSec <= 0 {
		return errors.New("notify.ttl_seconds must be > 0")
	}
	if c.Notify.Buffer <= 0 {
		return errors.New("notify.buffer must be > 0")
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func validateWSURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New("scheme must be ws or wss")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err). The default config fails Validate until a
// token is provided, so Ensure writes it without validating.
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := util.WriteJSONFile(path, cfg); err != nil {
		return Config{}, false, fmt.Errorf("create default config: %w", err)
	}
	return cfg, true, nil
}
