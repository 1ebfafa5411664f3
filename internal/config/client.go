package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Default relayctl values.
const (
	DefaultRelayURL = "ws://localhost:3000/ws"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
)

// Client holds relayctl configuration.
type Client struct {
	// RelayURL is the websocket endpoint of the relay.
	RelayURL string

	// Codec must match the server's WIRE_CODEC.
	Codec string

	// ICE servers for the probe peer connection
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// AdminToken authorizes room closing on the relay.
	AdminToken string
}

// Options for loading config with CLI flag overrides
type Options struct {
	RelayURL   string
	Codec      string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	AdminToken string
}

// LoadClient reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func LoadClient(opts Options) (*Client, error) {
	cfg := &Client{
		RelayURL:   pick(opts.RelayURL, "RELAY_URL", DefaultRelayURL),
		Codec:      strings.ToLower(pick(opts.Codec, "RELAY_CODEC", DefaultCodec)),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
		AdminToken: pick(opts.AdminToken, "ADMIN_TOKEN", ""),
	}

	u, err := url.Parse(cfg.RelayURL)
	if err != nil {
		return nil, fmt.Errorf("%w: relay url: %v", ErrInvalid, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: relay url scheme must be ws or wss, got %q", ErrInvalid, u.Scheme)
	}
	return cfg, nil
}

// HTTPBase returns the admin HTTP base URL derived from the websocket URL.
func (c *Client) HTTPBase() string {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path = strings.TrimSuffix(u.Path, "/ws")
	u.RawQuery = ""
	return strings.TrimSuffix(u.String(), "/")
}

// ICEServers returns STUN and TURN urls, TURN only when configured.
func (c *Client) ICEServers() (stun []string, turn []string) {
	if c.STUNServer != "" {
		stun = []string{c.STUNServer}
	}
	if c.TURNServer != "" {
		turn = []string{
			fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
			fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		}
	}
	return stun, turn
}

// pick resolves flag > env > default.
func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}
