// Package vpn shells out to the ExpressVPN CLI. The Swiss storefronts price in
// CHF and pick their locale from the egress IP, so searches should run through
// a fixed region.
package vpn

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrNotConnected  = errors.New("vpn not connected")
	ErrConnectFailed = errors.New("vpn connect failed")
)

const connectTimeout = 30 * time.Second

type Config struct {
	ActivationCode string
	AutoConnect    bool
	Region         string
}

type Client struct {
	cfg *Config
}

func New(cfg *Config) *Client {
	return &Client{cfg: cfg}
}

// Status returns the raw expressvpnctl status output.
func (c *Client) Status() (string, error) {
	out, err := exec.Command("expressvpnctl", "status").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Client) IsConnected() bool {
	status, err := c.Status()
	if err != nil {
		return false
	}
	lower := strings.ToLower(status)
	return strings.Contains(lower, "connected") && !strings.Contains(lower, "disconnected")
}

// Location extracts the connected location from the status output, empty when
// disconnected or unparseable.
func (c *Client) Location() string {
	status, err := c.Status()
	if err != nil {
		return ""
	}
	idx := strings.Index(strings.ToLower(status), "connected to ")
	if idx < 0 {
		return ""
	}
	loc := status[idx+len("connected to "):]
	if nl := strings.IndexByte(loc, '\n'); nl >= 0 {
		loc = loc[:nl]
	}
	return strings.TrimSpace(loc)
}

// EnsureConnected brings the tunnel up when AutoConnect is set, waiting up to
// connectTimeout for the CLI to report it.
func (c *Client) EnsureConnected(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}
	if !c.cfg.AutoConnect {
		return ErrNotConnected
	}

	region := c.cfg.Region
	if region == "" {
		region = "smart"
	}
	if err := exec.CommandContext(ctx, "expressvpnctl", "connect", region).Run(); err != nil {
		return ErrConnectFailed
	}

	deadline := time.Now().Add(connectTimeout)
	for time.Now().Before(deadline) {
		if c.IsConnected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return ErrConnectFailed
}

func (c *Client) Disconnect() error {
	return exec.Command("expressvpnctl", "disconnect").Run()
}
