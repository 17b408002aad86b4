// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package client is a typed HTTP client for a running netfix server. The
// CLI uses it to check server health and to hand fix runs to a daemon
// instead of executing them in-process.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stratastor/netfix/internal/constants"
	"github.com/stratastor/netfix/pkg/netfix"
	"github.com/stratastor/netfix/pkg/netfix/api"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryCount    = 3
	defaultRetryWaitTime = 2 * time.Second
	defaultRetryMaxWait  = 10 * time.Second
	defaultUserAgent     = "Netfix-Client"
)

// Config holds connection settings for one server.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	RetryCount       int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration
	Debug            bool
}

// NewConfig returns a Config with sensible defaults for a local server.
func NewConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		Timeout:          defaultTimeout,
		RetryCount:       defaultRetryCount,
		RetryWaitTime:    defaultRetryWaitTime,
		RetryMaxWaitTime: defaultRetryMaxWait,
	}
}

// Client wraps a resty client with the netfix API surface.
type Client struct {
	rc *resty.Client
}

func New(cfg Config) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.RetryMaxWaitTime).
		SetHeader("User-Agent", defaultUserAgent+"/"+constants.Version)

	if cfg.Debug {
		rc.SetDebug(true)
	} else {
		rc.SetLogger(noopLogger{})
	}
	return &Client{rc: rc}
}

// envelope mirrors api.APIResponse with a raw result so callers decode into
// their own types.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *api.APIError   `json:"error,omitempty"`
}

// Health checks the server liveness endpoint.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.rc.R().SetContext(ctx).Get("/health")
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("unhealthy: status %s, response %s", resp.Status(), resp.String())
	}
	return resp.String(), nil
}

// RunFix submits a fix run to the server and returns its report. The root
// must be a path visible to the server process.
func (c *Client) RunFix(ctx context.Context, opts netfix.Options) (*netfix.Report, error) {
	body := map[string]interface{}{
		"root":          opts.Root,
		"level":         opts.Level.String(),
		"workers":       opts.Workers,
		"dry_run":       opts.DryRun,
		"backup_suffix": opts.BackupSuffix,
	}
	var report netfix.Report
	if err := c.post(ctx, constants.APINetfix+"/run", body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// DiscoverOnly lists the configuration files the server would fix.
func (c *Client) DiscoverOnly(ctx context.Context, root string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, constants.APINetfix+"/discover", map[string]string{"root": root}, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("malformed server response (status %s): %w", resp.Status(), err)
	}
	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("server error [%s-%d]: %s: %s",
				env.Error.Domain, env.Error.Code, env.Error.Message, env.Error.Details)
		}
		return fmt.Errorf("server error: status %d", resp.StatusCode())
	}
	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("decoding result: %w", err)
		}
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return nil
}

// noopLogger suppresses resty's own logging; request logging happens on the
// server side.
type noopLogger struct{}

func (noopLogger) Errorf(format string, v ...interface{}) {}
func (noopLogger) Warnf(format string, v ...interface{})  {}
func (noopLogger) Debugf(format string, v ...interface{}) {}
