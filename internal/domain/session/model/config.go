// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Webhook retry defaults.
const (
	DefaultRetryAttempts     = 15
	DefaultRetryDelaySeconds = 2
)

// SessionConfig is the persisted, user-supplied configuration of a session.
type SessionConfig struct {
	Webhooks []WebhookConfig `json:"webhooks,omitempty" yaml:"webhooks,omitempty"`
	Proxy    *ProxyConfig    `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	// Engine carries engine-specific options; the core never interprets it.
	Engine   map[string]any    `json:"engine,omitempty" yaml:"engine,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ProxyConfig describes an outbound proxy for the engine connection.
type ProxyConfig struct {
	Server   string `json:"server" yaml:"server"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// WebhookConfig is one webhook subscription.
type WebhookConfig struct {
	URL           string         `json:"url" yaml:"url"`
	Events        []string       `json:"events" yaml:"events"`
	HMAC          *HMACConfig    `json:"hmac,omitempty" yaml:"hmac,omitempty"`
	Retries       *RetriesConfig `json:"retries,omitempty" yaml:"retries,omitempty"`
	CustomHeaders []CustomHeader `json:"customHeaders,omitempty" yaml:"customHeaders,omitempty"`
}

// HMACConfig enables payload signing.
type HMACConfig struct {
	Key string `json:"key" yaml:"key"`
}

// RetriesConfig is a fixed-delay retry policy.
type RetriesConfig struct {
	Attempts     int `json:"attempts" yaml:"attempts"`
	DelaySeconds int `json:"delaySeconds" yaml:"delaySeconds"`
}

// CustomHeader is an extra request header sent with every delivery.
type CustomHeader struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Allows reports whether the subscription wants the given event.
func (w WebhookConfig) Allows(event string) bool {
	for _, e := range w.Events {
		if e == EventAll || e == event {
			return true
		}
	}
	return false
}

// RetryPolicy returns attempts and delay with defaults applied to unset values.
func (w WebhookConfig) RetryPolicy() (attempts, delaySeconds int) {
	attempts, delaySeconds = DefaultRetryAttempts, DefaultRetryDelaySeconds
	if w.Retries != nil {
		if w.Retries.Attempts > 0 {
			attempts = w.Retries.Attempts
		}
		if w.Retries.DelaySeconds > 0 {
			delaySeconds = w.Retries.DelaySeconds
		}
	}
	return attempts, delaySeconds
}

// Validate checks the subscription before it is accepted.
func (w WebhookConfig) Validate() error {
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: webhook url %q must be an absolute http(s) url", ErrValidation, w.URL)
	}
	for _, e := range w.Events {
		if e != EventAll && !slices.Contains(KnownEvents, e) {
			return fmt.Errorf("%w: unknown webhook event %q", ErrValidation, e)
		}
	}
	if w.Retries != nil && (w.Retries.Attempts < 0 || w.Retries.DelaySeconds < 0) {
		return fmt.Errorf("%w: webhook retries must not be negative", ErrValidation)
	}
	if w.HMAC != nil && w.HMAC.Key == "" {
		return fmt.Errorf("%w: webhook hmac key is empty", ErrValidation)
	}
	for _, h := range w.CustomHeaders {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("%w: custom header name is empty", ErrValidation)
		}
	}
	return nil
}

// Validate checks every nested section of the config.
func (c *SessionConfig) Validate() error {
	if c == nil {
		return nil
	}
	for i, w := range c.Webhooks {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("webhooks[%d]: %w", i, err)
		}
	}
	if c.Proxy != nil && strings.TrimSpace(c.Proxy.Server) == "" {
		return fmt.Errorf("%w: proxy server is empty", ErrValidation)
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a session's config.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	out := &SessionConfig{}
	if c.Webhooks != nil {
		out.Webhooks = make([]WebhookConfig, len(c.Webhooks))
		for i, w := range c.Webhooks {
			out.Webhooks[i] = w.Clone()
		}
	}
	if c.Proxy != nil {
		p := *c.Proxy
		out.Proxy = &p
	}
	if c.Engine != nil {
		out.Engine = make(map[string]any, len(c.Engine))
		for k, v := range c.Engine {
			out.Engine[k] = v
		}
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the subscription.
func (w WebhookConfig) Clone() WebhookConfig {
	out := w
	out.Events = slices.Clone(w.Events)
	out.CustomHeaders = slices.Clone(w.CustomHeaders)
	if w.HMAC != nil {
		h := *w.HMAC
		out.HMAC = &h
	}
	if w.Retries != nil {
		r := *w.Retries
		out.Retries = &r
	}
	return out
}

// MeInfo identifies the account behind a session.
type MeInfo struct {
	ID       string `json:"id"`
	PushName string `json:"pushName,omitempty"`
}

// SessionInfo is the runtime view of a session returned to API callers.
type SessionInfo struct {
	Name   string         `json:"name"`
	Status Status         `json:"status"`
	Config *SessionConfig `json:"config"`
	Me     *MeInfo        `json:"me"`
}
