// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/metrics"
	"github.com/ManuGH/chatgate/internal/platform/tasks"
)

// EventSource is the session side of the conductor: a named stream of events.
type EventSource interface {
	Name() string
	Subscribe(fn func(model.Event))
}

type subscription struct {
	cfg    model.WebhookConfig
	sender *Sender
}

// Conductor fans one session's events out to its subscriptions. Every
// delivery runs in its own goroutine tracked by the shared task group, so the
// event source never waits on HTTP.
type Conductor struct {
	client *http.Client
	group  *tasks.Group
	logger zerolog.Logger

	mu    sync.RWMutex
	subs  []subscription
	bound bool
}

// NewConductor returns an unbound conductor. Deliveries are tracked by group
// so shutdown can wait for them.
func NewConductor(client *http.Client, group *tasks.Group, logger zerolog.Logger) *Conductor {
	return &Conductor{client: client, group: group, logger: logger}
}

// Configure builds one sender per hook and subscribes to src. Calling it
// again replaces the senders without subscribing twice.
func (c *Conductor) Configure(src EventSource, hooks []model.WebhookConfig) {
	subs := make([]subscription, 0, len(hooks))
	for _, hook := range hooks {
		if hook.URL == "" {
			continue
		}
		if len(hook.Events) == 0 {
			c.logger.Warn().Str(xglog.FieldWebhookURL, hook.URL).
				Msg("webhook has no events configured, it will not receive anything")
		}
		subs = append(subs, subscription{
			cfg:    hook.Clone(),
			sender: NewSender(hook, c.client, c.logger),
		})
		c.logger.Info().Str(xglog.FieldSession, src.Name()).Str(xglog.FieldWebhookURL, hook.URL).
			Strs("events", hook.Events).Msg("webhook configured")
	}

	c.mu.Lock()
	c.subs = subs
	subscribe := !c.bound
	c.bound = true
	c.mu.Unlock()

	if subscribe {
		src.Subscribe(c.Handle)
	}
}

// Handle dispatches e to every matching subscription and returns
// immediately.
func (c *Conductor) Handle(e model.Event) {
	c.mu.RLock()
	var senders []*Sender
	for _, sub := range c.subs {
		if sub.cfg.Allows(e.Event) {
			senders = append(senders, sub.sender)
		}
	}
	c.mu.RUnlock()

	if len(senders) == 0 {
		metrics.IncWebhookUnsubscribed()
		return
	}

	body, err := json.Marshal(e)
	if err != nil {
		c.logger.Error().Err(err).Str(xglog.FieldEventType, e.Event).Msg("failed to encode webhook event")
		return
	}

	for _, sender := range senders {
		sender := sender
		// Deliveries outlive the session; stopping it must not cancel them.
		if !c.group.Go(func() { sender.Send(context.Background(), e.Session, e.Event, body) }) {
			c.logger.Warn().Str(xglog.FieldWebhookURL, sender.URL()).Str(xglog.FieldEventType, e.Event).
				Msg("shutting down, webhook delivery dropped")
		}
	}
}

// URLs lists the configured endpoints in order.
func (c *Conductor) URLs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	urls := make([]string, 0, len(c.subs))
	for _, sub := range c.subs {
		urls = append(urls, sub.cfg.URL)
	}
	return urls
}
