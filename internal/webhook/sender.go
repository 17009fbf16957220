// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package webhook delivers session events to subscribed HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/metrics"
	"github.com/ManuGH/chatgate/internal/telemetry"
)

const (
	HeaderHMAC          = "X-Webhook-Hmac"
	HeaderHMACAlgorithm = "X-Webhook-Hmac-Algorithm"
	HMACAlgorithm       = "sha512"

	maxLoggedBody = 4 << 10
)

// Delivery outcomes, also used as metric labels.
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

var tracer = telemetry.Tracer("chatgate/webhook")

// Sender delivers serialized events to one URL with a fixed-delay retry.
type Sender struct {
	url      string
	attempts int
	delay    time.Duration
	headers  []model.CustomHeader
	hmacKey  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewSender builds a sender for one subscription.
func NewSender(cfg model.WebhookConfig, client *http.Client, logger zerolog.Logger) *Sender {
	attempts, delaySeconds := cfg.RetryPolicy()
	s := &Sender{
		url:      cfg.URL,
		attempts: attempts,
		delay:    time.Duration(delaySeconds) * time.Second,
		headers:  append([]model.CustomHeader(nil), cfg.CustomHeaders...),
		client:   client,
		logger:   logger.With().Str(xglog.FieldWebhookURL, cfg.URL).Logger(),
	}
	if cfg.HMAC != nil {
		s.hmacKey = cfg.HMAC.Key
	}
	return s
}

func (s *Sender) URL() string { return s.url }

// Sign returns hex(HMAC-SHA512(key, body)).
func Sign(key string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers builds the request headers: content type, then custom headers,
// then the signature. The signature is applied last so custom headers
// cannot replace it.
func (s *Sender) Headers(body []byte) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	for _, ch := range s.headers {
		h.Set(ch.Name, ch.Value)
	}
	if s.hmacKey != "" {
		h.Set(HeaderHMAC, Sign(s.hmacKey, body))
		h.Set(HeaderHMACAlgorithm, HMACAlgorithm)
	}
	return h
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("webhook responded with status %d", e.code) }

func retryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

// Send posts body until it is accepted, permanently rejected, or attempts
// run out. Failures are logged and recorded, never returned.
func (s *Sender) Send(ctx context.Context, session, event string, body []byte) {
	ctx, span := tracer.Start(ctx, "webhook.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.WebhookAttributes(session, event, s.url)...))
	defer span.End()

	logger := s.logger.With().Str(xglog.FieldSession, session).Str(xglog.FieldEventType, event).Logger()
	started := time.Now()
	attempt := 0

	operation := func() (int, error) {
		attempt++
		metrics.IncWebhookAttempt()

		code, respBody, err := s.post(ctx, body)
		if err != nil {
			return 0, err
		}
		if retryable(code) {
			logger.Debug().Int(xglog.FieldAttempt, attempt).Int(xglog.FieldStatusCode, code).
				Str("body", respBody).Msg("webhook attempt failed")
			return code, &statusError{code: code}
		}
		if code >= 400 {
			return code, backoff.Permanent(&statusError{code: code})
		}
		logger.Debug().Int(xglog.FieldStatusCode, code).Str("body", respBody).Msg("webhook response")
		return code, nil
	}

	notify := func(err error, next time.Duration) {
		logger.Warn().Err(err).Int(xglog.FieldAttempt, attempt).Dur("retry_in", next).Msg("webhook attempt failed, retrying")
	}

	code, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.delay)),
		backoff.WithMaxTries(uint(max(s.attempts, 1))),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)

	outcome := OutcomeDelivered
	var se *statusError
	switch {
	case err == nil:
	case errors.As(err, &se) && !retryable(se.code):
		outcome = OutcomeRejected
	default:
		outcome = OutcomeFailed
	}

	elapsed := time.Since(started)
	metrics.ObserveWebhookDelivery(outcome, elapsed)
	span.SetAttributes(telemetry.WebhookResultAttributes(outcome, attempt)...)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "webhook.failed").
			Str("outcome", outcome).
			Int(xglog.FieldAttempt, attempt).
			Dur("elapsed", elapsed).
			Msg("webhook delivery failed")
		return
	}
	logger.Info().
		Str(xglog.FieldEvent, "webhook.delivered").
		Int(xglog.FieldStatusCode, code).
		Int(xglog.FieldAttempt, attempt).
		Dur("elapsed", elapsed).
		Msg("webhook delivered")
}

func (s *Sender) post(ctx context.Context, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", backoff.Permanent(err)
	}
	req.Header = s.Headers(body)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	return resp.StatusCode, string(respBody), nil
}
