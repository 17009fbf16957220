// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookConfig_Allows(t *testing.T) {
	tests := []struct {
		name   string
		events []string
		event  string
		want   bool
	}{
		{"exact match", []string{EventMessage}, EventMessage, true},
		{"no match", []string{EventMessage}, EventMessageAck, false},
		{"wildcard", []string{EventAll}, EventMessageAck, true},
		{"empty list", nil, EventMessage, false},
		{"prefix is not a match", []string{"message"}, "message.any", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WebhookConfig{URL: "http://x", Events: tt.events}
			assert.Equal(t, tt.want, w.Allows(tt.event))
		})
	}
}

func TestWebhookConfig_RetryPolicyDefaults(t *testing.T) {
	attempts, delay := WebhookConfig{}.RetryPolicy()
	assert.Equal(t, 15, attempts)
	assert.Equal(t, 2, delay)

	attempts, delay = WebhookConfig{Retries: &RetriesConfig{Attempts: 3}}.RetryPolicy()
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, delay)
}

func TestWebhookConfig_Validate(t *testing.T) {
	ok := WebhookConfig{URL: "https://hooks.example.com/in", Events: []string{EventMessage, EventAll}}
	require.NoError(t, ok.Validate())

	cases := map[string]WebhookConfig{
		"relative url":  {URL: "/hook", Events: []string{EventMessage}},
		"ftp url":       {URL: "ftp://host/x", Events: []string{EventMessage}},
		"unknown event": {URL: "http://host/x", Events: []string{"nope"}},
		"empty hmac":    {URL: "http://host/x", HMAC: &HMACConfig{}},
		"empty header":  {URL: "http://host/x", CustomHeaders: []CustomHeader{{Name: " "}}},
	}
	for name, w := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, w.Validate(), ErrValidation)
		})
	}
}

func TestSessionConfig_CloneIsDeep(t *testing.T) {
	orig := &SessionConfig{
		Webhooks: []WebhookConfig{{
			URL:     "http://a",
			Events:  []string{EventMessage},
			HMAC:    &HMACConfig{Key: "k"},
			Retries: &RetriesConfig{Attempts: 1, DelaySeconds: 1},
		}},
		Proxy:    &ProxyConfig{Server: "p:1"},
		Metadata: map[string]string{"a": "b"},
	}
	cp := orig.Clone()
	cp.Webhooks[0].Events[0] = EventMessageAck
	cp.Webhooks[0].HMAC.Key = "other"
	cp.Proxy.Server = "q:2"
	cp.Metadata["a"] = "c"

	assert.Equal(t, EventMessage, orig.Webhooks[0].Events[0])
	assert.Equal(t, "k", orig.Webhooks[0].HMAC.Key)
	assert.Equal(t, "p:1", orig.Proxy.Server)
	assert.Equal(t, "b", orig.Metadata["a"])
	assert.Nil(t, (*SessionConfig)(nil).Clone())
}

func TestFile_Validate(t *testing.T) {
	require.ErrorIs(t, File{}.Validate(), ErrValidation)
	require.ErrorIs(t, File{Data: "%%%"}.Validate(), ErrValidation)
	require.NoError(t, File{URL: "https://example.com/a.jpg"}.Validate())
	require.NoError(t, File{Data: "aGVsbG8="}.Validate())

	b, err := File{Data: "aGVsbG8="}.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
}

func TestMedia_NullURLSerialisesAsNull(t *testing.T) {
	b, err := json.Marshal(Media{Mimetype: "video/mp4", Filename: "a.mp4"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"mimetype":"video/mp4","filename":"a.mp4","url":null}`, string(b))
}
