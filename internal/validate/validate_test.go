// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid http", "http://localhost:3000/api/files/", false},
		{"valid https", "https://hooks.example.com/in", false},
		{"empty", "", true},
		{"no host", "http://", true},
		{"bad scheme", "ftp://example.com", true},
		{"relative", "/api/files", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("Field", tt.value, []string{"http", "https"})
			assert.Equal(t, tt.wantErr, !v.IsValid())
		})
	}
}

func TestListenAddr(t *testing.T) {
	for addr, ok := range map[string]bool{
		":3000":          true,
		"127.0.0.1:9090": true,
		"[::1]:80":       true,
		"3000":           false,
		"localhost:":     false,
		"":               false,
	} {
		v := New()
		v.ListenAddr("Listen", addr)
		assert.Equal(t, ok, v.IsValid(), addr)
	}
}

func TestNumericChecks(t *testing.T) {
	v := New()
	v.Range("R", 5, 1, 10)
	v.Positive("P", 1)
	v.NonNegative("N", 0)
	v.FloatRange("F", 0.5, 0, 1)
	v.PositiveDuration("D", time.Second)
	require.True(t, v.IsValid())

	v.Range("R", 11, 1, 10)
	v.Positive("P", 0)
	v.NonNegative("N", -1)
	v.FloatRange("F", 1.5, 0, 1)
	v.PositiveDuration("D", 0)
	assert.Len(t, v.Errors(), 5)
}

func TestErr_JoinsMessages(t *testing.T) {
	v := New()
	require.NoError(t, v.Err())

	v.NotEmpty("Engine", " ")
	v.OneOf("Backend", "mongo", []string{"sqlite", "redis"})
	v.Custom("Webhook", "x", func(any) error { return errors.New("boom") })

	err := v.Err()
	require.Error(t, err)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors(), 3)
	assert.Contains(t, err.Error(), "validation failed for Engine")
	assert.Contains(t, err.Error(), `got "mongo"`)
	assert.Contains(t, err.Error(), "Webhook: boom")
}
