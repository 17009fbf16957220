// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MediaTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_media_total",
		Help: "Media processing results",
	}, []string{"outcome"}) // outcome=saved|skipped|empty|fetch_error|save_error

	MediaFilesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatgate_media_files_removed_total",
		Help: "Stored media files removed after their lifetime",
	})
)

// IncMedia records a media processing outcome.
func IncMedia(outcome string) { MediaTotal.WithLabelValues(outcome).Inc() }

// IncMediaRemoved counts an expired file removal.
func IncMediaRemoved() { MediaFilesRemoved.Inc() }
