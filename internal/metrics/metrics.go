// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exposes Prometheus instruments for the Razor IMU services.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/razor_imu/internal/razor"
)

// Poll outcome labels.
const (
	ResultOK      = "ok"
	ResultTimeout = "timeout"
	ResultClosed  = "closed"
	ResultParse   = "parse_error"
	ResultOther   = "error"
)

var (
	Polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "razor_polls_total",
			Help: "Razor IMU poll attempts by result.",
		},
		[]string{"result"},
	)

	Angle = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "razor_full_scale_degrees",
			Help: "Latest full-scale angle per axis.",
		},
		[]string{"axis"},
	)

	ReferenceCaptures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "razor_reference_captures_total",
		Help: "Successful reference captures.",
	})

	Published = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "razor_mqtt_published_total",
			Help: "MQTT messages published by topic.",
		},
		[]string{"topic"},
	)
)

// Registry holds every instrument in this package.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(Polls, Angle, ReferenceCaptures, Published)
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ResultOf classifies an update error into a poll result label.
func ResultOf(err error) string {
	var perr *razor.ParseError
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, razor.ErrTimeout):
		return ResultTimeout
	case errors.Is(err, razor.ErrChannelClosed):
		return ResultClosed
	case errors.As(err, &perr):
		return ResultParse
	default:
		return ResultOther
	}
}

// ObservePoll records one update attempt and, on success, the new angles.
func ObservePoll(err error, full razor.Vector) {
	Polls.WithLabelValues(ResultOf(err)).Inc()
	if err != nil {
		return
	}
	for _, a := range razor.Axes {
		Angle.WithLabelValues(a.String()).Set(full.Get(a))
	}
}
