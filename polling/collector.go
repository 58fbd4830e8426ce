// go-dtof
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-dtof.
//
// go-dtof is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-dtof is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-dtof; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package polling

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "dtof"

// Collector exports Session metrics to Prometheus. Values are read from the
// session on every scrape.
type Collector struct {
	session     *Session
	cycles      *prometheus.Desc
	frames      *prometheus.Desc
	timeouts    *prometheus.Desc
	errors      *prometheus.Desc
	cbErrors    *prometheus.Desc
	latency     *prometheus.Desc
	points      *prometheus.Desc
	running     *prometheus.Desc
	deviceState *prometheus.Desc
}

// NewCollector returns a collector for session. constLabels are attached to
// every metric, e.g. the serial port name.
func NewCollector(session *Session, constLabels prometheus.Labels) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "session", name), help, labels, constLabels)
	}
	return &Collector{
		session:     session,
		cycles:      desc("acquire_cycles_total", "Total acquisition attempts."),
		frames:      desc("frames_total", "Frames decoded and delivered."),
		timeouts:    desc("timeouts_total", "Acquisition attempts that ended without a frame."),
		errors:      desc("errors_total", "Acquisition attempts that failed."),
		cbErrors:    desc("callback_errors_total", "Errors returned by the frame callback."),
		latency:     desc("last_acquire_seconds", "Duration of the last acquisition attempt."),
		points:      desc("last_frame_points", "Point count of the last delivered frame."),
		running:     desc("running", "Whether the acquisition loop is active."),
		deviceState: desc("device_state", "Current driver state of the device.", "state"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cycles
	ch <- c.frames
	ch <- c.timeouts
	ch <- c.errors
	ch <- c.cbErrors
	ch <- c.latency
	ch <- c.points
	ch <- c.running
	ch <- c.deviceState
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.session.GetMetrics()

	ch <- prometheus.MustNewConstMetric(c.cycles, prometheus.CounterValue, float64(m.Cycles))
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(m.Frames))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(m.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(m.Errors))
	ch <- prometheus.MustNewConstMetric(c.cbErrors, prometheus.CounterValue, float64(m.CallbackErrors))
	ch <- prometheus.MustNewConstMetric(c.latency, prometheus.GaugeValue, m.LastLatency.Seconds())
	ch <- prometheus.MustNewConstMetric(c.points, prometheus.GaugeValue, float64(m.LastPoints))

	running := 0.0
	if c.session.IsRunning() {
		running = 1
	}
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, running)
	ch <- prometheus.MustNewConstMetric(c.deviceState, prometheus.GaugeValue, 1, c.session.Device().State().String())
}
