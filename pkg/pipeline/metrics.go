// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraklabs/seccorpus/pkg/oracle"
)

// Metrics holds Prometheus metrics for a pipeline.
type Metrics struct {
	stageInput    *prometheus.CounterVec
	stageOutput   *prometheus.CounterVec
	drops         *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	oracleRequests *prometheus.CounterVec
	oracleFailures *prometheus.CounterVec
	oracleDuration *prometheus.HistogramVec
}

// NewMetrics creates the pipeline metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	stageBuckets := []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600}
	oracleBuckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

	m := &Metrics{
		stageInput:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "seccorpus_stage_input_records_total", Help: "Records entering a stage"}, []string{"stage"}),
		stageOutput:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "seccorpus_stage_output_records_total", Help: "Records leaving a stage"}, []string{"stage"}),
		drops:         prometheus.NewCounterVec(prometheus.CounterOpts{Name: "seccorpus_stage_drops_total", Help: "Records dropped by a stage, by reason"}, []string{"stage", "reason"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "seccorpus_stage_seconds", Help: "Stage duration", Buckets: stageBuckets}, []string{"stage"}),

		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "seccorpus_oracle_requests_total", Help: "Oracle requests sent"}, []string{"task"}),
		oracleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "seccorpus_oracle_failures_total", Help: "Oracle requests without a usable response"}, []string{"task", "failure"}),
		oracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "seccorpus_oracle_request_seconds", Help: "Oracle request latency", Buckets: oracleBuckets}, []string{"task"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.stageInput, m.stageOutput, m.drops, m.stageDuration,
			m.oracleRequests, m.oracleFailures, m.oracleDuration,
		)
	}
	return m
}

func (m *Metrics) observeStage(r StageReport) {
	if m == nil || r.Skipped {
		return
	}
	m.stageInput.WithLabelValues(r.Stage).Add(float64(r.Input))
	m.stageOutput.WithLabelValues(r.Stage).Add(float64(r.Output))
	for reason, n := range r.Drops {
		m.drops.WithLabelValues(r.Stage, reason).Add(float64(n))
	}
	m.stageDuration.WithLabelValues(r.Stage).Observe(r.Duration().Seconds())
}

func (m *Metrics) observeOracle(res oracle.Result) {
	if m == nil {
		return
	}
	task := string(res.Task)
	m.oracleRequests.WithLabelValues(task).Inc()
	m.oracleDuration.WithLabelValues(task).Observe(res.Duration.Seconds())
	if !res.OK() {
		m.oracleFailures.WithLabelValues(task, res.Failure).Inc()
	}
}
