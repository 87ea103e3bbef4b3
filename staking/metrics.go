// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package staking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts resolver activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	accountsCreated prometheus.Counter
	stakersCreated  *prometheus.CounterVec
	snapshotIds     *prometheus.CounterVec
}

// NewMetrics registers the resolver metrics. It returns nil when registry is nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		return nil
	}
	promautoFactory := promauto.With(registry)
	return &Metrics{
		accountsCreated: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "stakeidx_accounts_created_total",
				Help: "number of accounts created",
			},
		),
		stakersCreated: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stakeidx_stakers_created_total",
				Help: "number of stakers created, by role",
			},
			[]string{"role"},
		),
		snapshotIds: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stakeidx_snapshot_lookups_total",
				Help: "number of ids looked up in chain state snapshots, by role",
			},
			[]string{"role"},
		),
	}
}

func (m *Metrics) accountCreated(count int) {
	if m == nil {
		return
	}
	m.accountsCreated.Add(float64(count))
}

func (m *Metrics) stakerCreated(role string) {
	if m == nil {
		return
	}
	m.stakersCreated.WithLabelValues(role).Inc()
}

func (m *Metrics) snapshotQuery(role string, count int) {
	if m == nil {
		return
	}
	m.snapshotIds.WithLabelValues(role).Add(float64(count))
}
