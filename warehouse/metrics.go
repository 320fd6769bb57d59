// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/SnellerInc/semlayer/semantic"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors
// updated by a Warehouse.
type Metrics struct {
	Queries  *prometheus.CounterVec
	Duration prometheus.Histogram
	Rows     prometheus.Histogram
}

// NewMetrics creates a set of collectors and
// registers them with reg. A nil reg leaves
// the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semlayer",
			Name:      "queries_total",
			Help:      "Queries executed against the warehouse, by outcome.",
		}, []string{"status"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semlayer",
			Name:      "query_duration_seconds",
			Help:      "Time taken to execute a query and read its result.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		Rows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semlayer",
			Name:      "query_rows",
			Help:      "Number of rows returned by a query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.Queries, m.Duration, m.Rows} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "error"
}

func (m *Metrics) observe(res *semantic.Result, elapsed time.Duration, err error) {
	m.Queries.WithLabelValues(status(err)).Inc()
	m.Duration.Observe(elapsed.Seconds())
	if res != nil {
		m.Rows.Observe(float64(res.Len()))
	}
}
