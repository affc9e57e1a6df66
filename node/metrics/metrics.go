// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultInterval is how often registered metrics are read.
const DefaultInterval = 10 * time.Second

// IMetric metric reader
type IMetric interface {
	Read()
}

// IMetricManager metric manager
type IMetricManager interface {
	Add(metrics ...IMetric)
	Handler() http.Handler
	Listen(ctx context.Context, route string, port uint16) error
}

// metricsManager reads every metric on each tick of the interval.
type metricsManager struct {
	metrics  chan IMetric
	done     <-chan struct{}
	list     []IMetric
	interval time.Duration
	registry *prometheus.Registry
}

// Metrics creates metric instance and starts the collector.
// Gauges of added metrics are registered in registry.
func Metrics(ctx context.Context, interval time.Duration, registry *prometheus.Registry) IMetricManager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	res := &metricsManager{
		metrics:  make(chan IMetric),
		done:     ctx.Done(),
		interval: interval,
		registry: registry,
	}

	go res.collector(ctx)
	return res
}

func (m *metricsManager) Add(metrics ...IMetric) {
	for _, metric := range metrics {
		select {
		case m.metrics <- metric:
		case <-m.done:
			return
		}
	}
}

func (m *metricsManager) collector(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case metric := <-m.metrics:
			metric.Read()
			m.list = append(m.list, metric)
		case <-ticker.C:
			for _, v := range m.list {
				v.Read()
			}
		}
	}
}

func (m *metricsManager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Listen serves the metrics on route until ctx is done.
func (m *metricsManager) Listen(ctx context.Context, route string, port uint16) error {
	mux := http.NewServeMux()
	mux.Handle(route, m.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("route", route).Uint16("port", port).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
