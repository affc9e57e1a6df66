// Copyright (c) 2020 The JaxNetwork developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metrics

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsProvider exposes named values, like the leaf and peak counts of a
// mountain range or the claim counts of a relay game.
type StatsProvider interface {
	Stats() map[string]float64
}

type statsMetrics struct {
	sync.Mutex
	metricsByName map[string]prometheus.Gauge
	registerer    prometheus.Registerer
	subsystem     string
	labels        prometheus.Labels

	provider StatsProvider
}

// MetricsOfStats turns every value of the provider into a gauge named
// headermmr_<subsystem>_<stat>.
func MetricsOfStats(subsystem string, provider StatsProvider, registerer prometheus.Registerer,
	labels prometheus.Labels) IMetric {
	return &statsMetrics{
		metricsByName: make(map[string]prometheus.Gauge),
		registerer:    registerer,
		subsystem:     subsystem,
		labels:        labels,
		provider:      provider,
	}
}

func (s *statsMetrics) Read() {
	for name, value := range s.provider.Stats() {
		s.updateGauge(prometheus.BuildFQName("headermmr", s.subsystem, name), value)
	}
}

func (s *statsMetrics) updateGauge(name string, value float64) {
	s.Lock()
	defer s.Unlock()

	m, ok := s.metricsByName[name]
	if !ok {
		m = prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        name,
			ConstLabels: s.labels,
		})
		if err := s.registerer.Register(m); err != nil {
			log.Error().Err(err).Str("metric", name).Msg("can't register metric")
		}
		s.metricsByName[name] = m
	}
	m.Set(value)
}

type dirMetrics struct {
	dirs map[string]string
	stat *statsMetrics
}

// MetricsOfDirs reports the size on disk of every named directory.
func MetricsOfDirs(dirs map[string]string, registerer prometheus.Registerer) IMetric {
	res := &dirMetrics{dirs: dirs}
	res.stat = MetricsOfStats("storage", res, registerer, nil).(*statsMetrics)
	return res
}

func (d *dirMetrics) Read() { d.stat.Read() }

func (d *dirMetrics) Stats() map[string]float64 {
	stats := make(map[string]float64, len(d.dirs))
	for name, dir := range d.dirs {
		size, err := dirSize(dir)
		if err != nil && !os.IsNotExist(err) {
			log.Error().Err(err).Str("dir", dir).Msg("can't calculate dir size")
			continue
		}
		stats[name+"_size"] = float64(size)
	}
	return stats
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return err
	})
	return size, err
}
