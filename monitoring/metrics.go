package monitoring

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// MetricType is the kind of a recorded metric.
type MetricType string

const MetricTypeHistogram MetricType = "histogram"

// Metric is a single observation.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

const maxHistory = 1000

// MetricsCollector keeps a bounded history per metric name.
type MetricsCollector struct {
	metrics     map[string][]*Metric
	metricsLock sync.RWMutex

	startTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string][]*Metric),
		startTime: time.Now(),
	}
}

// RecordMetric stores metric, dropping the oldest observations past the history bound.
func (mc *MetricsCollector) RecordMetric(metric *Metric) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	metric.Timestamp = time.Now()
	history := append(mc.metrics[metric.Name], metric)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	mc.metrics[metric.Name] = history
}

// GetMetric returns a copy of the history for name.
func (mc *MetricsCollector) GetMetric(name string) ([]*Metric, error) {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	metrics, ok := mc.metrics[name]
	if !ok {
		return nil, fmt.Errorf("metric %s not found", name)
	}

	result := make([]*Metric, len(metrics))
	for i, m := range metrics {
		metricCopy := *m
		result[i] = &metricCopy
	}
	return result, nil
}

// Summary aggregates the retained history of one metric.
type Summary struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Latest  float64   `json:"latest"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Average float64   `json:"average"`
	Updated time.Time `json:"updated"`
}

func (mc *MetricsCollector) GetMetricSummary(name string) (*Summary, error) {
	metrics, err := mc.GetMetric(name)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Name: name, Count: len(metrics)}
	if len(metrics) == 0 {
		return summary, nil
	}

	summary.Latest = metrics[len(metrics)-1].Value
	summary.Updated = metrics[len(metrics)-1].Timestamp
	summary.Min = metrics[0].Value
	summary.Max = metrics[0].Value
	sum := 0.0
	for _, m := range metrics {
		sum += m.Value
		if m.Value < summary.Min {
			summary.Min = m.Value
		}
		if m.Value > summary.Max {
			summary.Max = m.Value
		}
	}
	summary.Average = sum / float64(len(metrics))
	return summary, nil
}

func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{Name: name, Type: MetricTypeHistogram, Value: value, Labels: labels})
}

func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

func (mc *MetricsCollector) GetSystemStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":     mc.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"alloc":      m.Alloc,
			"heap_alloc": m.HeapAlloc,
			"heap_inuse": m.HeapInuse,
			"gc_count":   m.NumGC,
		},
		"num_cpu": runtime.NumCPU(),
	}
}

const latencyMetric = "prediction_latency_ms"

// InferenceMetrics counts prediction outcomes and tracks latency.
type InferenceMetrics struct {
	collector *MetricsCollector

	lock    sync.RWMutex
	total   int64
	byLabel map[string]int64
	byError map[string]int64
	reloads int64
}

func NewInferenceMetrics(collector *MetricsCollector) *InferenceMetrics {
	if collector == nil {
		collector = NewMetricsCollector()
	}
	return &InferenceMetrics{
		collector: collector,
		byLabel:   make(map[string]int64),
		byError:   make(map[string]int64),
	}
}

// RecordPrediction counts a successful prediction.
func (im *InferenceMetrics) RecordPrediction(label string, duration time.Duration) {
	im.lock.Lock()
	im.total++
	im.byLabel[label]++
	im.lock.Unlock()

	im.collector.RecordHistogram(latencyMetric, float64(duration.Microseconds())/1000, map[string]string{"outcome": "ok"})
}

// RecordError counts a failed prediction under kind.
func (im *InferenceMetrics) RecordError(kind string, duration time.Duration) {
	im.lock.Lock()
	im.total++
	im.byError[kind]++
	im.lock.Unlock()

	im.collector.RecordHistogram(latencyMetric, float64(duration.Microseconds())/1000, map[string]string{"outcome": kind})
}

func (im *InferenceMetrics) RecordReload() {
	im.lock.Lock()
	defer im.lock.Unlock()
	im.reloads++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Total   int64                  `json:"total"`
	Labels  map[string]int64       `json:"labels"`
	Errors  map[string]int64       `json:"errors"`
	Reloads int64                  `json:"reloads"`
	Latency *Summary               `json:"latency_ms,omitempty"`
	System  map[string]interface{} `json:"system"`
}

func (im *InferenceMetrics) Snapshot() Snapshot {
	im.lock.RLock()
	snapshot := Snapshot{
		Total:   im.total,
		Labels:  copyCounts(im.byLabel),
		Errors:  copyCounts(im.byError),
		Reloads: im.reloads,
	}
	im.lock.RUnlock()

	if latency, err := im.collector.GetMetricSummary(latencyMetric); err == nil {
		snapshot.Latency = latency
	}
	snapshot.System = im.collector.GetSystemStats()
	return snapshot
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
