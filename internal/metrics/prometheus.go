package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
)

const (
	defaultMetricPrefix = "shopsync"
)

// PrometheusExporter 将计数器导出为Prometheus文本格式
type PrometheusExporter struct {
	metrics *Metrics

	prefix string

	// 实例名称，作为instance标签输出
	instance string

	mu sync.Mutex
}

// NewPrometheusExporter 创建一个新的Prometheus导出器
func NewPrometheusExporter(metrics *Metrics, instance string) *PrometheusExporter {
	return &PrometheusExporter{
		metrics:  metrics,
		prefix:   defaultMetricPrefix,
		instance: instance,
	}
}

// SetPrefix 设置指标名称前缀
func (p *PrometheusExporter) SetPrefix(prefix string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefix = prefix
}

// Export 导出Prometheus格式的指标文本
func (p *PrometheusExporter) Export() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := p.metrics.GetSnapshot()
	if snapshot == nil {
		return ""
	}

	var buf bytes.Buffer

	p.addCounter(&buf, "cache_hits_total", "Valid snapshots served from the session cache", snapshot.CacheHits)
	p.addCounter(&buf, "cache_misses_total", "Session cache lookups without a record", snapshot.CacheMisses)
	p.addCounter(&buf, "cache_expired_total", "Snapshots discarded after the TTL", snapshot.CacheExpired)
	p.addCounter(&buf, "cache_corrupt_total", "Malformed records deleted from the session cache", snapshot.CacheCorrupt)
	p.addCounter(&buf, "cache_writes_total", "Records written to the session cache", snapshot.CacheWrites)
	p.addCounter(&buf, "cache_invalidations_total", "Keys removed by invalidation", snapshot.CacheInvalidations)
	p.addGauge(&buf, "cache_hit_ratio", "Session cache hit ratio", snapshot.CacheHitRatio)

	p.addCounter(&buf, "api_requests_total", "Product API requests sent", snapshot.APIRequests)
	p.addCounter(&buf, "api_errors_total", "Product API requests that failed", snapshot.APIErrors)
	p.addGauge(&buf, "api_avg_latency_seconds", "Average product API latency", snapshot.APIAvgLatency.Seconds())

	p.addCounter(&buf, "events_received_total", "Real-time frames dispatched", snapshot.EventsReceived)
	p.addCounter(&buf, "events_dropped_total", "Real-time frames dropped", snapshot.EventsDropped)
	p.addCounter(&buf, "reconnects_total", "Real-time reconnect attempts", snapshot.Reconnects)

	return buf.String()
}

// addCounter 添加计数器类型指标
func (p *PrometheusExporter) addCounter(buf *bytes.Buffer, name, help string, value uint64) {
	metricName := fmt.Sprintf("%s_%s", p.prefix, name)
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", metricName)
	fmt.Fprintf(buf, "%s{instance=\"%s\"} %d\n\n", metricName, p.instance, value)
}

// addGauge 添加仪表类型指标
func (p *PrometheusExporter) addGauge(buf *bytes.Buffer, name, help string, value float64) {
	metricName := fmt.Sprintf("%s_%s", p.prefix, name)
	fmt.Fprintf(buf, "# HELP %s %s\n", metricName, help)
	fmt.Fprintf(buf, "# TYPE %s gauge\n", metricName)
	fmt.Fprintf(buf, "%s{instance=\"%s\"} %g\n\n", metricName, p.instance, value)
}

// ServeHTTP 实现http.Handler接口，用于提供Prometheus指标端点
func (p *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Write([]byte(p.Export()))
}
