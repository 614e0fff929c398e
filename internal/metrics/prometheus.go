package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	conversions   *prom.CounterVec
	duration      *prom.HistogramVec
	exportedFiles prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh registry with the Go and process collectors.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	}
	pr := &PrometheusRecorder{
		reg: reg,
		conversions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "mdbridge",
			Name:      "conversions_total",
			Help:      "Conversions by operation and result",
		}, []string{"op", "result"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "mdbridge",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of conversions by operation",
			Buckets:   prom.DefBuckets,
		}, []string{"op"}),
		exportedFiles: prom.NewCounter(prom.CounterOpts{
			Namespace: "mdbridge",
			Name:      "export_files_total",
			Help:      "Markdown files produced by exports",
		}),
	}
	reg.MustRegister(pr.conversions, pr.duration, pr.exportedFiles)
	return pr
}

func (p *PrometheusRecorder) ObserveConversion(op string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.conversions.WithLabelValues(op, string(result)).Inc()
	p.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddExportedFiles(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.exportedFiles.Add(float64(n))
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
