package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsNamespace = "testbed"

	ResultCompleted = "completed"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

// Recorder records orchestration metrics. A nil Recorder is valid and
// records nothing.
type Recorder struct {
	cycles   *prometheus.CounterVec
	checkins *prometheus.CounterVec
	leaves   prometheus.Counter
	sinkErrs prometheus.Counter
	pending  prometheus.Gauge
	duration prometheus.Histogram
}

// New registers all metrics in reg
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "cycles_total",
			Help:      "Count of test cycle attempts",
		}, []string{
			"result",
		}),
		checkins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "checkins_total",
			Help:      "Count of source code check-ins",
		}, []string{
			"result",
		}),
		leaves: f.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "test_cases_executed_total",
			Help:      "Count of executed test cases",
		}),
		sinkErrs: f.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "sink_errors_total",
			Help:      "Count of failed log sink appends",
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "pending_executions",
			Help:      "Number of scheduled test executions",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of completed test cycles",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) Cycle(result string, d time.Duration, leaves int) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(result).Inc()
	if result == ResultCompleted {
		r.duration.Observe(d.Seconds())
		r.leaves.Add(float64(leaves))
	}
}

func (r *Recorder) CheckIn(err error) {
	if r == nil {
		return
	}
	result := ResultCompleted
	if err != nil {
		result = ResultFailed
	}
	r.checkins.WithLabelValues(result).Inc()
}

func (r *Recorder) SinkError() {
	if r == nil {
		return
	}
	r.sinkErrs.Inc()
}

func (r *Recorder) Pending(n int) {
	if r == nil {
		return
	}
	r.pending.Set(float64(n))
}

// Serve exposes metrics gathered by g on addr/metrics until ctx is canceled
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
