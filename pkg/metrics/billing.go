package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const subsystemBilling = "billing"

var paymentsApproved = &Metric{
	ID:          "paymentsApproved",
	Name:        "payments_approved_total",
	Description: "Payments approved, by purchase kind and gateway.",
	Kind:        KindCounterVec,
	Labels:      []string{"kind", "gateway"},
}

var sweepRows = &Metric{
	ID:          "sweepRows",
	Name:        "sweep_rows_total",
	Description: "Rows changed by scheduled sweeps.",
	Kind:        KindCounterVec,
	Labels:      []string{"job"},
}

var gatewayDur = &Metric{
	ID:          "gatewayDur",
	Name:        "gateway_call_ms",
	Description: "Payment gateway call latency in milliseconds.",
	Kind:        KindHistogramVec,
	Labels:      []string{"gateway", "op", "result"},
}

// Recorder records billing business metrics. A nil Recorder discards everything.
type Recorder struct {
	approved   *prometheus.CounterVec
	sweep      *prometheus.CounterVec
	gatewayDur *prometheus.HistogramVec
}

func NewRecorder(reg prometheus.Registerer, log *zap.SugaredLogger) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Recorder{
		approved:   register(reg, paymentsApproved, subsystemBilling, log).(*prometheus.CounterVec),
		sweep:      register(reg, sweepRows, subsystemBilling, log).(*prometheus.CounterVec),
		gatewayDur: register(reg, gatewayDur, subsystemBilling, log).(*prometheus.HistogramVec),
	}
}

func (r *Recorder) PaymentApproved(kind, gateway string) {
	if r == nil {
		return
	}
	r.approved.WithLabelValues(kind, gateway).Inc()
}

func (r *Recorder) SweepRows(job string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.sweep.WithLabelValues(job).Add(float64(n))
}

// GatewayCall observes one provider call started at start.
func (r *Recorder) GatewayCall(gateway, op string, start time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.gatewayDur.WithLabelValues(gateway, op, result).Observe(MillisecondsSince(start))
}

func newDefaultRecorder(log *zap.SugaredLogger) *Recorder {
	return NewRecorder(prometheus.DefaultRegisterer, log)
}

var Module = fx.Options(
	fx.Provide(newDefaultRecorder),
)
