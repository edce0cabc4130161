package scan

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"absensi/internal/ledger"
	"absensi/internal/student"
	"absensi/internal/token"
)

var scanOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "absensi_scan_outcomes_total",
	Help: "Scan verification outcomes by result.",
}, []string{"outcome"})

func observe(outcome string) {
	scanOutcomes.WithLabelValues(outcome).Inc()
}

// outcomeFor buckets a pipeline error for metrics. The buckets mirror
// the HTTP mapping.
func outcomeFor(err error) string {
	var dup *ledger.AlreadyRecordedError
	switch {
	case errors.Is(err, token.ErrFormat):
		return "invalid_format"
	case errors.Is(err, token.ErrSignature):
		return "invalid_signature"
	case errors.Is(err, token.ErrUnsupported):
		return "unsupported_payload"
	case errors.Is(err, student.ErrNotFound):
		return "unknown_student"
	case errors.Is(err, ErrStaleCard):
		return "stale_card"
	case errors.As(err, &dup):
		return "duplicate"
	default:
		return "storage_error"
	}
}
