package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_CountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Claim("success")
	r.Claim("success")
	r.Claim("voucher_already_claimed")
	r.Redemption("success")
	r.Scan("customer", "qr")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.claims.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.claims.WithLabelValues("voucher_already_claimed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.redemptions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scans.WithLabelValues("customer", "qr")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Claim("success")
		r.Redemption("success")
		r.Scan("business", "short")
		r.Transition("draft", "published")
		r.Suppressed("scan_count")
	})
}
