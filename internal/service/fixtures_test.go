package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
	"marketplace/voucherhub/internal/testutil"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

func newTestStore(t *testing.T) repository.Store {
	store, _ := newTestStoreDB(t)
	return store
}

func newTestStoreDB(t *testing.T) (repository.Store, *gorm.DB) {
	db := testutil.NewDB(t)
	return repository.NewPGStore(db), db
}

func testOptions() Options {
	return Options{Now: fixedClock()}
}

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

type voucherOpt func(*model.Voucher)

func withState(s model.VoucherState) voucherOpt {
	return func(v *model.Voucher) { v.State = s }
}

func withCap(max, current int) voucherOpt {
	return func(v *model.Voucher) {
		v.MaxRedemptions = intPtr(max)
		v.CurrentRedemptions = current
	}
}

func withWindow(from, until *time.Time) voucherOpt {
	return func(v *model.Voucher) {
		v.ValidFrom = from
		v.ValidUntil = until
	}
}

func withBusiness(id uuid.UUID) voucherOpt {
	return func(v *model.Voucher) { v.BusinessID = id }
}

func withCode(t model.CodeType, code string) voucherOpt {
	return func(v *model.Voucher) {
		v.Codes = append(v.Codes, model.VoucherCode{Code: code, Type: t, Active: true})
	}
}

func withQR(qr string) voucherOpt {
	return func(v *model.Voucher) { v.QRCode = qr }
}

// seedVoucher inserts a published, uncapped, unbounded voucher and applies opts.
func seedVoucher(t *testing.T, store repository.Store, opts ...voucherOpt) *model.Voucher {
	t.Helper()
	v := &model.Voucher{
		BusinessID:   uuid.New(),
		Title:        "Two coffees for one",
		State:        model.VoucherStatePublished,
		DiscountType: model.DiscountTypeFreeItem,
		QRCode:       "VCH-" + uuid.NewString(),
	}
	for _, opt := range opts {
		opt(v)
	}
	require.NoError(t, store.Vouchers().Create(context.Background(), v))
	return v
}

// seedClaim inserts a ledger entry directly.
func seedClaim(t *testing.T, store repository.Store, voucherID, userID uuid.UUID, status model.ClaimStatus, expiresAt time.Time) *model.CustomerVoucher {
	t.Helper()
	cv := &model.CustomerVoucher{
		CustomerID: userID,
		VoucherID:  voucherID,
		Status:     status,
		ClaimedAt:  testNow.Add(-time.Hour),
		ExpiresAt:  expiresAt,
	}
	if status == model.ClaimStatusRedeemed {
		cv.RedeemedAt = timePtr(testNow.Add(-time.Minute))
	}
	require.NoError(t, store.CustomerVouchers().Create(context.Background(), cv))
	return cv
}

// counterValue reads one labelled counter from reg; 0 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labelPairs ...string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	want := make(map[string]string, len(labelPairs)/2)
	for i := 0; i+1 < len(labelPairs); i += 2 {
		want[labelPairs[i]] = labelPairs[i+1]
	}

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
