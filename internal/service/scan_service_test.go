package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/voucherhub/internal/metrics"
	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

func newScanService(store repository.Store, opts Options) ScanService {
	return NewScanService(store, NewCodeResolver(store.Vouchers()), opts)
}

func TestScan_CanClaim(t *testing.T) {
	// GIVEN: a published voucher inside its window, below its cap,
	//        and a user holding no claim
	// WHEN: the user scans it
	// THEN: canClaim is true, alreadyClaimed and canRedeem are false
	store := newTestStore(t)
	svc := newScanService(store, testOptions())
	from := testNow.Add(-time.Hour)
	until := testNow.Add(time.Hour)
	v := seedVoucher(t, store, withWindow(&from, &until), withCap(5, 2))
	user := uuid.New()

	res, err := svc.Scan(context.Background(), v.ID, ScanContext{UserID: &user})
	require.NoError(t, err)

	assert.True(t, res.CanClaim)
	assert.False(t, res.AlreadyClaimed)
	assert.False(t, res.CanRedeem)
	assert.Nil(t, res.Claim)
	assert.Equal(t, 1, res.Voucher.ScanCount)
}

func TestScan_Hints(t *testing.T) {
	testCases := []struct {
		name          string
		opts          []voucherOpt
		claim         *model.ClaimStatus
		claimExpires  time.Time
		wantClaimed   bool
		wantCanClaim  bool
		wantCanRedeem bool
	}{
		{
			name:         "expired state is not claimable",
			opts:         []voucherOpt{withState(model.VoucherStateExpired)},
			wantCanClaim: false,
		},
		{
			name:         "cap reached is not claimable",
			opts:         []voucherOpt{withCap(1, 1)},
			wantCanClaim: false,
		},
		{
			name:          "open claim can redeem",
			claim:         claimStatus(model.ClaimStatusClaimed),
			claimExpires:  testNow.Add(time.Hour),
			wantClaimed:   true,
			wantCanRedeem: true,
		},
		{
			name:         "lapsed claim cannot redeem",
			claim:        claimStatus(model.ClaimStatusClaimed),
			claimExpires: testNow.Add(-time.Hour),
			wantClaimed:  true,
		},
		{
			name:         "redeemed claim cannot redeem",
			claim:        claimStatus(model.ClaimStatusRedeemed),
			claimExpires: testNow.Add(time.Hour),
			wantClaimed:  true,
		},
		{
			name:         "open claim on expired voucher cannot redeem",
			opts:         []voucherOpt{withState(model.VoucherStateExpired)},
			claim:        claimStatus(model.ClaimStatusClaimed),
			claimExpires: testNow.Add(time.Hour),
			wantClaimed:  true,
		},
		{
			name:         "open claim on suspended voucher cannot redeem",
			opts:         []voucherOpt{withState(model.VoucherStateSuspended)},
			claim:        claimStatus(model.ClaimStatusClaimed),
			claimExpires: testNow.Add(time.Hour),
			wantClaimed:  true,
		},
		{
			name:         "open claim at cap cannot redeem",
			opts:         []voucherOpt{withCap(2, 2)},
			claim:        claimStatus(model.ClaimStatusClaimed),
			claimExpires: testNow.Add(time.Hour),
			wantClaimed:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(t)
			svc := newScanService(store, testOptions())
			v := seedVoucher(t, store, tc.opts...)
			user := uuid.New()
			if tc.claim != nil {
				seedClaim(t, store, v.ID, user, *tc.claim, tc.claimExpires)
			}

			res, err := svc.Scan(context.Background(), v.ID, ScanContext{UserID: &user})
			require.NoError(t, err)
			assert.Equal(t, tc.wantClaimed, res.AlreadyClaimed)
			assert.Equal(t, tc.wantCanClaim, res.CanClaim)
			assert.Equal(t, tc.wantCanRedeem, res.CanRedeem)
			if tc.wantClaimed {
				assert.NotNil(t, res.Claim)
			}
		})
	}
}

func TestScan_Anonymous(t *testing.T) {
	store := newTestStore(t)
	svc := newScanService(store, testOptions())
	v := seedVoucher(t, store)

	res, err := svc.Scan(context.Background(), v.ID, ScanContext{})
	require.NoError(t, err)
	assert.True(t, res.CanClaim)
	assert.False(t, res.AlreadyClaimed)

	n, err := store.Scans().CountByVoucher(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestScan_DraftVisibleOnlyToOwner(t *testing.T) {
	store := newTestStore(t)
	svc := newScanService(store, testOptions())
	owner, other, user := uuid.New(), uuid.New(), uuid.New()
	draft := seedVoucher(t, store, withBusiness(owner), withState(model.VoucherStateDraft), withQR("DRAFTQR"))
	ctx := context.Background()

	testCases := []struct {
		name string
		sc   ScanContext
	}{
		{name: "anonymous", sc: ScanContext{}},
		{name: "customer", sc: ScanContext{UserID: &user}},
		{name: "other business", sc: ScanContext{BusinessID: &other}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Scan(ctx, draft.ID, tc.sc)
			assert.ErrorIs(t, err, ErrVoucherNotFound)

			_, err = svc.ScanByCode(ctx, "DRAFTQR", tc.sc)
			assert.ErrorIs(t, err, ErrVoucherNotFound)
		})
	}

	// Nothing was recorded for the hidden draft
	n, err := store.Scans().CountByVoucher(ctx, draft.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The owner still sees it, and it is not claimable
	res, err := svc.ScanByCode(ctx, "DRAFTQR", ScanContext{BusinessID: &owner})
	require.NoError(t, err)
	assert.Equal(t, draft.ID, res.Voucher.ID)
	assert.False(t, res.CanClaim)
}

func TestScan_UnauthorizedBusiness(t *testing.T) {
	store := newTestStore(t)
	svc := newScanService(store, testOptions())
	v := seedVoucher(t, store)
	other := uuid.New()
	ctx := context.Background()

	_, err := svc.Scan(ctx, v.ID, ScanContext{BusinessID: &other})
	assert.ErrorIs(t, err, ErrUnauthorizedBusiness)

	// Nothing is recorded for a rejected scan
	n, err := store.Scans().CountByVoucher(ctx, v.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestScan_BusinessDefaults(t *testing.T) {
	store, db := newTestStoreDB(t)
	owner := uuid.New()
	svc := newScanService(store, testOptions())
	v := seedVoucher(t, store, withBusiness(owner))

	_, err := svc.Scan(context.Background(), v.ID, ScanContext{BusinessID: &owner, DeviceInfo: model.DeviceInfo{"os": "android"}})
	require.NoError(t, err)

	var scans []model.VoucherScan
	require.NoError(t, db.Find(&scans).Error)
	require.Len(t, scans, 1)
	assert.Equal(t, model.ScanTypeBusiness, scans[0].ScanType)
	assert.Equal(t, model.ScanSourceQR, scans[0].Source)
	assert.Equal(t, "android", scans[0].DeviceInfo["os"])
}

func TestScan_InvalidContext(t *testing.T) {
	store := newTestStore(t)
	svc := newScanService(store, testOptions())
	v := seedVoucher(t, store)

	_, err := svc.Scan(context.Background(), v.ID, ScanContext{Type: "robot"})
	assert.ErrorIs(t, err, ErrInvalidScanType)

	_, err = svc.Scan(context.Background(), v.ID, ScanContext{Source: "fax"})
	assert.ErrorIs(t, err, ErrInvalidScanType)
}

func TestScanByCode(t *testing.T) {
	store, db := newTestStoreDB(t)
	svc := newScanService(store, testOptions())
	v := seedVoucher(t, store, withCode(model.CodeTypeShort, "K7M2Q9XZ"))

	res, err := svc.ScanByCode(context.Background(), "k7m2q9xz", ScanContext{})
	require.NoError(t, err)
	assert.Equal(t, v.ID, res.Voucher.ID)
	assert.Equal(t, model.CodeTypeShort, res.Scheme)

	var scan model.VoucherScan
	require.NoError(t, db.First(&scan).Error)
	assert.Equal(t, model.ScanSourceShort, scan.Source)

	_, err = svc.ScanByCode(context.Background(), "missing", ScanContext{})
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

// failingScans makes the analytics write fail.
type failingScans struct {
	repository.VoucherScanRepository
}

func (failingScans) Append(context.Context, *model.VoucherScan) error {
	return errors.New("disk full")
}

type failingScanCount struct {
	repository.VoucherRepository
}

func (failingScanCount) IncrementScanCount(context.Context, uuid.UUID) error {
	return errors.New("connection reset")
}

type brokenAnalyticsStore struct {
	repository.Store
}

func (s brokenAnalyticsStore) Scans() repository.VoucherScanRepository {
	return failingScans{s.Store.Scans()}
}

func (s brokenAnalyticsStore) Vouchers() repository.VoucherRepository {
	return failingScanCount{s.Store.Vouchers()}
}

func TestScan_SuppressesRecordingFailures(t *testing.T) {
	// GIVEN: a store whose scan append and scan counter both fail
	// WHEN: scanning
	// THEN: the scan result is still returned and the failures are counted
	store := newTestStore(t)
	v := seedVoucher(t, store)
	reg := prometheus.NewRegistry()
	opts := testOptions()
	opts.Metrics = metrics.NewRecorder(reg)
	svc := newScanService(brokenAnalyticsStore{store}, opts)

	res, err := svc.Scan(context.Background(), v.ID, ScanContext{})
	require.NoError(t, err)
	assert.True(t, res.CanClaim)
	assert.Equal(t, 0, res.Voucher.ScanCount)

	assert.Equal(t, 1.0, counterValue(t, reg, "voucherhub_suppressed_errors_total", "operation", "scan_append"))
	assert.Equal(t, 1.0, counterValue(t, reg, "voucherhub_suppressed_errors_total", "operation", "scan_count"))
}
