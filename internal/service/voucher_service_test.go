package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

// scriptedGenerator hands out codes from fixed lists, repeating the last one.
type scriptedGenerator struct {
	qr, short, static []string
	calls             int
}

func pick(codes []string, i int) string {
	if i >= len(codes) {
		return codes[len(codes)-1]
	}
	return codes[i]
}

func (g *scriptedGenerator) QRCode() (string, error) {
	code := pick(g.qr, g.calls)
	g.calls++
	return code, nil
}

func (g *scriptedGenerator) ShortCode() (string, error) { return pick(g.short, g.calls-1), nil }

func (g *scriptedGenerator) StaticCode() (string, error) { return pick(g.static, g.calls-1), nil }

func newVoucherService(t *testing.T) (VoucherService, repository.Store) {
	store := newTestStore(t)
	return NewVoucherService(store, NewCodeGenerator(), testOptions()), store
}

func percent(n int64) *decimal.Decimal {
	d := decimal.NewFromInt(n)
	return &d
}

func validInput() CreateVoucherInput {
	return CreateVoucherInput{
		Title:         "  20% off pastries ",
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: percent(20),
	}
}

func TestCreate_Draft(t *testing.T) {
	svc, store := newVoucherService(t)
	business := uuid.New()
	in := validInput()
	in.StaticCode = " summer26 "
	in.MaxRedemptions = intPtr(50)

	v, err := svc.Create(context.Background(), business, in)
	require.NoError(t, err)

	assert.Equal(t, model.VoucherStateDraft, v.State)
	assert.Equal(t, "20% off pastries", v.Title)
	assert.Equal(t, business, v.BusinessID)
	assert.NotEmpty(t, v.QRCode)
	assert.True(t, v.DiscountValue.Valid)
	assert.True(t, v.DiscountValue.Decimal.Equal(decimal.NewFromInt(20)))

	stored, err := store.Vouchers().GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	require.Len(t, stored.Codes, 2)
	byType := map[model.CodeType]string{}
	for _, c := range stored.Codes {
		assert.True(t, c.Active)
		byType[c.Type] = c.Code
	}
	assert.Len(t, byType[model.CodeTypeShort], shortCodeLength)
	assert.Equal(t, "SUMMER26", byType[model.CodeTypeStatic])
}

func TestCreate_GeneratedStaticCode(t *testing.T) {
	svc, store := newVoucherService(t)
	in := validInput()
	in.GenerateStaticCode = true

	v, err := svc.Create(context.Background(), uuid.New(), in)
	require.NoError(t, err)

	stored, err := store.Vouchers().GetByID(context.Background(), v.ID)
	require.NoError(t, err)
	require.Len(t, stored.Codes, 2)
	for _, c := range stored.Codes {
		if c.Type == model.CodeTypeStatic {
			assert.Regexp(t, `^ST-[2-9A-HJKMNP-Z]{10}$`, c.Code)
		}
	}
}

func TestCreate_Validation(t *testing.T) {
	tomorrow := testNow.Add(24 * time.Hour)

	testCases := []struct {
		name   string
		mutate func(*CreateVoucherInput)
	}{
		{name: "blank title", mutate: func(in *CreateVoucherInput) { in.Title = "  " }},
		{name: "unknown discount type", mutate: func(in *CreateVoucherInput) { in.DiscountType = "bogo" }},
		{name: "percentage above 100", mutate: func(in *CreateVoucherInput) { in.DiscountValue = percent(150) }},
		{name: "percentage missing", mutate: func(in *CreateVoucherInput) { in.DiscountValue = nil }},
		{name: "fixed amount zero", mutate: func(in *CreateVoucherInput) {
			in.DiscountType = model.DiscountTypeFixedAmount
			in.DiscountValue = percent(0)
		}},
		{name: "negative fixed value", mutate: func(in *CreateVoucherInput) { in.FixedValue = percent(-1) }},
		{name: "window inverted", mutate: func(in *CreateVoucherInput) {
			in.ValidFrom = &tomorrow
			in.ValidUntil = timePtr(testNow)
		}},
		{name: "zero cap", mutate: func(in *CreateVoucherInput) { in.MaxRedemptions = intPtr(0) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newVoucherService(t)
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), uuid.New(), in)
			assert.ErrorIs(t, err, ErrInvalidVoucher)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestCreate_FreeItemWithoutValue(t *testing.T) {
	svc, _ := newVoucherService(t)

	_, err := svc.Create(context.Background(), uuid.New(), CreateVoucherInput{
		Title:        "Free cookie",
		DiscountType: model.DiscountTypeFreeItem,
	})
	assert.NoError(t, err)
}

func TestCreate_NoGenerator(t *testing.T) {
	svc := NewVoucherService(newTestStore(t), nil, testOptions())

	_, err := svc.Create(context.Background(), uuid.New(), validInput())
	assert.ErrorIs(t, err, ErrCodeGeneratorUnavailable)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestCreate_StaticCodeTaken(t *testing.T) {
	svc, _ := newVoucherService(t)
	in := validInput()
	in.StaticCode = "WELCOME"

	_, err := svc.Create(context.Background(), uuid.New(), in)
	require.NoError(t, err)

	in.StaticCode = "welcome"
	_, err = svc.Create(context.Background(), uuid.New(), in)
	assert.ErrorIs(t, err, ErrCodeTaken)
}

func TestCreate_RetriesCollisions(t *testing.T) {
	store := newTestStore(t)
	seedVoucher(t, store, withQR("VCH-TAKEN"))

	// GIVEN: a generator whose first QR payload collides
	gen := &scriptedGenerator{qr: []string{"VCH-TAKEN", "VCH-FRESH"}, short: []string{"AAAA2222", "BBBB3333"}}
	svc := NewVoucherService(store, gen, testOptions())

	// WHEN: creating
	v, err := svc.Create(context.Background(), uuid.New(), validInput())

	// THEN: the second attempt is used
	require.NoError(t, err)
	assert.Equal(t, "VCH-FRESH", v.QRCode)
	assert.Equal(t, 2, gen.calls)
}

func TestCreate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	store := newTestStore(t)
	seedVoucher(t, store, withQR("VCH-TAKEN"))

	gen := &scriptedGenerator{qr: []string{"VCH-TAKEN"}, short: []string{"AAAA2222"}}
	svc := NewVoucherService(store, gen, testOptions())

	_, err := svc.Create(context.Background(), uuid.New(), validInput())
	assert.ErrorIs(t, err, ErrStorageConflict)
	assert.Equal(t, codeAttempts, gen.calls)
}

func TestUpdate(t *testing.T) {
	svc, store := newVoucherService(t)
	owner := uuid.New()
	ctx := context.Background()
	draft := seedVoucher(t, store, withBusiness(owner), withState(model.VoucherStateDraft))

	title := "Renamed"
	v, err := svc.Update(ctx, owner, draft.ID, UpdateVoucherInput{Title: &title, MaxRedemptions: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", v.Title)

	stored, err := store.Vouchers().GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Title)
	require.NotNil(t, stored.MaxRedemptions)
	assert.Equal(t, 10, *stored.MaxRedemptions)

	_, err = svc.Update(ctx, uuid.New(), draft.ID, UpdateVoucherInput{Title: &title})
	assert.ErrorIs(t, err, ErrUnauthorizedBusiness)

	published := seedVoucher(t, store, withBusiness(owner))
	_, err = svc.Update(ctx, owner, published.ID, UpdateVoucherInput{Title: &title})
	assert.ErrorIs(t, err, ErrVoucherNotEditable)

	blank := " "
	_, err = svc.Update(ctx, owner, draft.ID, UpdateVoucherInput{Title: &blank})
	assert.ErrorIs(t, err, ErrInvalidVoucher)
}

func TestPublish(t *testing.T) {
	svc, store := newVoucherService(t)
	owner := uuid.New()
	ctx := context.Background()
	draft := seedVoucher(t, store, withBusiness(owner), withState(model.VoucherStateDraft))

	v, err := svc.Publish(ctx, owner, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VoucherStatePublished, v.State)
	require.NotNil(t, v.PublishedAt)
	assert.True(t, v.PublishedAt.Equal(testNow))

	// Publishing again is a no-op
	v, err = svc.Publish(ctx, owner, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VoucherStatePublished, v.State)
}

func TestPublish_NotYetValid(t *testing.T) {
	// GIVEN: a draft with validFrom = tomorrow
	// WHEN: publishing
	// THEN: not-yet-valid, and the voucher stays a draft
	svc, store := newVoucherService(t)
	owner := uuid.New()
	tomorrow := testNow.Add(24 * time.Hour)
	draft := seedVoucher(t, store, withBusiness(owner), withState(model.VoucherStateDraft), withWindow(&tomorrow, nil))

	_, err := svc.Publish(context.Background(), owner, draft.ID)
	require.ErrorIs(t, err, ErrNotYetValid)

	stored, err := store.Vouchers().GetByID(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VoucherStateDraft, stored.State)
}

func TestExpire_IsTerminal(t *testing.T) {
	svc, store := newVoucherService(t)
	owner := uuid.New()
	ctx := context.Background()
	v := seedVoucher(t, store, withBusiness(owner))

	expired, err := svc.Expire(ctx, owner, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VoucherStateExpired, expired.State)

	_, err = svc.Publish(ctx, owner, v.ID)
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = svc.Expire(ctx, uuid.New(), v.ID)
	assert.ErrorIs(t, err, ErrUnauthorizedBusiness)
}

func TestTransition_Admin(t *testing.T) {
	svc, store := newVoucherService(t)
	ctx := context.Background()
	suspended := seedVoucher(t, store, withState(model.VoucherStateSuspended))

	v, err := svc.Transition(ctx, suspended.ID, model.VoucherStatePublished)
	require.NoError(t, err)
	assert.Equal(t, model.VoucherStatePublished, v.State)

	_, err = svc.Transition(ctx, suspended.ID, model.VoucherStateDraft)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, model.VoucherStatePublished, te.From)

	_, err = svc.Transition(ctx, suspended.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Transition(ctx, uuid.New(), model.VoucherStateExpired)
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestDelete_Draft(t *testing.T) {
	svc, store := newVoucherService(t)
	owner := uuid.New()
	ctx := context.Background()
	v, err := svc.Create(ctx, owner, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, v.ID))

	_, err = store.Vouchers().GetByID(ctx, v.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = svc.GetForBusiness(ctx, owner, v.ID)
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestDelete_PublishedSoftDeletes(t *testing.T) {
	svc, store := newVoucherService(t)
	owner := uuid.New()
	ctx := context.Background()
	v := seedVoucher(t, store, withBusiness(owner), withCode(model.CodeTypeShort, "SOFT2345"))

	require.NoError(t, svc.Delete(ctx, owner, v.ID))

	_, err := svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, ErrVoucherNotFound)

	_, err = NewCodeResolver(store.Vouchers()).ResolveByCode(ctx, "SOFT2345")
	assert.ErrorIs(t, err, ErrVoucherNotFound)

	// The short code is free again once deactivated
	seedVoucher(t, store, withCode(model.CodeTypeShort, "SOFT2345"))
}

func TestDelete_WrongBusiness(t *testing.T) {
	svc, store := newVoucherService(t)
	v := seedVoucher(t, store)

	err := svc.Delete(context.Background(), uuid.New(), v.ID)
	assert.ErrorIs(t, err, ErrUnauthorizedBusiness)
}

func TestGet_HidesDrafts(t *testing.T) {
	svc, store := newVoucherService(t)
	owner := uuid.New()
	draft := seedVoucher(t, store, withBusiness(owner), withState(model.VoucherStateDraft))

	_, err := svc.Get(context.Background(), draft.ID)
	assert.ErrorIs(t, err, ErrVoucherNotFound)

	v, err := svc.GetForBusiness(context.Background(), owner, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, v.ID)
}

func TestListPublished(t *testing.T) {
	svc, store := newVoucherService(t)
	business := uuid.New()
	ctx := context.Background()

	seedVoucher(t, store, withBusiness(business), func(v *model.Voucher) { v.Title = "Croissant deal" })
	seedVoucher(t, store, withBusiness(business), func(v *model.Voucher) { v.Title = "Bagel deal" })
	seedVoucher(t, store, withBusiness(business), withState(model.VoucherStateDraft))
	seedVoucher(t, store)

	page, err := svc.ListPublished(ctx, ListInput{BusinessID: &business})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, DefaultListLimit, page.Limit)

	page, err = svc.ListPublished(ctx, ListInput{Search: "croissant"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Croissant deal", page.Items[0].Title)

	page, err = svc.ListPublished(ctx, ListInput{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)

	page, err = svc.ListPublished(ctx, ListInput{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, page.Limit)
}

func TestListByBusiness(t *testing.T) {
	svc, store := newVoucherService(t)
	business := uuid.New()
	ctx := context.Background()

	seedVoucher(t, store, withBusiness(business))
	seedVoucher(t, store, withBusiness(business), withState(model.VoucherStateDraft))
	seedVoucher(t, store)

	page, err := svc.ListByBusiness(ctx, business, ListInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = svc.ListByBusiness(ctx, business, ListInput{States: []model.VoucherState{model.VoucherStateDraft}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = svc.ListByBusiness(ctx, business, ListInput{States: []model.VoucherState{"archived"}})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	opts := testOptions()
	owner := uuid.New()
	vouchers := NewVoucherService(store, NewCodeGenerator(), opts)
	claims := NewClaimService(store, opts)
	redemptions := NewRedemptionService(store, opts)
	scans := newScanService(store, opts)
	ctx := context.Background()

	v := seedVoucher(t, store, withBusiness(owner), withCap(10, 0))
	alice, bob := uuid.New(), uuid.New()

	_, err := scans.Scan(ctx, v.ID, ScanContext{UserID: &alice})
	require.NoError(t, err)
	_, err = scans.Scan(ctx, v.ID, ScanContext{UserID: &bob})
	require.NoError(t, err)
	_, err = claims.Claim(ctx, v.ID, alice)
	require.NoError(t, err)
	_, err = claims.Claim(ctx, v.ID, bob)
	require.NoError(t, err)
	_, err = redemptions.Redeem(ctx, v.ID, alice)
	require.NoError(t, err)

	stats, err := vouchers.Stats(ctx, owner, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ScanCount)
	assert.Equal(t, int64(2), stats.ScanEvents)
	assert.Equal(t, int64(2), stats.Claimed)
	assert.Equal(t, int64(1), stats.Redeemed)
	assert.Equal(t, 1, stats.CurrentRedemptions)
	require.NotNil(t, stats.RemainingRedemptions)
	assert.Equal(t, 9, *stats.RemainingRedemptions)

	_, err = vouchers.Stats(ctx, uuid.New(), v.ID)
	assert.ErrorIs(t, err, ErrUnauthorizedBusiness)
}

func TestExpireOverdue(t *testing.T) {
	svc, store := newVoucherService(t)
	ctx := context.Background()
	lastWeek := testNow.Add(-7 * 24 * time.Hour)
	nextWeek := testNow.Add(7 * 24 * time.Hour)

	overdue := seedVoucher(t, store, withWindow(nil, &lastWeek))
	suspended := seedVoucher(t, store, withState(model.VoucherStateSuspended), withWindow(nil, &lastWeek))
	draft := seedVoucher(t, store, withState(model.VoucherStateDraft), withWindow(nil, &lastWeek))
	current := seedVoucher(t, store, withWindow(nil, &nextWeek))
	open := seedVoucher(t, store)

	n, err := svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := map[uuid.UUID]model.VoucherState{
		overdue.ID:   model.VoucherStateExpired,
		suspended.ID: model.VoucherStateExpired,
		draft.ID:     model.VoucherStateDraft,
		current.ID:   model.VoucherStatePublished,
		open.ID:      model.VoucherStatePublished,
	}
	for id, state := range want {
		v, err := store.Vouchers().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, state, v.State, id.String())
	}

	// A second sweep finds nothing
	n, err = svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
