package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

const (
	codeAttempts = 3
	sweepBatch   = 100
)

var hundred = decimal.NewFromInt(100)

type CreateVoucherInput struct {
	CategoryID     *uuid.UUID         `json:"category_id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	DiscountType   model.DiscountType `json:"discount_type"`
	DiscountValue  *decimal.Decimal   `json:"discount_value"`
	FixedValue     *decimal.Decimal   `json:"fixed_value"`
	ValidFrom      *time.Time         `json:"valid_from"`
	ValidUntil     *time.Time         `json:"valid_until"`
	MaxRedemptions *int               `json:"max_redemptions"`

	// StaticCode registers a campaign code chosen by the business.
	StaticCode string `json:"static_code"`

	// GenerateStaticCode asks for a random static code when none is supplied.
	GenerateStaticCode bool `json:"generate_static_code"`
}

// UpdateVoucherInput patches a draft; nil fields are left unchanged.
type UpdateVoucherInput struct {
	CategoryID     *uuid.UUID          `json:"category_id"`
	Title          *string             `json:"title"`
	Description    *string             `json:"description"`
	DiscountType   *model.DiscountType `json:"discount_type"`
	DiscountValue  *decimal.Decimal    `json:"discount_value"`
	FixedValue     *decimal.Decimal    `json:"fixed_value"`
	ValidFrom      *time.Time          `json:"valid_from"`
	ValidUntil     *time.Time          `json:"valid_until"`
	MaxRedemptions *int                `json:"max_redemptions"`
}

type ListInput struct {
	BusinessID *uuid.UUID           `json:"business_id,omitempty"`
	CategoryID *uuid.UUID           `json:"category_id,omitempty"`
	States     []model.VoucherState `json:"states,omitempty"`
	Search     string               `json:"search,omitempty"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
}

type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type VoucherStats struct {
	VoucherID            uuid.UUID          `json:"voucher_id"`
	State                model.VoucherState `json:"state"`
	ScanCount            int                `json:"scan_count"`
	ScanEvents           int64              `json:"scan_events"`
	Claimed              int64              `json:"claimed"`
	Redeemed             int64              `json:"redeemed"`
	CurrentRedemptions   int                `json:"current_redemptions"`
	MaxRedemptions       *int               `json:"max_redemptions,omitempty"`
	RemainingRedemptions *int               `json:"remaining_redemptions,omitempty"`
}

type VoucherService interface {
	Create(ctx context.Context, businessID uuid.UUID, in CreateVoucherInput) (*model.Voucher, error)
	Update(ctx context.Context, businessID, id uuid.UUID, in UpdateVoucherInput) (*model.Voucher, error)
	Publish(ctx context.Context, businessID, id uuid.UUID) (*model.Voucher, error)
	Expire(ctx context.Context, businessID, id uuid.UUID) (*model.Voucher, error)
	// Transition applies any allowed state change without an ownership check.
	Transition(ctx context.Context, id uuid.UUID, to model.VoucherState) (*model.Voucher, error)
	Delete(ctx context.Context, businessID, id uuid.UUID) error

	Get(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
	GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*model.Voucher, error)
	ListPublished(ctx context.Context, in ListInput) (*Page[model.Voucher], error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID, in ListInput) (*Page[model.Voucher], error)
	Stats(ctx context.Context, businessID, id uuid.UUID) (*VoucherStats, error)

	// ExpireOverdue moves every voucher past its valid_until to expired.
	ExpireOverdue(ctx context.Context) (int, error)
}

type voucherService struct {
	store     repository.Store
	generator CodeGenerator
	opts      Options
}

// NewVoucherService wires the management operations. generator may be nil,
// in which case Create fails with ErrCodeGeneratorUnavailable.
func NewVoucherService(store repository.Store, generator CodeGenerator, opts Options) VoucherService {
	return &voucherService{store: store, generator: generator, opts: opts.withDefaults()}
}

func validateDiscount(t model.DiscountType, value, fixed *decimal.Decimal) error {
	if !t.Valid() {
		return invalid("unknown discount type %q", t)
	}
	switch t {
	case model.DiscountTypePercentage:
		if value == nil || !value.IsPositive() || value.GreaterThan(hundred) {
			return invalid("percentage discount must be in (0, 100]")
		}
	case model.DiscountTypeFixedAmount:
		if value == nil || !value.IsPositive() {
			return invalid("fixed amount discount must be positive")
		}
	}
	if fixed != nil && fixed.IsNegative() {
		return invalid("fixed value must not be negative")
	}
	return nil
}

func validateWindow(from, until *time.Time) error {
	if from != nil && until != nil && until.Before(*from) {
		return invalid("valid_until must not be before valid_from")
	}
	return nil
}

func validateCap(max *int) error {
	if max != nil && *max <= 0 {
		return invalid("max_redemptions must be positive")
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func (in CreateVoucherInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title is required")
	}
	if err := validateDiscount(in.DiscountType, in.DiscountValue, in.FixedValue); err != nil {
		return err
	}
	if err := validateWindow(in.ValidFrom, in.ValidUntil); err != nil {
		return err
	}
	return validateCap(in.MaxRedemptions)
}

func (s *voucherService) Create(ctx context.Context, businessID uuid.UUID, in CreateVoucherInput) (*model.Voucher, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, ErrCodeGeneratorUnavailable
	}

	static := NormalizeCode(in.StaticCode)
	if static != "" {
		if err := s.ensureCodeFree(ctx, model.CodeTypeStatic, static); err != nil {
			return nil, err
		}
	}

	for attempt := 1; attempt <= codeAttempts; attempt++ {
		voucher, err := s.buildVoucher(businessID, in, static)
		if err != nil {
			return nil, err
		}

		err = s.store.Vouchers().Create(ctx, voucher)
		if err == nil {
			s.opts.invalidator().voucher(ctx, voucher.ID)
			s.opts.Logger.Info("voucher created",
				zap.String("voucher_id", voucher.ID.String()),
				zap.String("business_id", businessID.String()),
			)
			return voucher, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create voucher: %w", err)
		}
		if static != "" {
			if err := s.ensureCodeFree(ctx, model.CodeTypeStatic, static); err != nil {
				return nil, err
			}
		}
		s.opts.Logger.Warn("generated code collided, retrying", zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("%w: could not allocate unique codes", ErrStorageConflict)
}

func (s *voucherService) ensureCodeFree(ctx context.Context, t model.CodeType, code string) error {
	_, err := s.store.Vouchers().GetByActiveCode(ctx, t, code)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s code %q", ErrCodeTaken, t, code)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check code: %w", err)
	}
}

func (s *voucherService) buildVoucher(businessID uuid.UUID, in CreateVoucherInput, static string) (*model.Voucher, error) {
	qr, err := s.generator.QRCode()
	if err != nil {
		return nil, err
	}
	short, err := s.generator.ShortCode()
	if err != nil {
		return nil, err
	}

	if static == "" && in.GenerateStaticCode {
		if static, err = s.generator.StaticCode(); err != nil {
			return nil, err
		}
	}

	codes := []model.VoucherCode{{Code: short, Type: model.CodeTypeShort, Active: true}}
	if static != "" {
		codes = append(codes, model.VoucherCode{Code: static, Type: model.CodeTypeStatic, Active: true})
	}

	return &model.Voucher{
		BusinessID:     businessID,
		CategoryID:     in.CategoryID,
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		State:          model.VoucherStateDraft,
		DiscountType:   in.DiscountType,
		DiscountValue:  nullDecimal(in.DiscountValue),
		FixedValue:     nullDecimal(in.FixedValue),
		ValidFrom:      in.ValidFrom,
		ValidUntil:     in.ValidUntil,
		MaxRedemptions: in.MaxRedemptions,
		QRCode:         qr,
		Codes:          codes,
	}, nil
}

func (s *voucherService) owned(ctx context.Context, businessID, id uuid.UUID) (*model.Voucher, error) {
	voucher, err := loadVoucher(ctx, s.store.Vouchers(), id)
	if err != nil {
		return nil, err
	}
	if !voucher.OwnedBy(businessID) {
		return nil, ErrUnauthorizedBusiness
	}
	return voucher, nil
}

func (s *voucherService) Update(ctx context.Context, businessID, id uuid.UUID, in UpdateVoucherInput) (*model.Voucher, error) {
	voucher, err := s.owned(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if voucher.State != model.VoucherStateDraft {
		return nil, ErrVoucherNotEditable
	}

	if in.CategoryID != nil {
		voucher.CategoryID = in.CategoryID
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, invalid("title is required")
		}
		voucher.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		voucher.Description = *in.Description
	}
	if in.DiscountType != nil {
		voucher.DiscountType = *in.DiscountType
	}
	if in.DiscountValue != nil {
		voucher.DiscountValue = nullDecimal(in.DiscountValue)
	}
	if in.FixedValue != nil {
		voucher.FixedValue = nullDecimal(in.FixedValue)
	}
	if in.ValidFrom != nil {
		voucher.ValidFrom = in.ValidFrom
	}
	if in.ValidUntil != nil {
		voucher.ValidUntil = in.ValidUntil
	}
	if in.MaxRedemptions != nil {
		voucher.MaxRedemptions = in.MaxRedemptions
	}

	if err := validateDiscount(voucher.DiscountType, decimalPtr(voucher.DiscountValue), decimalPtr(voucher.FixedValue)); err != nil {
		return nil, err
	}
	if err := validateWindow(voucher.ValidFrom, voucher.ValidUntil); err != nil {
		return nil, err
	}
	if err := validateCap(voucher.MaxRedemptions); err != nil {
		return nil, err
	}

	if err := s.store.Vouchers().UpdateDraft(ctx, voucher); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrVoucherNotEditable
		}
		return nil, fmt.Errorf("failed to update voucher: %w", err)
	}
	s.opts.invalidator().voucher(ctx, voucher.ID)
	return voucher, nil
}

func (s *voucherService) Publish(ctx context.Context, businessID, id uuid.UUID) (*model.Voucher, error) {
	voucher, err := s.owned(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, voucher, model.VoucherStatePublished)
}

func (s *voucherService) Expire(ctx context.Context, businessID, id uuid.UUID) (*model.Voucher, error) {
	voucher, err := s.owned(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, voucher, model.VoucherStateExpired)
}

func (s *voucherService) Transition(ctx context.Context, id uuid.UUID, to model.VoucherState) (*model.Voucher, error) {
	voucher, err := loadVoucher(ctx, s.store.Vouchers(), id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, voucher, to)
}

// transition validates and persists voucher.State -> to. The write is
// conditional on the state that was validated, so a concurrent change
// surfaces as ErrStorageConflict instead of being overwritten.
func (s *voucherService) transition(ctx context.Context, voucher *model.Voucher, to model.VoucherState) (*model.Voucher, error) {
	if err := ValidateTransition(voucher.State, to); err != nil {
		return nil, err
	}
	if voucher.State == to {
		return voucher, nil
	}

	now := s.opts.Now()
	if to == model.VoucherStatePublished {
		if err := ValidatePublishWindow(voucher, now); err != nil {
			return nil, err
		}
	}

	from := voucher.State
	if err := s.store.Vouchers().UpdateState(ctx, voucher.ID, from, to, now); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, fmt.Errorf("%w: voucher state changed concurrently", ErrStorageConflict)
		}
		return nil, fmt.Errorf("failed to update voucher state: %w", err)
	}

	voucher.State = to
	if to == model.VoucherStatePublished {
		voucher.PublishedAt = &now
	}
	s.opts.invalidator().voucher(ctx, voucher.ID)
	s.opts.Metrics.Transition(string(from), string(to))
	s.opts.Logger.Info("voucher state changed",
		zap.String("voucher_id", voucher.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return voucher, nil
}

// Delete hard-deletes drafts and soft-deletes everything else.
func (s *voucherService) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	voucher, err := s.owned(ctx, businessID, id)
	if err != nil {
		return err
	}

	if voucher.State == model.VoucherStateDraft {
		err = s.store.Vouchers().HardDelete(ctx, id)
	} else {
		err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
			if err := tx.Vouchers().DeactivateCodes(ctx, id); err != nil {
				return err
			}
			return tx.Vouchers().SoftDelete(ctx, id)
		})
	}
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return fmt.Errorf("%w: voucher changed concurrently", ErrStorageConflict)
		}
		return fmt.Errorf("failed to delete voucher: %w", err)
	}

	s.opts.invalidator().voucher(ctx, id)
	s.opts.Logger.Info("voucher deleted",
		zap.String("voucher_id", id.String()),
		zap.Bool("hard", voucher.State == model.VoucherStateDraft),
	)
	return nil
}

// Get is the customer-facing read; drafts are not visible.
func (s *voucherService) Get(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	voucher, err := Remember(ctx, s.opts.cacheAside(), voucherDetailKey(id),
		func(ctx context.Context) (*model.Voucher, error) {
			return loadVoucher(ctx, s.store.Vouchers(), id)
		})
	if err != nil {
		return nil, err
	}
	if voucher.State == model.VoucherStateDraft {
		return nil, ErrVoucherNotFound
	}
	return voucher, nil
}

func (s *voucherService) GetForBusiness(ctx context.Context, businessID, id uuid.UUID) (*model.Voucher, error) {
	return s.owned(ctx, businessID, id)
}

func (s *voucherService) clampPage(in ListInput) ListInput {
	if in.Limit <= 0 {
		in.Limit = s.opts.ListLimit
	}
	if in.Limit > maxListLimit {
		in.Limit = maxListLimit
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	return in
}

func (s *voucherService) list(ctx context.Context, in ListInput) (*Page[model.Voucher], error) {
	items, total, err := s.store.Vouchers().List(ctx, repository.VoucherFilter{
		BusinessID: in.BusinessID,
		CategoryID: in.CategoryID,
		States:     in.States,
		Search:     in.Search,
		Limit:      in.Limit,
		Offset:     in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	if items == nil {
		items = []model.Voucher{}
	}
	return &Page[model.Voucher]{Items: items, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

func (s *voucherService) ListPublished(ctx context.Context, in ListInput) (*Page[model.Voucher], error) {
	in = s.clampPage(in)
	in.States = []model.VoucherState{model.VoucherStatePublished}
	in.Search = strings.TrimSpace(in.Search)

	key := fmt.Sprintf("%sbiz=%s|cat=%s|q=%s|l=%d|o=%d", voucherListKeyPrefix,
		optionalID(in.BusinessID), optionalID(in.CategoryID), strings.ToLower(in.Search), in.Limit, in.Offset)
	return Remember(ctx, s.opts.cacheAside(), key, func(ctx context.Context) (*Page[model.Voucher], error) {
		return s.list(ctx, in)
	})
}

func (s *voucherService) ListByBusiness(ctx context.Context, businessID uuid.UUID, in ListInput) (*Page[model.Voucher], error) {
	in = s.clampPage(in)
	in.BusinessID = &businessID
	for _, st := range in.States {
		if !st.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidState, st)
		}
	}
	return s.list(ctx, in)
}

func (s *voucherService) Stats(ctx context.Context, businessID, id uuid.UUID) (*VoucherStats, error) {
	voucher, err := s.owned(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CustomerVouchers().CountByVoucher(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count claims: %w", err)
	}
	scans, err := s.store.Scans().CountByVoucher(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	return &VoucherStats{
		VoucherID:            voucher.ID,
		State:                voucher.State,
		ScanCount:            voucher.ScanCount,
		ScanEvents:           scans,
		Claimed:              counts.Claimed + counts.Redeemed,
		Redeemed:             counts.Redeemed,
		CurrentRedemptions:   voucher.CurrentRedemptions,
		MaxRedemptions:       voucher.MaxRedemptions,
		RemainingRedemptions: voucher.RemainingRedemptions(),
	}, nil
}

// expirable lists the states with an edge into expired.
func expirable() []model.VoucherState {
	var states []model.VoucherState
	for _, st := range model.VoucherStates {
		if st != model.VoucherStateExpired && ValidateTransition(st, model.VoucherStateExpired) == nil {
			states = append(states, st)
		}
	}
	return states
}

func (s *voucherService) ExpireOverdue(ctx context.Context) (int, error) {
	states := expirable()
	expired := 0
	for {
		now := s.opts.Now()
		batch, err := s.store.Vouchers().ListEndedBefore(ctx, now, states, sweepBatch)
		if err != nil {
			return expired, fmt.Errorf("failed to list overdue vouchers: %w", err)
		}

		progressed := 0
		for i := range batch {
			v := &batch[i]
			err := s.store.Vouchers().UpdateState(ctx, v.ID, v.State, model.VoucherStateExpired, now)
			if errors.Is(err, repository.ErrConditionFailed) {
				continue
			}
			if err != nil {
				return expired, fmt.Errorf("failed to expire voucher %s: %w", v.ID, err)
			}
			progressed++
			s.opts.Metrics.Transition(string(v.State), string(model.VoucherStateExpired))
			s.opts.invalidator().voucher(ctx, v.ID)
		}
		expired += progressed

		if len(batch) < sweepBatch || progressed == 0 {
			break
		}
	}
	if expired > 0 {
		s.opts.Logger.Info("expired overdue vouchers", zap.Int("count", expired))
	}
	return expired, nil
}
