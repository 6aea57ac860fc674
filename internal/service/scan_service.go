package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

// ScanContext describes who scanned a voucher and how.
type ScanContext struct {
	UserID     *uuid.UUID
	BusinessID *uuid.UUID
	Type       model.ScanType
	Source     model.ScanSource
	DeviceInfo model.DeviceInfo
	Latitude   *float64
	Longitude  *float64
}

// ScanResult carries hints only; nothing here authorizes a claim or redemption.
type ScanResult struct {
	Voucher        *model.Voucher         `json:"voucher"`
	Scheme         model.CodeType         `json:"scheme,omitempty"`
	AlreadyClaimed bool                   `json:"already_claimed"`
	CanClaim       bool                   `json:"can_claim"`
	CanRedeem      bool                   `json:"can_redeem"`
	Claim          *model.CustomerVoucher `json:"claim,omitempty"`
}

type ScanService interface {
	Scan(ctx context.Context, voucherID uuid.UUID, sc ScanContext) (*ScanResult, error)
	ScanByCode(ctx context.Context, raw string, sc ScanContext) (*ScanResult, error)
}

type scanService struct {
	store    repository.Store
	resolver CodeResolver
	opts     Options
}

func NewScanService(store repository.Store, resolver CodeResolver, opts Options) ScanService {
	return &scanService{store: store, resolver: resolver, opts: opts.withDefaults()}
}

func (s *scanService) Scan(ctx context.Context, voucherID uuid.UUID, sc ScanContext) (*ScanResult, error) {
	voucher, err := loadVoucher(ctx, s.store.Vouchers(), voucherID)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, voucher, "", sc)
}

func (s *scanService) ScanByCode(ctx context.Context, raw string, sc ScanContext) (*ScanResult, error) {
	res, err := s.resolver.ResolveByCode(ctx, raw)
	if err != nil {
		return nil, err
	}
	if sc.Source == "" {
		sc.Source = model.ScanSource(res.Scheme)
	}
	return s.scan(ctx, res.Voucher, res.Scheme, sc)
}

func normalizeScanContext(sc ScanContext) (ScanContext, error) {
	if sc.Type == "" {
		if sc.BusinessID != nil {
			sc.Type = model.ScanTypeBusiness
		} else {
			sc.Type = model.ScanTypeCustomer
		}
	}
	if sc.Type != model.ScanTypeBusiness && sc.Type != model.ScanTypeCustomer {
		return sc, fmt.Errorf("%w: scan type %q", ErrInvalidScanType, sc.Type)
	}
	if sc.Source == "" {
		sc.Source = model.ScanSourceQR
	}
	if !sc.Source.Valid() {
		return sc, fmt.Errorf("%w: source %q", ErrInvalidScanType, sc.Source)
	}
	return sc, nil
}

func (s *scanService) scan(ctx context.Context, voucher *model.Voucher, scheme model.CodeType, sc ScanContext) (*ScanResult, error) {
	sc, err := normalizeScanContext(sc)
	if err != nil {
		return nil, err
	}
	// Drafts exist only for their owner.
	if voucher.State == model.VoucherStateDraft && (sc.BusinessID == nil || !voucher.OwnedBy(*sc.BusinessID)) {
		return nil, ErrVoucherNotFound
	}
	if sc.BusinessID != nil && !voucher.OwnedBy(*sc.BusinessID) {
		return nil, ErrUnauthorizedBusiness
	}

	now := s.opts.Now()
	result := &ScanResult{Voucher: voucher, Scheme: scheme}

	if sc.UserID != nil {
		claim, err := loadClaim(ctx, s.store.CustomerVouchers(), *sc.UserID, voucher.ID)
		if err != nil {
			return nil, err
		}
		if claim != nil {
			result.AlreadyClaimed = true
			result.Claim = claim
			result.CanRedeem = !claim.Redeemed() && !claim.Lapsed(now) &&
				CheckRedeemable(voucher, now) == nil && !voucher.CapReached()
		}
	}
	if !result.AlreadyClaimed {
		result.CanClaim = voucher.State == model.VoucherStatePublished &&
			voucher.Started(now) && !voucher.Ended(now) &&
			!voucher.CapReached()
	}

	s.record(ctx, voucher, sc, now)
	return result, nil
}

// record appends the analytics row and bumps the denormalized counter.
// Neither failure affects the scan result.
func (s *scanService) record(ctx context.Context, voucher *model.Voucher, sc ScanContext, now time.Time) {
	scan := &model.VoucherScan{
		VoucherID:  voucher.ID,
		CustomerID: sc.UserID,
		BusinessID: sc.BusinessID,
		ScanType:   sc.Type,
		Source:     sc.Source,
		DeviceInfo: sc.DeviceInfo,
		Latitude:   sc.Latitude,
		Longitude:  sc.Longitude,
		ScannedAt:  now,
	}
	if err := s.store.Scans().Append(ctx, scan); err != nil {
		s.opts.Metrics.Suppressed("scan_append")
		s.opts.Logger.Warn("failed to record voucher scan",
			zap.String("voucher_id", voucher.ID.String()), zap.Error(err))
	}
	if err := s.store.Vouchers().IncrementScanCount(ctx, voucher.ID); err != nil {
		s.opts.Metrics.Suppressed("scan_count")
		s.opts.Logger.Warn("failed to increment scan count",
			zap.String("voucher_id", voucher.ID.String()), zap.Error(err))
	} else {
		voucher.ScanCount++
	}
	s.opts.Metrics.Scan(string(sc.Type), string(sc.Source))
}
