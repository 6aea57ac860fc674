package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

type RedemptionResult struct {
	Claim                *model.CustomerVoucher `json:"claim"`
	VoucherID            uuid.UUID              `json:"voucher_id"`
	CurrentRedemptions   int                    `json:"current_redemptions"`
	RemainingRedemptions *int                   `json:"remaining_redemptions,omitempty"`
}

type RedemptionService interface {
	Redeem(ctx context.Context, voucherID, userID uuid.UUID) (*RedemptionResult, error)
	// RedeemForBusiness redeems on behalf of userID after checking the
	// voucher belongs to businessID.
	RedeemForBusiness(ctx context.Context, businessID, voucherID, userID uuid.UUID) (*RedemptionResult, error)
}

type redemptionService struct {
	store repository.Store
	opts  Options
}

func NewRedemptionService(store repository.Store, opts Options) RedemptionService {
	return &redemptionService{store: store, opts: opts.withDefaults()}
}

func (s *redemptionService) Redeem(ctx context.Context, voucherID, userID uuid.UUID) (*RedemptionResult, error) {
	voucher, err := loadVoucher(ctx, s.store.Vouchers(), voucherID)
	if err != nil {
		s.opts.Metrics.Redemption(outcome(err))
		return nil, err
	}
	result, err := s.redeem(ctx, voucher, userID)
	s.opts.Metrics.Redemption(outcome(err))
	return result, err
}

func (s *redemptionService) RedeemForBusiness(ctx context.Context, businessID, voucherID, userID uuid.UUID) (*RedemptionResult, error) {
	voucher, err := loadVoucher(ctx, s.store.Vouchers(), voucherID)
	if err == nil && !voucher.OwnedBy(businessID) {
		err = ErrUnauthorizedBusiness
	}
	if err != nil {
		s.opts.Metrics.Redemption(outcome(err))
		return nil, err
	}
	result, err := s.redeem(ctx, voucher, userID)
	s.opts.Metrics.Redemption(outcome(err))
	return result, err
}

func (s *redemptionService) redeem(ctx context.Context, voucher *model.Voucher, userID uuid.UUID) (*RedemptionResult, error) {
	now := s.opts.Now()

	// 1. The user must hold a claim
	claim, err := loadClaim(ctx, s.store.CustomerVouchers(), userID, voucher.ID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, ErrNotClaimed
	}

	// 2. Claim must still be open
	if claim.Redeemed() {
		return nil, ErrAlreadyRedeemed
	}
	if claim.Lapsed(now) {
		return nil, fmt.Errorf("%w: claim expired at %s", ErrClaimExpired, claim.ExpiresAt.UTC().Format(time.RFC3339))
	}

	// 3. Voucher must still honour claims
	if err := CheckRedeemable(voucher, now); err != nil {
		return nil, err
	}

	// 4. Early cap check; the conditional increment below is authoritative
	if voucher.CapReached() {
		return nil, ErrMaxRedemptionsReached
	}

	// 5. Status flip and counter increment commit together or not at all
	var current int
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if err := tx.CustomerVouchers().MarkRedeemed(ctx, claim.ID, now); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("failed to mark claim redeemed: %w", err)
		}
		if err := tx.Vouchers().IncrementRedemptions(ctx, voucher.ID); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return ErrMaxRedemptionsReached
			}
			return fmt.Errorf("failed to increment redemptions: %w", err)
		}
		updated, err := tx.Vouchers().GetByID(ctx, voucher.ID)
		if err != nil {
			return fmt.Errorf("failed to reload voucher: %w", err)
		}
		current = updated.CurrentRedemptions
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 6. Best-effort cache invalidation
	s.opts.invalidator().voucher(ctx, voucher.ID)

	claim.Status = model.ClaimStatusRedeemed
	claim.RedeemedAt = &now
	voucher.CurrentRedemptions = current

	s.opts.Logger.Info("voucher redeemed",
		zap.String("voucher_id", voucher.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return &RedemptionResult{
		Claim:                claim,
		VoucherID:            voucher.ID,
		CurrentRedemptions:   current,
		RemainingRedemptions: voucher.RemainingRedemptions(),
	}, nil
}
