package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

type ClaimResult struct {
	Claim   *model.CustomerVoucher `json:"claim"`
	Voucher *model.Voucher         `json:"voucher"`
}

type ClaimService interface {
	Claim(ctx context.Context, voucherID, userID uuid.UUID) (*ClaimResult, error)
	ListClaims(ctx context.Context, userID uuid.UUID, status *model.ClaimStatus) ([]model.CustomerVoucher, error)
}

type claimService struct {
	store repository.Store
	opts  Options
}

func NewClaimService(store repository.Store, opts Options) ClaimService {
	return &claimService{store: store, opts: opts.withDefaults()}
}

func (s *claimService) Claim(ctx context.Context, voucherID, userID uuid.UUID) (*ClaimResult, error) {
	result, err := s.claim(ctx, voucherID, userID)
	s.opts.Metrics.Claim(outcome(err))
	return result, err
}

func (s *claimService) claim(ctx context.Context, voucherID, userID uuid.UUID) (*ClaimResult, error) {
	// 1. Voucher must exist and not be soft-deleted
	voucher, err := loadVoucher(ctx, s.store.Vouchers(), voucherID)
	if err != nil {
		return nil, err
	}

	// 2. Published and inside its validity window
	now := s.opts.Now()
	if err := CheckClaimable(voucher, now); err != nil {
		return nil, err
	}

	// 3. Fast path for an existing claim; the unique index is what actually decides
	existing, err := loadClaim(ctx, s.store.CustomerVouchers(), userID, voucherID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyClaimed
	}

	// 4. Insert the ledger entry
	claim := &model.CustomerVoucher{
		CustomerID: userID,
		VoucherID:  voucherID,
		Status:     model.ClaimStatusClaimed,
		ClaimedAt:  now,
		ExpiresAt:  now.Add(s.opts.ClaimExpiry),
	}
	if err := s.store.CustomerVouchers().Create(ctx, claim); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to create claim: %w", err)
	}

	// 5. Best-effort cache invalidation
	s.opts.invalidator().voucher(ctx, voucherID)

	s.opts.Logger.Info("voucher claimed",
		zap.String("voucher_id", voucherID.String()),
		zap.String("user_id", userID.String()),
	)
	return &ClaimResult{Claim: claim, Voucher: voucher}, nil
}

func (s *claimService) ListClaims(ctx context.Context, userID uuid.UUID, status *model.ClaimStatus) ([]model.CustomerVoucher, error) {
	entries, err := s.store.CustomerVouchers().ListByCustomer(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	return entries, nil
}
