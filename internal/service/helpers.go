package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/repository"
)

// ParseID parses a path or body identifier into a uuid.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

func loadVoucher(ctx context.Context, vouchers repository.VoucherRepository, id uuid.UUID) (*model.Voucher, error) {
	voucher, err := vouchers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}
	return voucher, nil
}

func loadClaim(ctx context.Context, claims repository.CustomerVoucherRepository, userID, voucherID uuid.UUID) (*model.CustomerVoucher, error) {
	cv, err := claims.Get(ctx, userID, voucherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load claim: %w", err)
	}
	return cv, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return CodeOf(err)
}
