package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketplace/voucherhub/internal/model"
)

// ClaimCounts is a per-voucher rollup of ledger entries.
type ClaimCounts struct {
	Claimed  int64 `json:"claimed"`
	Redeemed int64 `json:"redeemed"`
}

type CustomerVoucherRepository interface {
	// Create returns ErrDuplicate if the (customer, voucher) pair already exists.
	Create(ctx context.Context, cv *model.CustomerVoucher) error
	Get(ctx context.Context, customerID, voucherID uuid.UUID) (*model.CustomerVoucher, error)
	// MarkRedeemed flips a claimed entry to redeemed. ErrConditionFailed if it was not claimed.
	MarkRedeemed(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, status *model.ClaimStatus) ([]model.CustomerVoucher, error)
	CountByVoucher(ctx context.Context, voucherID uuid.UUID) (ClaimCounts, error)
}
