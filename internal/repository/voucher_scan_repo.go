package repository

import (
	"context"

	"github.com/google/uuid"

	"marketplace/voucherhub/internal/model"
)

// VoucherScanRepository is append-only.
type VoucherScanRepository interface {
	Append(ctx context.Context, scan *model.VoucherScan) error
	CountByVoucher(ctx context.Context, voucherID uuid.UUID) (int64, error)
}
