package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"marketplace/voucherhub/internal/model"
)

// VoucherFilter narrows List queries. Zero values mean "no constraint".
type VoucherFilter struct {
	BusinessID *uuid.UUID
	CategoryID *uuid.UUID
	States     []model.VoucherState
	Search     string
	Limit      int
	Offset     int
}

type VoucherRepository interface {
	Create(ctx context.Context, voucher *model.Voucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
	GetByQRCode(ctx context.Context, qr string) (*model.Voucher, error)
	GetByActiveCode(ctx context.Context, codeType model.CodeType, code string) (*model.Voucher, error)
	List(ctx context.Context, filter VoucherFilter) ([]model.Voucher, int64, error)
	ListEndedBefore(ctx context.Context, at time.Time, states []model.VoucherState, limit int) ([]model.Voucher, error)
	// UpdateDraft writes the editable columns of voucher only while it is a draft.
	UpdateDraft(ctx context.Context, voucher *model.Voucher) error

	// UpdateState moves id from -> to only if the stored state is still from.
	UpdateState(ctx context.Context, id uuid.UUID, from, to model.VoucherState, at time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// HardDelete removes a voucher and its codes, only while it is a draft.
	HardDelete(ctx context.Context, id uuid.UUID) error
	DeactivateCodes(ctx context.Context, voucherID uuid.UUID) error

	// IncrementRedemptions adds one redemption unless the cap is already reached.
	// It returns ErrConditionFailed when no row was updated.
	IncrementRedemptions(ctx context.Context, id uuid.UUID) error
	IncrementScanCount(ctx context.Context, id uuid.UUID) error
}
