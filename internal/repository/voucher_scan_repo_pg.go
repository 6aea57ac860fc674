package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace/voucherhub/internal/model"
)

type pgVoucherScanRepository struct {
	db *gorm.DB
}

func NewPGVoucherScanRepository(db *gorm.DB) VoucherScanRepository {
	return &pgVoucherScanRepository{db: db}
}

func (r *pgVoucherScanRepository) Append(ctx context.Context, scan *model.VoucherScan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

func (r *pgVoucherScanRepository) CountByVoucher(ctx context.Context, voucherID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.VoucherScan{}).
		Where("voucher_id = ?", voucherID).
		Count(&n).Error
	return n, err
}
