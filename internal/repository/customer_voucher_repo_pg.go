package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace/voucherhub/internal/model"
)

type pgCustomerVoucherRepository struct {
	db *gorm.DB
}

func NewPGCustomerVoucherRepository(db *gorm.DB) CustomerVoucherRepository {
	return &pgCustomerVoucherRepository{db: db}
}

func (r *pgCustomerVoucherRepository) Create(ctx context.Context, cv *model.CustomerVoucher) error {
	return translate(r.db.WithContext(ctx).Omit("Voucher").Create(cv).Error)
}

func (r *pgCustomerVoucherRepository) Get(ctx context.Context, customerID, voucherID uuid.UUID) (*model.CustomerVoucher, error) {
	var cv model.CustomerVoucher
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND voucher_id = ?", customerID, voucherID).
		First(&cv).Error
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *pgCustomerVoucherRepository) MarkRedeemed(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.CustomerVoucher{}).
		Where("id = ? AND status = ?", id, model.ClaimStatusClaimed).
		Updates(map[string]interface{}{
			"status":      model.ClaimStatusRedeemed,
			"redeemed_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *pgCustomerVoucherRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, status *model.ClaimStatus) ([]model.CustomerVoucher, error) {
	q := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var entries []model.CustomerVoucher
	err := q.Preload("Voucher").Order("claimed_at DESC").Find(&entries).Error
	return entries, err
}

func (r *pgCustomerVoucherRepository) CountByVoucher(ctx context.Context, voucherID uuid.UUID) (ClaimCounts, error) {
	var rows []struct {
		Status model.ClaimStatus
		N      int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.CustomerVoucher{}).
		Select("status, COUNT(*) AS n").
		Where("voucher_id = ?", voucherID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return ClaimCounts{}, err
	}

	var counts ClaimCounts
	for _, row := range rows {
		switch row.Status {
		case model.ClaimStatusClaimed:
			counts.Claimed = row.N
		case model.ClaimStatusRedeemed:
			counts.Redeemed = row.N
		}
	}
	return counts, nil
}
