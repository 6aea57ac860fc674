package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace/voucherhub/internal/model"
)

type pgVoucherRepository struct {
	db *gorm.DB
}

func NewPGVoucherRepository(db *gorm.DB) VoucherRepository {
	return &pgVoucherRepository{db: db}
}

func activeCodes(db *gorm.DB) *gorm.DB {
	return db.Where("active = ?", true)
}

func (r *pgVoucherRepository) Create(ctx context.Context, voucher *model.Voucher) error {
	return translate(r.db.WithContext(ctx).Create(voucher).Error)
}

func (r *pgVoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.WithContext(ctx).
		Preload("Codes", activeCodes).
		First(&voucher, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *pgVoucherRepository) GetByQRCode(ctx context.Context, qr string) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.WithContext(ctx).
		Preload("Codes", activeCodes).
		First(&voucher, "qr_code = ?", strings.TrimSpace(qr)).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *pgVoucherRepository) GetByActiveCode(ctx context.Context, codeType model.CodeType, code string) (*model.Voucher, error) {
	var voucher model.Voucher
	err := r.db.WithContext(ctx).
		Joins("JOIN voucher_codes ON voucher_codes.voucher_id = vouchers.id").
		Where("voucher_codes.type = ? AND voucher_codes.code = ? AND voucher_codes.active = ?", codeType, model.NormalizeCode(code), true).
		Preload("Codes", activeCodes).
		First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (f VoucherFilter) scope(db *gorm.DB) *gorm.DB {
	if f.BusinessID != nil {
		db = db.Where("business_id = ?", *f.BusinessID)
	}
	if f.CategoryID != nil {
		db = db.Where("category_id = ?", *f.CategoryID)
	}
	if len(f.States) > 0 {
		db = db.Where("state IN ?", f.States)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		db = db.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	return db
}

func (r *pgVoucherRepository) List(ctx context.Context, filter VoucherFilter) ([]model.Voucher, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Voucher{}).Scopes(filter.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Scopes(filter.scope).Preload("Codes", activeCodes).Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var vouchers []model.Voucher
	if err := q.Find(&vouchers).Error; err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

func (r *pgVoucherRepository) ListEndedBefore(ctx context.Context, at time.Time, states []model.VoucherState, limit int) ([]model.Voucher, error) {
	q := r.db.WithContext(ctx).
		Where("valid_until IS NOT NULL AND valid_until < ?", at).
		Where("state IN ?", states).
		Order("valid_until ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var vouchers []model.Voucher
	if err := q.Find(&vouchers).Error; err != nil {
		return nil, err
	}
	return vouchers, nil
}

var editableColumns = []string{
	"category_id", "title", "description", "discount_type", "discount_value",
	"fixed_value", "valid_from", "valid_until", "max_redemptions", "updated_at",
}

func (r *pgVoucherRepository) UpdateDraft(ctx context.Context, voucher *model.Voucher) error {
	res := r.db.WithContext(ctx).
		Model(voucher).
		Where("state = ?", model.VoucherStateDraft).
		Select(editableColumns).
		Updates(voucher)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *pgVoucherRepository) UpdateState(ctx context.Context, id uuid.UUID, from, to model.VoucherState, at time.Time) error {
	updates := map[string]interface{}{
		"state":      to,
		"updated_at": at,
	}
	if to == model.VoucherStatePublished {
		updates["published_at"] = at
	}

	res := r.db.WithContext(ctx).
		Model(&model.Voucher{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *pgVoucherRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Voucher{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *pgVoucherRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().
			Where("id = ? AND state = ?", id, model.VoucherStateDraft).
			Delete(&model.Voucher{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConditionFailed
		}
		return tx.Where("voucher_id = ?", id).Delete(&model.VoucherCode{}).Error
	})
}

func (r *pgVoucherRepository) DeactivateCodes(ctx context.Context, voucherID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.VoucherCode{}).
		Where("voucher_id = ? AND active = ?", voucherID, true).
		Update("active", false).Error
}

func (r *pgVoucherRepository) IncrementRedemptions(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&model.Voucher{}).
		Where("id = ?", id).
		Where("(max_redemptions IS NULL OR current_redemptions < max_redemptions)").
		UpdateColumn("current_redemptions", gorm.Expr("current_redemptions + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *pgVoucherRepository) IncrementScanCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Voucher{}).
		Where("id = ?", id).
		UpdateColumn("scan_count", gorm.Expr("scan_count + 1")).
		Error
}
