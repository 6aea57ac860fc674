package model

import "gorm.io/gorm"

// AutoMigrate runs GORM auto-migration for all models and creates custom indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Voucher{},
		&VoucherCode{},
		&CustomerVoucher{},
		&VoucherScan{},
	); err != nil {
		return err
	}

	// Primary QR payload is unique among non-deleted vouchers.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_vouchers_qr_code " +
			"ON vouchers (qr_code) WHERE deleted_at IS NULL",
	).Error; err != nil {
		return err
	}

	// A code string is unique among active codes of the same type.
	return db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_voucher_codes_type_code_active " +
			"ON voucher_codes (type, code) WHERE active",
	).Error
}
