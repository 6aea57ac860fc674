package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle.
// Repositories obtained from the Store passed to WithTransaction's fn
// run inside that transaction.
type Store interface {
	Vouchers() VoucherRepository
	CustomerVouchers() CustomerVoucherRepository
	Scans() VoucherScanRepository

	// WithTransaction commits when fn returns nil and rolls back when fn
	// returns an error or panics.
	WithTransaction(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	db               *gorm.DB
	vouchers         VoucherRepository
	customerVouchers CustomerVoucherRepository
	scans            VoucherScanRepository
}

func NewPGStore(db *gorm.DB) Store {
	return &pgStore{
		db:               db,
		vouchers:         NewPGVoucherRepository(db),
		customerVouchers: NewPGCustomerVoucherRepository(db),
		scans:            NewPGVoucherScanRepository(db),
	}
}

func (s *pgStore) Vouchers() VoucherRepository                 { return s.vouchers }
func (s *pgStore) CustomerVouchers() CustomerVoucherRepository { return s.customerVouchers }
func (s *pgStore) Scans() VoucherScanRepository                { return s.scans }

func (s *pgStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewPGStore(tx))
	})
}
