package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClaimStatus string

const (
	ClaimStatusClaimed  ClaimStatus = "claimed"
	ClaimStatusRedeemed ClaimStatus = "redeemed"
)

// CustomerVoucher is a ledger entry tying one customer to one voucher.
// Rows are never deleted; (customer_id, voucher_id) is unique.
type CustomerVoucher struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_customer_voucher" json:"customer_id"`
	VoucherID  uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_customer_voucher;index" json:"voucher_id"`
	Status     ClaimStatus `gorm:"type:varchar(16);not null" json:"status"`
	ClaimedAt  time.Time   `gorm:"not null" json:"claimed_at"`
	RedeemedAt *time.Time  `json:"redeemed_at,omitempty"`
	ExpiresAt  time.Time   `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`

	Voucher *Voucher `gorm:"foreignKey:VoucherID" json:"voucher,omitempty"`
}

func (CustomerVoucher) TableName() string { return "customer_vouchers" }

func (cv *CustomerVoucher) BeforeCreate(*gorm.DB) error {
	if cv.ID == uuid.Nil {
		cv.ID = uuid.New()
	}
	return nil
}

func (cv *CustomerVoucher) Redeemed() bool {
	return cv.Status == ClaimStatusRedeemed
}

// Lapsed reports whether the claim itself has expired at now.
func (cv *CustomerVoucher) Lapsed(now time.Time) bool {
	return now.After(cv.ExpiresAt)
}
