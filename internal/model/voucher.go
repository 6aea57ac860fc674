package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type VoucherState string

const (
	VoucherStateDraft     VoucherState = "draft"
	VoucherStatePublished VoucherState = "published"
	VoucherStateClaimed   VoucherState = "claimed"
	VoucherStateRedeemed  VoucherState = "redeemed"
	VoucherStateExpired   VoucherState = "expired"
	VoucherStateSuspended VoucherState = "suspended"
)

// VoucherStates lists every state a voucher can be in.
var VoucherStates = []VoucherState{
	VoucherStateDraft,
	VoucherStatePublished,
	VoucherStateClaimed,
	VoucherStateRedeemed,
	VoucherStateExpired,
	VoucherStateSuspended,
}

func (s VoucherState) Valid() bool {
	for _, st := range VoucherStates {
		if s == st {
			return true
		}
	}
	return false
}

type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	DiscountTypeFreeItem    DiscountType = "free_item"
	DiscountTypeCustom      DiscountType = "custom"
)

func (t DiscountType) Valid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixedAmount, DiscountTypeFreeItem, DiscountTypeCustom:
		return true
	}
	return false
}

type Voucher struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID         uuid.UUID           `gorm:"type:uuid;not null;index" json:"business_id"`
	CategoryID         *uuid.UUID          `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Title              string              `gorm:"type:varchar(255);not null" json:"title"`
	Description        string              `gorm:"type:text" json:"description,omitempty"`
	State              VoucherState        `gorm:"type:varchar(16);not null;default:'draft';index" json:"state"`
	DiscountType       DiscountType        `gorm:"type:varchar(32);not null" json:"discount_type"`
	DiscountValue      decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"discount_value"`
	FixedValue         decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"fixed_value"`
	ValidFrom          *time.Time          `json:"valid_from,omitempty"`
	ValidUntil         *time.Time          `json:"valid_until,omitempty"`
	MaxRedemptions     *int                `json:"max_redemptions,omitempty"`
	CurrentRedemptions int                 `gorm:"not null;default:0" json:"current_redemptions"`
	ScanCount          int                 `gorm:"not null;default:0" json:"scan_count"`
	QRCode             string              `gorm:"type:varchar(128);not null" json:"qr_code"`
	PublishedAt        *time.Time          `json:"published_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	DeletedAt          gorm.DeletedAt      `gorm:"index" json:"-"`

	Codes []VoucherCode `gorm:"foreignKey:VoucherID" json:"codes,omitempty"`
}

func (Voucher) TableName() string { return "vouchers" }

func (v *Voucher) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// CapReached reports whether the redemption cap, if any, has been hit.
func (v *Voucher) CapReached() bool {
	return v.MaxRedemptions != nil && v.CurrentRedemptions >= *v.MaxRedemptions
}

// RemainingRedemptions returns nil when the voucher is uncapped.
func (v *Voucher) RemainingRedemptions() *int {
	if v.MaxRedemptions == nil {
		return nil
	}
	left := *v.MaxRedemptions - v.CurrentRedemptions
	if left < 0 {
		left = 0
	}
	return &left
}

// Started reports whether now is at or after ValidFrom.
func (v *Voucher) Started(now time.Time) bool {
	return v.ValidFrom == nil || !now.Before(*v.ValidFrom)
}

// Ended reports whether now is past ValidUntil.
func (v *Voucher) Ended(now time.Time) bool {
	return v.ValidUntil != nil && now.After(*v.ValidUntil)
}

// OwnedBy reports whether the voucher was issued by businessID.
func (v *Voucher) OwnedBy(businessID uuid.UUID) bool {
	return v.BusinessID == businessID
}
