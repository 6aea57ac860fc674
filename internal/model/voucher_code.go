package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CodeType string

const (
	CodeTypeQR     CodeType = "qr"
	CodeTypeShort  CodeType = "short"
	CodeTypeStatic CodeType = "static"
)

func (t CodeType) Valid() bool {
	switch t {
	case CodeTypeQR, CodeTypeShort, CodeTypeStatic:
		return true
	}
	return false
}

// VoucherCode is one machine-resolvable identifier of a voucher.
// A code string is unique among active codes of the same type.
type VoucherCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VoucherID uuid.UUID `gorm:"type:uuid;not null;index" json:"voucher_id"`
	Code      string    `gorm:"type:varchar(128);not null" json:"code"`
	Type      CodeType  `gorm:"type:varchar(16);not null" json:"type"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VoucherCode) TableName() string { return "voucher_codes" }

func (c *VoucherCode) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Code = NormalizeCode(c.Code)
	return nil
}

// NormalizeCode canonicalizes human-typed short and static codes: surrounding
// space is dropped and letters are upper-cased. QR payloads are matched
// exactly and never pass through here.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
