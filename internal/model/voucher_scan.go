package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScanType string

const (
	ScanTypeBusiness ScanType = "business"
	ScanTypeCustomer ScanType = "customer"
)

type ScanSource string

const (
	ScanSourceQR     ScanSource = "qr"
	ScanSourceShort  ScanSource = "short"
	ScanSourceStatic ScanSource = "static"
	ScanSourceLink   ScanSource = "link"
	ScanSourceManual ScanSource = "manual"
)

func (s ScanSource) Valid() bool {
	switch s {
	case ScanSourceQR, ScanSourceShort, ScanSourceStatic, ScanSourceLink, ScanSourceManual:
		return true
	}
	return false
}

// DeviceInfo is a JSON blob stored in the device_info column.
type DeviceInfo map[string]interface{}

func (d DeviceInfo) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *DeviceInfo) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return errors.New("DeviceInfo.Scan: unsupported column type")
	}
}

// VoucherScan is an append-only analytics record.
type VoucherScan struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	VoucherID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"voucher_id"`
	CustomerID *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	BusinessID *uuid.UUID `gorm:"type:uuid" json:"business_id,omitempty"`
	ScanType   ScanType   `gorm:"type:varchar(16);not null" json:"scan_type"`
	Source     ScanSource `gorm:"type:varchar(16);not null" json:"source"`
	DeviceInfo DeviceInfo `gorm:"type:jsonb" json:"device_info,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	ScannedAt  time.Time  `gorm:"not null;index" json:"scanned_at"`
}

func (VoucherScan) TableName() string { return "voucher_scans" }

func (s *VoucherScan) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
