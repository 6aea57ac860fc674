package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/service"
	"marketplace/voucherhub/pkg/response"
)

type ScanRequest struct {
	Code       string           `json:"code"`
	Type       model.ScanType   `json:"scan_type"`
	Source     model.ScanSource `json:"source"`
	DeviceInfo model.DeviceInfo `json:"device_info"`
	Latitude   *float64         `json:"latitude"`
	Longitude  *float64         `json:"longitude"`
}

func (r ScanRequest) context(userID, businessID *uuid.UUID) service.ScanContext {
	return service.ScanContext{
		UserID:     userID,
		BusinessID: businessID,
		Type:       r.Type,
		Source:     r.Source,
		DeviceInfo: r.DeviceInfo,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
	}
}

func bindScan(c *gin.Context) (ScanRequest, bool) {
	var req ScanRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return req, false
	}
	return req, true
}

// Scan records a customer or anonymous scan of a known voucher.
func (h *VoucherHandler) Scan(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, ok := bindScan(c)
	if !ok {
		return
	}

	result, err := h.scans.Scan(c.Request.Context(), id, req.context(optionalUserID(c), nil))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// ScanCode resolves the posted code and records the scan.
func (h *VoucherHandler) ScanCode(c *gin.Context) {
	req, ok := bindScan(c)
	if !ok {
		return
	}

	result, err := h.scans.ScanByCode(c.Request.Context(), req.Code, req.context(optionalUserID(c), nil))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}
