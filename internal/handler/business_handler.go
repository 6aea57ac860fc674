package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/service"
	"marketplace/voucherhub/pkg/response"
)

// BusinessHandler serves voucher management for the owning business.
type BusinessHandler struct {
	vouchers    service.VoucherService
	redemptions service.RedemptionService
	scans       service.ScanService
}

func NewBusinessHandler(vouchers service.VoucherService, redemptions service.RedemptionService, scans service.ScanService) *BusinessHandler {
	return &BusinessHandler{vouchers: vouchers, redemptions: redemptions, scans: scans}
}

// scoped resolves the acting business and the :id parameter.
func (h *BusinessHandler) scoped(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	businessID, err := getBusinessIDFromContext(c)
	if err != nil {
		response.Forbidden(c, "business access required")
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := pathID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return businessID, id, true
}

func (h *BusinessHandler) Create(c *gin.Context) {
	businessID, err := getBusinessIDFromContext(c)
	if err != nil {
		response.Forbidden(c, "business access required")
		return
	}

	var req service.CreateVoucherInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	voucher, err := h.vouchers.Create(c.Request.Context(), businessID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, voucher)
}

// List returns the business's vouchers in any state, filtered by ?state=a,b.
func (h *BusinessHandler) List(c *gin.Context) {
	businessID, err := getBusinessIDFromContext(c)
	if err != nil {
		response.Forbidden(c, "business access required")
		return
	}

	var states []model.VoucherState
	if raw := c.Query("state"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			states = append(states, model.VoucherState(strings.TrimSpace(s)))
		}
	}
	categoryID, err := queryUUID(c, "category_id")
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := h.vouchers.ListByBusiness(c.Request.Context(), businessID, service.ListInput{
		CategoryID: categoryID,
		States:     states,
		Search:     c.Query("q"),
		Limit:      queryInt(c, "limit"),
		Offset:     queryInt(c, "offset"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, page)
}

func (h *BusinessHandler) Get(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}
	voucher, err := h.vouchers.GetForBusiness(c.Request.Context(), businessID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, voucher)
}

func (h *BusinessHandler) Update(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}

	var req service.UpdateVoucherInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	voucher, err := h.vouchers.Update(c.Request.Context(), businessID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, voucher)
}

func (h *BusinessHandler) Delete(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}
	if err := h.vouchers.Delete(c.Request.Context(), businessID, id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *BusinessHandler) Publish(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}
	voucher, err := h.vouchers.Publish(c.Request.Context(), businessID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, voucher)
}

func (h *BusinessHandler) Expire(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}
	voucher, err := h.vouchers.Expire(c.Request.Context(), businessID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, voucher)
}

type BusinessRedeemRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Redeem redeems a customer's claim at the counter.
func (h *BusinessHandler) Redeem(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}

	var req BusinessRedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	userID, err := service.ParseID(req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.redemptions.RedeemForBusiness(c.Request.Context(), businessID, id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

type BusinessScanRequest struct {
	ScanRequest
	UserID string `json:"user_id"`
}

// Scan records a business-side scan, optionally on behalf of a customer.
func (h *BusinessHandler) Scan(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}

	var req BusinessScanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	var userID *uuid.UUID
	if req.UserID != "" {
		parsed, err := service.ParseID(req.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		userID = &parsed
	}

	sc := req.context(userID, &businessID)
	sc.Type = model.ScanTypeBusiness
	result, err := h.scans.Scan(c.Request.Context(), id, sc)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *BusinessHandler) Stats(c *gin.Context) {
	businessID, id, ok := h.scoped(c)
	if !ok {
		return
	}
	stats, err := h.vouchers.Stats(c.Request.Context(), businessID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, stats)
}
