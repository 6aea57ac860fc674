package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/service"
	"marketplace/voucherhub/pkg/response"
)

// VoucherHandler serves the customer-facing voucher endpoints.
type VoucherHandler struct {
	vouchers    service.VoucherService
	claims      service.ClaimService
	redemptions service.RedemptionService
	scans       service.ScanService
	resolver    service.CodeResolver
}

func NewVoucherHandler(
	vouchers service.VoucherService,
	claims service.ClaimService,
	redemptions service.RedemptionService,
	scans service.ScanService,
	resolver service.CodeResolver,
) *VoucherHandler {
	return &VoucherHandler{
		vouchers:    vouchers,
		claims:      claims,
		redemptions: redemptions,
		scans:       scans,
		resolver:    resolver,
	}
}

// List returns published vouchers.
func (h *VoucherHandler) List(c *gin.Context) {
	businessID, err := queryUUID(c, "business_id")
	if err != nil {
		respondError(c, err)
		return
	}
	categoryID, err := queryUUID(c, "category_id")
	if err != nil {
		respondError(c, err)
		return
	}

	page, err := h.vouchers.ListPublished(c.Request.Context(), service.ListInput{
		BusinessID: businessID,
		CategoryID: categoryID,
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

func (h *VoucherHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	voucher, err := h.vouchers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, voucher)
}

// Resolve looks a voucher up by any of its codes without recording a scan.
func (h *VoucherHandler) Resolve(c *gin.Context) {
	res, err := h.resolver.ResolveByCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Voucher.State == model.VoucherStateDraft {
		respondError(c, service.ErrVoucherNotFound)
		return
	}
	response.Success(c, res)
}

func (h *VoucherHandler) Claim(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.claims.Claim(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

func (h *VoucherHandler) Redeem(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.redemptions.Redeem(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// MyVouchers lists the caller's ledger, optionally filtered by ?status=.
func (h *VoucherHandler) MyVouchers(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}

	var status *model.ClaimStatus
	if raw := c.Query("status"); raw != "" {
		s := model.ClaimStatus(raw)
		if s != model.ClaimStatusClaimed && s != model.ClaimStatusRedeemed {
			response.BadRequest(c, "status must be claimed or redeemed")
			return
		}
		status = &s
	}

	entries, err := h.claims.ListClaims(c.Request.Context(), userID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, entries)
}
