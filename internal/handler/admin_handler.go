package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/voucherhub/internal/model"
	"marketplace/voucherhub/internal/service"
	"marketplace/voucherhub/pkg/response"
)

type AdminHandler struct {
	vouchers service.VoucherService
}

func NewAdminHandler(vouchers service.VoucherService) *AdminHandler {
	return &AdminHandler{vouchers: vouchers}
}

type TransitionRequest struct {
	State model.VoucherState `json:"state" binding:"required"`
}

// Transition applies any allowed state change, including suspended -> published.
func (h *AdminHandler) Transition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	voucher, err := h.vouchers.Transition(c.Request.Context(), id, req.State)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, voucher)
}

// ExpireOverdue runs the expiry sweep on demand.
func (h *AdminHandler) ExpireOverdue(c *gin.Context) {
	n, err := h.vouchers.ExpireOverdue(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"expired": n})
}
