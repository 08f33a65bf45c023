package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/yazilimxyz/marketplace/internal/application/catalog"
)

// VariantHandler handles merchant catalog writes
type VariantHandler struct {
	BaseHandler
	variantService *catalogapp.VariantService
}

// NewVariantHandler creates a new VariantHandler
func NewVariantHandler(variantService *catalogapp.VariantService) *VariantHandler {
	return &VariantHandler{variantService: variantService}
}

// UpdateVariant handles PATCH /variants/:id
func (h *VariantHandler) UpdateVariant(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req catalogapp.UpdateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.variantService.UpdateVariant(c.Request.Context(), caller, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Restock handles POST /variants/:id/restock
func (h *VariantHandler) Restock(c *gin.Context) {
	caller, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	var req catalogapp.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.variantService.Restock(c.Request.Context(), caller, id, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
