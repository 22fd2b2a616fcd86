package handlers

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/domain/inventory"
	"backoffice/internal/infrastructure/http/v1/dto"
)

// InventoryHandler exposes the stock ledger operations.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// RecordMovement handles POST /inventory/movements.
func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.RecordMovement(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, res)
}

// RecordInvoice handles POST /inventory/invoices.
func (h *InventoryHandler) RecordInvoice(c *gin.Context) {
	var req dto.RecordInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.RecordInvoice(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, res)
}

// RecordAdjustment handles POST /inventory/adjustments.
func (h *InventoryHandler) RecordAdjustment(c *gin.Context) {
	var req dto.RecordAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.RecordAdjustment(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, res)
}

// Stock handles GET /inventory/stock.
func (h *InventoryHandler) Stock(c *gin.Context) {
	var req dto.StockQuery
	if !h.BindQuery(c, &req) {
		return
	}
	q, err := req.ToQuery(h.now())
	if err != nil {
		h.Error(c, err)
		return
	}

	qty, err := h.service.StockAt(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.StockResponse{
		MaterialID:  q.MaterialID,
		WarehouseID: q.WarehouseID,
		AsOf:        q.AsOf,
		Quantity:    qty,
	})
}

// Movements handles GET /inventory/movements.
func (h *InventoryHandler) Movements(c *gin.Context) {
	var req dto.MovementsQuery
	if !h.BindQuery(c, &req) {
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	items, err := h.service.Movements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: filter.Limit, Offset: filter.Offset})
}

// RebuildMaterial handles POST /inventory/materials/:id/rebuild.
func (h *InventoryHandler) RebuildMaterial(c *gin.Context) {
	materialID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	snap, err := h.service.RebuildMaterial(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSnapshot(snap))
}

// Propagate handles POST /recipes/propagate.
func (h *InventoryHandler) Propagate(c *gin.Context) {
	var req dto.PropagateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	materialID, ok := h.BodyID(c, "materialId", req.MaterialID)
	if !ok {
		return
	}

	res, err := h.service.PropagateCostChange(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}
