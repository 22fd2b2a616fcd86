package handlers

import (
	"github.com/gin-gonic/gin"

	"backoffice/internal/domain/inventory"
	"backoffice/internal/infrastructure/http/v1/dto"
)

// AccountHandler exposes current account transactions and reports.
type AccountHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(base *BaseHandler, service *inventory.Service) *AccountHandler {
	return &AccountHandler{BaseHandler: base, service: service}
}

// RecordTransaction handles POST /accounts/:id/transactions.
func (h *AccountHandler) RecordTransaction(c *gin.Context) {
	accountID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.AccountTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	t, err := h.service.RecordAccountTransaction(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.CreatedWith(c, t)
}

// Aging handles GET /accounts/:id/aging.
func (h *AccountHandler) Aging(c *gin.Context) {
	accountID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var q dto.AsOfQuery
	if !h.BindQuery(c, &q) {
		return
	}

	report, err := h.service.AccountAging(c.Request.Context(), accountID, q.Resolve(h.now()))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// Balance handles GET /accounts/:id/balance.
func (h *AccountHandler) Balance(c *gin.Context) {
	accountID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var q dto.AsOfQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf := q.Resolve(h.now())

	balance, err := h.service.AccountBalanceAt(c.Request.Context(), accountID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.BalanceResponse{AccountID: accountID, AsOf: asOf, Balance: balance})
}
