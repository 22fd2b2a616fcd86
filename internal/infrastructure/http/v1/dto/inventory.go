package dto

import (
	"time"

	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
	"backoffice/internal/domain/inventory"
	"backoffice/internal/domain/registers/stock"
)

// --- Request DTOs ---

// RecordMovementRequest records one invoice line.
// Quantity and UnitPrice are in the material's purchase unit.
type RecordMovementRequest struct {
	MaterialID  string         `json:"materialId" binding:"required,uuid"`
	WarehouseID string         `json:"warehouseId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity"`
	UnitPrice   types.Money    `json:"unitPrice"`
	InvoiceType string         `json:"invoiceType" binding:"required,oneof=PURCHASE SALE RETURN"`
	Date        time.Time      `json:"date" binding:"required"`
	InvoiceID   *string        `json:"invoiceId,omitempty" binding:"omitempty,uuid"`
	AccountID   *string        `json:"accountId,omitempty" binding:"omitempty,uuid"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
}

func (r *RecordMovementRequest) ToInput() (inventory.MovementInput, error) {
	var in inventory.MovementInput
	var err error

	if in.MaterialID, err = parseID("materialId", r.MaterialID); err != nil {
		return in, err
	}
	if in.WarehouseID, err = parseID("warehouseId", r.WarehouseID); err != nil {
		return in, err
	}
	if in.InvoiceID, err = parseOptionalID("invoiceId", r.InvoiceID); err != nil {
		return in, err
	}
	if in.AccountID, err = parseOptionalID("accountId", r.AccountID); err != nil {
		return in, err
	}
	in.PurchaseUnitQuantity = r.Quantity
	in.UnitPriceInPurchaseUnit = r.UnitPrice
	in.InvoiceType = inventory.InvoiceType(r.InvoiceType)
	in.Date = r.Date
	in.DueDate = r.DueDate
	return in, nil
}

type InvoiceLineRequest struct {
	MaterialID  string         `json:"materialId" binding:"required,uuid"`
	WarehouseID string         `json:"warehouseId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity"`
	UnitPrice   types.Money    `json:"unitPrice"`
}

// RecordInvoiceRequest records every line of an invoice atomically.
// InvoiceID is generated when omitted.
type RecordInvoiceRequest struct {
	InvoiceID   *string              `json:"invoiceId,omitempty" binding:"omitempty,uuid"`
	InvoiceType string               `json:"invoiceType" binding:"required,oneof=PURCHASE SALE RETURN"`
	Date        time.Time            `json:"date" binding:"required"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
	AccountID   *string              `json:"accountId,omitempty" binding:"omitempty,uuid"`
	Lines       []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

func (r *RecordInvoiceRequest) ToInput() (inventory.InvoiceInput, error) {
	in := inventory.InvoiceInput{
		InvoiceType: inventory.InvoiceType(r.InvoiceType),
		Date:        r.Date,
		DueDate:     r.DueDate,
		Lines:       make([]inventory.InvoiceLine, 0, len(r.Lines)),
	}

	invoiceID, err := parseOptionalID("invoiceId", r.InvoiceID)
	if err != nil {
		return in, err
	}
	if invoiceID != nil {
		in.InvoiceID = *invoiceID
	} else {
		in.InvoiceID = id.New()
	}
	if in.AccountID, err = parseOptionalID("accountId", r.AccountID); err != nil {
		return in, err
	}

	for _, l := range r.Lines {
		materialID, err := parseID("lines.materialId", l.MaterialID)
		if err != nil {
			return in, err
		}
		warehouseID, err := parseID("lines.warehouseId", l.WarehouseID)
		if err != nil {
			return in, err
		}
		in.Lines = append(in.Lines, inventory.InvoiceLine{
			MaterialID:  materialID,
			WarehouseID: warehouseID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
	return in, nil
}

// RecordAdjustmentRequest corrects stock or records waste.
// Quantity is signed and in the consumption unit.
type RecordAdjustmentRequest struct {
	MaterialID  string         `json:"materialId" binding:"required,uuid"`
	WarehouseID string         `json:"warehouseId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity"`
	Reason      string         `json:"reason" binding:"required,max=500"`
	Date        time.Time      `json:"date" binding:"required"`
	Waste       bool           `json:"waste"`
	UnitCost    *types.Money   `json:"unitCost,omitempty"`
}

func (r *RecordAdjustmentRequest) ToInput() (inventory.AdjustmentInput, error) {
	in := inventory.AdjustmentInput{
		SignedQuantity: r.Quantity,
		Reason:         r.Reason,
		Date:           r.Date,
		Waste:          r.Waste,
		UnitCost:       r.UnitCost,
	}
	var err error
	if in.MaterialID, err = parseID("materialId", r.MaterialID); err != nil {
		return in, err
	}
	if in.WarehouseID, err = parseID("warehouseId", r.WarehouseID); err != nil {
		return in, err
	}
	return in, nil
}

// StockQuery asks for stock at a point in time; AsOf defaults to now.
type StockQuery struct {
	MaterialID  string     `form:"materialId" binding:"required,uuid"`
	WarehouseID *string    `form:"warehouseId" binding:"omitempty,uuid"`
	AsOf        *time.Time `form:"asOf" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (q *StockQuery) ToQuery(now time.Time) (inventory.StockQuery, error) {
	out := inventory.StockQuery{AsOf: now}
	var err error
	if out.MaterialID, err = parseID("materialId", q.MaterialID); err != nil {
		return out, err
	}
	if out.WarehouseID, err = parseOptionalID("warehouseId", q.WarehouseID); err != nil {
		return out, err
	}
	if q.AsOf != nil {
		out.AsOf = *q.AsOf
	}
	return out, nil
}

// MovementsQuery lists a material's ledger.
type MovementsQuery struct {
	PageQuery
	MaterialID  string     `form:"materialId" binding:"required,uuid"`
	WarehouseID *string    `form:"warehouseId" binding:"omitempty,uuid"`
	InvoiceID   *string    `form:"invoiceId" binding:"omitempty,uuid"`
	Type        *string    `form:"type" binding:"omitempty,oneof=IN OUT ADJUSTMENT WASTE"`
	From        *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To          *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (q *MovementsQuery) ToFilter() (stock.MovementFilter, error) {
	q.Defaults()
	f := stock.MovementFilter{
		FromDate: q.From,
		ToDate:   q.To,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	var err error
	if f.MaterialID, err = parseID("materialId", q.MaterialID); err != nil {
		return f, err
	}
	if f.WarehouseID, err = parseOptionalID("warehouseId", q.WarehouseID); err != nil {
		return f, err
	}
	if f.InvoiceID, err = parseOptionalID("invoiceId", q.InvoiceID); err != nil {
		return f, err
	}
	if q.Type != nil {
		t := entity.MovementType(*q.Type)
		f.Type = &t
	}
	return f, nil
}

type PropagateRequest struct {
	MaterialID string `json:"materialId" binding:"required,uuid"`
}

// --- Response DTOs ---

type StockResponse struct {
	MaterialID  id.ID          `json:"materialId"`
	WarehouseID *id.ID         `json:"warehouseId,omitempty"`
	AsOf        time.Time      `json:"asOf"`
	Quantity    types.Quantity `json:"quantity"`
}

type RebuildResponse struct {
	MaterialID   id.ID                  `json:"materialId"`
	CurrentStock types.Quantity         `json:"currentStock"`
	AverageCost  types.Money            `json:"averageCost"`
	Warehouses   []*entity.MaterialStock `json:"warehouses"`
}

// FromSnapshot maps a rebuild result.
func FromSnapshot(s *stock.Snapshot) RebuildResponse {
	return RebuildResponse{
		MaterialID:   s.MaterialID,
		CurrentStock: s.CurrentStock,
		AverageCost:  s.AverageCost,
		Warehouses:   s.Warehouses,
	}
}
