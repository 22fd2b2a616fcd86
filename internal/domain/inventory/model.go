package inventory

import (
	"context"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/entity"
	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// InvoiceType is the kind of invoice that triggers stock movements.
type InvoiceType string

const (
	InvoicePurchase InvoiceType = "PURCHASE"
	InvoiceSale     InvoiceType = "SALE"
	InvoiceReturn   InvoiceType = "RETURN"
)

// IsValid reports whether t is a known invoice type.
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoicePurchase, InvoiceSale, InvoiceReturn:
		return true
	}
	return false
}

// MovementType returns the ledger movement type produced by the invoice.
func (t InvoiceType) MovementType() entity.MovementType {
	if t == InvoicePurchase {
		return entity.MovementIn
	}
	return entity.MovementOut
}

// AccountTransactionType returns the account entry the invoice posts:
// a purchase is owed to the supplier, sales and returns are owed to us.
func (t InvoiceType) AccountTransactionType() entity.AccountTransactionType {
	if t == InvoicePurchase {
		return entity.TransactionCredit
	}
	return entity.TransactionDebt
}

// MovementInput records one purchase or sale line.
// Quantity and price are expressed in the material's purchase unit.
type MovementInput struct {
	MaterialID              id.ID
	WarehouseID             id.ID
	PurchaseUnitQuantity    types.Quantity
	UnitPriceInPurchaseUnit types.Money
	InvoiceType             InvoiceType
	Date                    time.Time
	InvoiceID               *id.ID

	// AccountID, when set, posts the line amount to the counterparty account.
	AccountID *id.ID
	DueDate   *time.Time
}

// MovementResult is the outcome of a stock mutation.
type MovementResult struct {
	Movement           *entity.StockMovement      `json:"movement"`
	CurrentStock       types.Quantity             `json:"currentStock"`
	AverageCost        types.Money                `json:"averageCost"`
	WarehouseStock     *entity.MaterialStock      `json:"warehouseStock,omitempty"`
	AccountTransaction *entity.AccountTransaction `json:"accountTransaction,omitempty"`
}

// InvoiceLine is one material line of an invoice.
type InvoiceLine struct {
	MaterialID  id.ID
	WarehouseID id.ID
	Quantity    types.Quantity
	UnitPrice   types.Money
}

// InvoiceInput records all lines of an invoice atomically.
type InvoiceInput struct {
	InvoiceID   id.ID
	InvoiceType InvoiceType
	Date        time.Time
	DueDate     *time.Time
	AccountID   *id.ID
	Lines       []InvoiceLine
}

// InvoiceResult is the outcome of RecordInvoice.
type InvoiceResult struct {
	InvoiceID          id.ID                      `json:"invoiceId"`
	Lines              []*MovementResult          `json:"lines"`
	Total              types.Money                `json:"total"`
	AccountTransaction *entity.AccountTransaction `json:"accountTransaction,omitempty"`
}

// AdjustmentInput records a stock correction or waste.
// SignedQuantity is in the consumption unit.
type AdjustmentInput struct {
	MaterialID     id.ID
	WarehouseID    id.ID
	SignedQuantity types.Quantity
	Reason         string
	Date           time.Time

	// Waste records a WASTE movement instead of ADJUSTMENT.
	Waste bool

	// UnitCost prices a positive adjustment; the current average is used when nil.
	UnitCost *types.Money
}

// StockQuery asks for stock at a point in time.
// A nil WarehouseID means the whole-material total.
type StockQuery struct {
	MaterialID  id.ID
	WarehouseID *id.ID
	AsOf        time.Time
}

// CostChangeNotifier is told, after commit, that a material's average cost changed.
type CostChangeNotifier interface {
	MaterialCostChanged(ctx context.Context, materialID id.ID) error
}

// EventPublisher writes domain events inside the ledger transaction.
type EventPublisher interface {
	PublishMaterialCostChanged(ctx context.Context, materialID id.ID, previous, current types.Money) error
}

// Metrics receives engine counters.
type Metrics interface {
	MovementRecorded(t entity.MovementType)
	BalancesRecalculated(n int)
	AccountTransactionRecorded(t entity.AccountTransactionType)
	CostPropagated(updatedRecipes int, err error)
	ObserveOperation(op string, d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) MovementRecorded(entity.MovementType) {}
func (nopMetrics) BalancesRecalculated(int) {}
func (nopMetrics) AccountTransactionRecorded(entity.AccountTransactionType) {}
func (nopMetrics) CostPropagated(int, error) {}
func (nopMetrics) ObserveOperation(string, time.Duration, error) {}

func (in *MovementInput) validate() error {
	if !in.InvoiceType.IsValid() {
		return apperror.NewValidation("unknown invoice type").
			WithDetail("invoice_type", string(in.InvoiceType))
	}
	if !in.PurchaseUnitQuantity.IsPositive() {
		return apperror.NewInvalidQuantity(string(in.InvoiceType), in.PurchaseUnitQuantity.String(),
			"invoice quantity must be positive")
	}
	if in.UnitPriceInPurchaseUnit.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("unit_price", in.UnitPriceInPurchaseUnit.String())
	}
	if in.Date.IsZero() {
		return apperror.NewValidation("date is required")
	}
	return nil
}

func (in *InvoiceInput) validate() error {
	if id.IsNil(in.InvoiceID) {
		return apperror.NewValidation("invoice id is required")
	}
	if len(in.Lines) == 0 {
		return apperror.NewValidation("invoice has no lines")
	}
	for i, line := range in.Lines {
		mi := in.movementInput(line)
		if err := mi.validate(); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("line", i)
			}
			return err
		}
	}
	return nil
}

func (in *InvoiceInput) movementInput(line InvoiceLine) MovementInput {
	invoiceID := in.InvoiceID
	return MovementInput{
		MaterialID:              line.MaterialID,
		WarehouseID:             line.WarehouseID,
		PurchaseUnitQuantity:    line.Quantity,
		UnitPriceInPurchaseUnit: line.UnitPrice,
		InvoiceType:             in.InvoiceType,
		Date:                    in.Date,
		InvoiceID:               &invoiceID,
	}
}
