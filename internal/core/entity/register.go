// Package entity provides core domain entities.
package entity

import (
	"time"

	"backoffice/internal/core/id"
	"backoffice/internal/core/types"
)

// MovementType classifies a stock ledger entry.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementWaste      MovementType = "WASTE"
)

// IsValid reports whether t is a known movement type.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment, MovementWaste:
		return true
	}
	return false
}

// StockMovement is one immutable signed-quantity fact in the stock ledger of a
// (material, warehouse) pair.
//
// Quantity is expressed in the material's consumption unit. StockBefore and
// StockAfter are derived fields: they are rewritten only by the balance
// recalculator and must never be edited anywhere else.
type StockMovement struct {
	ID id.ID `db:"id" json:"id"`

	// Seq is the insertion sequence, used to order movements sharing a date.
	Seq int64 `db:"seq" json:"seq"`

	// Dimensions
	MaterialID  id.ID `db:"material_id" json:"materialId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	UnitID      id.ID `db:"unit_id" json:"unitId"`

	Type MovementType `db:"type" json:"type"`

	// Resources
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitCost  types.Money    `db:"unit_cost" json:"unitCost"`
	TotalCost types.Money    `db:"total_cost" json:"totalCost"`

	// Derived running balance
	StockBefore types.Quantity `db:"stock_before" json:"stockBefore"`
	StockAfter  types.Quantity `db:"stock_after" json:"stockAfter"`

	// Date is the business date of the movement.
	Date time.Time `db:"date" json:"date"`

	InvoiceID *id.ID `db:"invoice_id" json:"invoiceId,omitempty"`
	Reason    string `db:"reason" json:"reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a movement with generated ID and total cost
// computed from the unit cost and the absolute quantity.
func NewStockMovement(
	materialID, warehouseID, unitID id.ID,
	movementType MovementType,
	quantity types.Quantity,
	unitCost types.Money,
	date time.Time,
) *StockMovement {
	return &StockMovement{
		ID:          id.New(),
		MaterialID:  materialID,
		WarehouseID: warehouseID,
		UnitID:      unitID,
		Type:        movementType,
		Quantity:    quantity,
		UnitCost:    types.RoundCost(unitCost),
		TotalCost:   types.RoundAmount(unitCost.Mul(quantity.Abs().Decimal())),
		Date:        date.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
}

// SetBalance assigns the derived running balance from the stock before the movement.
// Returns true when either derived field changed.
func (m *StockMovement) SetBalance(before types.Quantity) bool {
	after := before + m.Quantity
	changed := m.StockBefore != before || m.StockAfter != after
	m.StockBefore = before
	m.StockAfter = after
	return changed
}

// IsInbound reports whether the movement adds stock.
func (m *StockMovement) IsInbound() bool {
	return m.Quantity.IsPositive()
}

// Precedes reports whether m sorts before other in ledger order (date, seq).
func (m *StockMovement) Precedes(other *StockMovement) bool {
	if !m.Date.Equal(other.Date) {
		return m.Date.Before(other.Date)
	}
	return m.Seq < other.Seq
}

// MaterialStock is the per-(material, warehouse) projection of the ledger.
// It is created lazily on the first movement into a warehouse.
type MaterialStock struct {
	MaterialID  id.ID `db:"material_id" json:"materialId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	CurrentStock   types.Quantity `db:"current_stock" json:"currentStock"`
	ReservedStock  types.Quantity `db:"reserved_stock" json:"reservedStock"`
	AvailableStock types.Quantity `db:"available_stock" json:"availableStock"`
	AverageCost    types.Money    `db:"average_cost" json:"averageCost"`

	LastMovementAt *time.Time `db:"last_movement_at" json:"lastMovementAt,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// SetCurrent sets current stock and derives available stock from it.
func (s *MaterialStock) SetCurrent(q types.Quantity) {
	s.CurrentStock = q
	s.AvailableStock = q - s.ReservedStock
}

// AccountTransactionType classifies a current-account ledger entry.
type AccountTransactionType string

const (
	TransactionDebt       AccountTransactionType = "DEBT"
	TransactionCredit     AccountTransactionType = "CREDIT"
	TransactionPayment    AccountTransactionType = "PAYMENT"
	TransactionAdjustment AccountTransactionType = "ADJUSTMENT"
)

// IsValid reports whether t is a known transaction type.
func (t AccountTransactionType) IsValid() bool {
	switch t {
	case TransactionDebt, TransactionCredit, TransactionPayment, TransactionAdjustment:
		return true
	}
	return false
}

// Effect returns the signed change an amount of this type applies to the
// balance. A positive balance means the counterparty owes the business.
func (t AccountTransactionType) Effect(amount types.Money) types.Money {
	switch t {
	case TransactionCredit, TransactionPayment:
		return amount.Neg()
	default:
		return amount
	}
}

// AccountTransaction is one entry in a counterparty's current-account ledger.
// BalanceBefore and BalanceAfter are derived the same way as stock balances.
type AccountTransaction struct {
	ID  id.ID `db:"id" json:"id"`
	Seq int64 `db:"seq" json:"seq"`

	AccountID id.ID                  `db:"account_id" json:"accountId"`
	Type      AccountTransactionType `db:"type" json:"type"`

	// Amount is stored as entered: positive for DEBT, CREDIT and PAYMENT,
	// signed for ADJUSTMENT.
	Amount types.Money `db:"amount" json:"amount"`

	BalanceBefore types.Money `db:"balance_before" json:"balanceBefore"`
	BalanceAfter  types.Money `db:"balance_after" json:"balanceAfter"`

	TransactionDate time.Time  `db:"transaction_date" json:"transactionDate"`
	DueDate         *time.Time `db:"due_date" json:"dueDate,omitempty"`

	InvoiceID   *id.ID `db:"invoice_id" json:"invoiceId,omitempty"`
	Description string `db:"description" json:"description,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Effect returns the signed balance change of the transaction.
func (t *AccountTransaction) Effect() types.Money {
	return t.Type.Effect(t.Amount)
}

// SetBalance assigns the derived balances. Returns true when either changed.
func (t *AccountTransaction) SetBalance(before types.Money) bool {
	after := before.Add(t.Effect())
	changed := !t.BalanceBefore.Equal(before) || !t.BalanceAfter.Equal(after)
	t.BalanceBefore = before
	t.BalanceAfter = after
	return changed
}

// Precedes reports whether t sorts before other in ledger order (date, seq).
func (t *AccountTransaction) Precedes(other *AccountTransaction) bool {
	if !t.TransactionDate.Equal(other.TransactionDate) {
		return t.TransactionDate.Before(other.TransactionDate)
	}
	return t.Seq < other.Seq
}
