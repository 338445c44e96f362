package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

var ErrInvalidInvoiceState = errors.New("invalid invoice status for this operation")

type Invoice struct {
	gorm.Model
	InvoiceNumber string          `json:"invoice_number" gorm:"type:varchar(40);uniqueIndex;not null"`
	ClinicID      uint            `json:"clinic_id" gorm:"index;not null"`
	OwnerID       uint            `json:"owner_id" gorm:"index;not null"`
	AppointmentID *uint           `json:"appointment_id" gorm:"index"`
	Status        InvoiceStatus   `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`
	TaxRate       decimal.Decimal `json:"tax_rate" gorm:"type:decimal(5,4);not null;default:0"`
	TaxAmount     decimal.Decimal `json:"tax_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Total         decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null;default:0"`
	AmountPaid    decimal.Decimal `json:"amount_paid" gorm:"type:decimal(12,2);not null;default:0"`
	IssuedAt      *time.Time      `json:"issued_at"`
	DueAt         *time.Time      `json:"due_at" gorm:"index"`
	PaidAt        *time.Time      `json:"paid_at"`
	Notes         string          `json:"notes,omitempty"`
	Items         []InvoiceItem   `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
	Payments      []Payment       `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

type InvoiceItem struct {
	gorm.Model
	InvoiceID   uint            `json:"invoice_id" gorm:"index;not null"`
	Description string          `json:"description" gorm:"not null"`
	Quantity    int             `json:"quantity" gorm:"not null;default:1"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	LineTotal   decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
}

type Payment struct {
	gorm.Model
	InvoiceID uint            `json:"invoice_id" gorm:"index;not null"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method    string          `json:"method" gorm:"type:varchar(20)"`
	Reference string          `json:"reference"`
	PaidAt    time.Time       `json:"paid_at"`
}

// Recalculate derives totals from line items, never from appointment cost fields.
func (inv *Invoice) Recalculate() {
	subtotal := decimal.Zero
	for i := range inv.Items {
		it := &inv.Items[i]
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		subtotal = subtotal.Add(it.LineTotal)
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(inv.TaxRate).Round(2)
	inv.Total = inv.Subtotal.Add(inv.TaxAmount)
}

func (inv *Invoice) Balance() decimal.Decimal {
	return inv.Total.Sub(inv.AmountPaid)
}

func (inv *Invoice) Send(now time.Time, dueIn time.Duration) error {
	if inv.Status != InvoiceDraft {
		return ErrInvalidInvoiceState
	}
	due := now.Add(dueIn)
	inv.Status = InvoiceSent
	inv.IssuedAt = &now
	inv.DueAt = &due
	return nil
}

// ApplyPayment settles the invoice once payments cover the total.
func (inv *Invoice) ApplyPayment(p Payment) error {
	if inv.Status != InvoiceSent && inv.Status != InvoiceOverdue {
		return ErrInvalidInvoiceState
	}
	inv.AmountPaid = inv.AmountPaid.Add(p.Amount)
	if inv.AmountPaid.GreaterThanOrEqual(inv.Total) {
		paidAt := p.PaidAt
		inv.Status = InvoicePaid
		inv.PaidAt = &paidAt
	}
	return nil
}

func (inv *Invoice) IsOverdue(now time.Time) bool {
	return inv.Status == InvoiceSent && inv.DueAt != nil && inv.DueAt.Before(now)
}

func (inv *Invoice) Cancel() error {
	if inv.Status != InvoiceDraft && inv.Status != InvoiceSent {
		return ErrInvalidInvoiceState
	}
	inv.Status = InvoiceCancelled
	return nil
}
