package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create relies on uq_invoices_appointment to reject a second live invoice.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	if err := r.db.WithContext(ctx).Omit("Payments").Create(inv).Error; err != nil {
		return duplicate(err, services.ErrAlreadyInvoiced)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at") }).
		First(&inv, id).Error
	if err != nil {
		return nil, notFound(err, services.ErrInvoiceNotFound)
	}
	return &inv, nil
}

func (r *InvoiceRepository) Save(ctx context.Context, inv *models.Invoice) error {
	err := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Omit("Payments").
		Save(inv).Error
	if err != nil {
		return duplicate(err, services.ErrAlreadyInvoiced)
	}
	return nil
}

// AddPayment stores the payment and the updated header together.
func (r *InvoiceRepository) AddPayment(ctx context.Context, inv *models.Invoice, p *models.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p.InvoiceID = inv.ID
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Model(inv).Updates(map[string]interface{}{
			"amount_paid": inv.AmountPaid,
			"status":      inv.Status,
			"paid_at":     inv.PaidAt,
		}).Error
	})
}

func (r *InvoiceRepository) List(ctx context.Context, f services.InvoiceFilter) ([]models.Invoice, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Invoice{})
	if f.ClinicID != nil {
		q = q.Where("clinic_id = ?", *f.ClinicID)
	}
	if f.OwnerID != nil {
		q = q.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting invoices: %w", err)
	}
	var list []models.Invoice
	if err := paginate(q, f.Limit, f.Offset).Preload("Items").Order("id DESC").Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("listing invoices: %w", err)
	}
	return list, total, nil
}

func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("status = ? AND due_at < ?", models.InvoiceSent, now).
		Updates(map[string]interface{}{"status": models.InvoiceOverdue, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("marking overdue invoices: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *InvoiceRepository) ListUninvoicedCompleted(ctx context.Context, limit int) ([]models.Appointment, error) {
	var list []models.Appointment
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("status = ? AND is_disputed = ?", models.StatusCompleted, false).
		Where(`NOT EXISTS (SELECT 1 FROM invoices i WHERE i.appointment_id = appointments.id AND i.deleted_at IS NULL AND i.status <> ?)`, models.InvoiceCancelled).
		Order("id").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing uninvoiced appointments: %w", err)
	}
	return list, nil
}
