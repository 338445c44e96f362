package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meinhoongagan/vetcare-app/metrics"
	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/utils"
)

const billingBatchSize = 200

type BillingConfig struct {
	TaxRate      decimal.Decimal
	DueIn        time.Duration
	NumberPrefix string
}

type BillingService struct {
	repo    InvoiceRepository
	appts   AppointmentRepository
	clinics ClinicRepository
	users   UserRepository
	mailer  Mailer
	metrics *metrics.Collector
	log     *zap.Logger
	cfg     BillingConfig
	now     func() time.Time
}

func NewBillingService(
	repo InvoiceRepository,
	appts AppointmentRepository,
	clinics ClinicRepository,
	users UserRepository,
	mailer Mailer,
	m *metrics.Collector,
	log *zap.Logger,
	cfg BillingConfig,
) *BillingService {
	return &BillingService{
		repo:    repo,
		appts:   appts,
		clinics: clinics,
		users:   users,
		mailer:  mailer,
		metrics: m,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *BillingService) WithClock(now func() time.Time) *BillingService {
	s.now = now
	return s
}

type InvoiceItemInput struct {
	Description string          `json:"description" validate:"required,max=255"`
	Quantity    int             `json:"quantity" validate:"required,min=1,max=1000"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInvoiceInput struct {
	OwnerID       uint               `json:"owner_id" validate:"required_without=AppointmentID"`
	AppointmentID *uint              `json:"appointment_id"`
	Items         []InvoiceItemInput `json:"items" validate:"omitempty,dive"`
	Notes         string             `json:"notes" validate:"max=2000"`
}

type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,oneof=cash card transfer other"`
	Reference string          `json:"reference" validate:"max=100"`
}

func itemFrom(in InvoiceItemInput) (models.InvoiceItem, error) {
	if in.UnitPrice.IsNegative() {
		return models.InvoiceItem{}, invalid("unit_price: must not be negative")
	}
	return models.InvoiceItem{Description: in.Description, Quantity: in.Quantity, UnitPrice: in.UnitPrice.Round(2)}, nil
}

// CreateInvoice opens a draft; seeded from the appointment when no items are given.
func (s *BillingService) CreateInvoice(ctx context.Context, caller Caller, clinicID uint, in CreateInvoiceInput) (*models.Invoice, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if !caller.IsStaffOf(clinicID) {
		return nil, ErrForbidden
	}

	inv := &models.Invoice{
		ClinicID: clinicID,
		OwnerID:  in.OwnerID,
		Status:   models.InvoiceDraft,
		TaxRate:  s.cfg.TaxRate,
		Notes:    in.Notes,
	}
	for _, it := range in.Items {
		item, err := itemFrom(it)
		if err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}

	if in.AppointmentID != nil {
		a, err := s.appts.GetByID(ctx, *in.AppointmentID)
		if err != nil {
			return nil, err
		}
		if a.ClinicID != clinicID {
			return nil, ErrAppointmentNotFound
		}
		if a.Status != models.StatusCompleted {
			return nil, ErrNotCompleted
		}
		inv.AppointmentID = &a.ID
		inv.OwnerID = a.OwnerID
		if len(inv.Items) == 0 {
			item, err := s.visitItem(ctx, a)
			if err != nil {
				return nil, err
			}
			inv.Items = append(inv.Items, item)
		}
	}

	if err := s.create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *BillingService) create(ctx context.Context, inv *models.Invoice) error {
	inv.InvoiceNumber = utils.GenerateNumber(s.cfg.NumberPrefix, s.now())
	inv.Recalculate()
	if err := s.repo.Create(ctx, inv); err != nil {
		if errors.Is(err, ErrAlreadyInvoiced) {
			return err
		}
		return fmt.Errorf("creating invoice: %w", err)
	}
	s.metrics.InvoicesTotal.WithLabelValues(string(models.InvoiceDraft)).Inc()
	return nil
}

// visitItem prices a visit from the actual cost, then the estimate, then the service list price.
func (s *BillingService) visitItem(ctx context.Context, a *models.Appointment) (models.InvoiceItem, error) {
	desc := fmt.Sprintf("Veterinary visit (%s) %s", a.Type, a.AppointmentNumber)
	price := decimal.Zero
	var svc *models.ClinicService
	if a.ServiceID != nil {
		var err error
		if svc, err = s.clinics.GetService(ctx, *a.ServiceID); err != nil && !errors.Is(err, ErrServiceNotFound) {
			return models.InvoiceItem{}, err
		}
		if svc != nil {
			desc = fmt.Sprintf("%s %s", svc.Name, a.AppointmentNumber)
		}
	}
	switch {
	case a.ActualCost.Valid:
		price = a.ActualCost.Decimal
	case a.EstimatedCost.Valid:
		price = a.EstimatedCost.Decimal
	case svc != nil:
		price = svc.Price
	}
	return models.InvoiceItem{Description: desc, Quantity: 1, UnitPrice: price.Round(2)}, nil
}

func (s *BillingService) loadForStaff(ctx context.Context, caller Caller, id uint) (*models.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaffOf(inv.ClinicID) {
		return nil, ErrForbidden
	}
	return inv, nil
}

func (s *BillingService) AddItem(ctx context.Context, caller Caller, id uint, in InvoiceItemInput) (*models.Invoice, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	item, err := itemFrom(in)
	if err != nil {
		return nil, err
	}
	inv, err := s.loadForStaff(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceDraft {
		return nil, ErrInvalidInvoiceState
	}
	item.InvoiceID = inv.ID
	inv.Items = append(inv.Items, item)
	inv.Recalculate()
	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	return inv, nil
}

func (s *BillingService) Send(ctx context.Context, caller Caller, id uint) (*models.Invoice, error) {
	inv, err := s.loadForStaff(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := s.send(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *BillingService) send(ctx context.Context, inv *models.Invoice) error {
	if !inv.Total.IsPositive() {
		return invalid("items: invoice total must be positive before sending")
	}
	if err := inv.Send(s.now(), s.cfg.DueIn); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, inv); err != nil {
		return fmt.Errorf("saving invoice: %w", err)
	}
	s.metrics.InvoicesTotal.WithLabelValues(string(models.InvoiceSent)).Inc()

	owner, err := s.users.GetByID(ctx, inv.OwnerID)
	if err != nil {
		s.log.Warn("invoice owner lookup failed", zap.Uint("invoice_id", inv.ID), zap.Error(err))
		return nil
	}
	subject, body := invoiceEmail(inv)
	if err := s.mailer.Send(owner.Email, subject, body); err != nil {
		s.log.Warn("invoice email not sent", zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
	}
	return nil
}

func (s *BillingService) RecordPayment(ctx context.Context, caller Caller, id uint, in PaymentInput) (*models.Invoice, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidPayment
	}
	inv, err := s.loadForStaff(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	p := &models.Payment{
		InvoiceID: inv.ID,
		Amount:    in.Amount.Round(2),
		Method:    in.Method,
		Reference: in.Reference,
		PaidAt:    s.now(),
	}
	if err := inv.ApplyPayment(*p); err != nil {
		return nil, err
	}
	if err := s.repo.AddPayment(ctx, inv, p); err != nil {
		return nil, fmt.Errorf("recording payment: %w", err)
	}
	inv.Payments = append(inv.Payments, *p)
	amount, _ := p.Amount.Float64()
	s.metrics.PaymentsAmount.Add(amount)
	if inv.Status == models.InvoicePaid {
		s.metrics.InvoicesTotal.WithLabelValues(string(models.InvoicePaid)).Inc()
	}
	return inv, nil
}

func (s *BillingService) Cancel(ctx context.Context, caller Caller, id uint) (*models.Invoice, error) {
	inv, err := s.loadForStaff(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}
	s.metrics.InvoicesTotal.WithLabelValues(string(models.InvoiceCancelled)).Inc()
	return inv, nil
}

func (s *BillingService) Get(ctx context.Context, caller Caller, id uint) (*models.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.OwnerID != caller.UserID && !caller.IsStaffOf(inv.ClinicID) {
		return nil, ErrForbidden
	}
	return inv, nil
}

func (s *BillingService) ListForClinic(ctx context.Context, caller Caller, clinicID uint, f InvoiceFilter) ([]models.Invoice, int64, error) {
	if !caller.IsStaffOf(clinicID) {
		return nil, 0, ErrForbidden
	}
	f.ClinicID, f.OwnerID = &clinicID, nil
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.repo.List(ctx, f)
}

func (s *BillingService) ListForOwner(ctx context.Context, caller Caller, f InvoiceFilter) ([]models.Invoice, int64, error) {
	f.OwnerID, f.ClinicID = &caller.UserID, nil
	f.Limit, f.Offset = page(f.Limit, f.Offset)
	return s.repo.List(ctx, f)
}

// MarkOverdue flips every sent invoice past its due date.
func (s *BillingService) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("marking overdue invoices: %w", err)
	}
	if n > 0 {
		s.metrics.InvoicesTotal.WithLabelValues(string(models.InvoiceOverdue)).Add(float64(n))
		s.log.Info("invoices marked overdue", zap.Int64("count", n))
	}
	return n, nil
}

// ProcessBillingCycle invoices completed visits that have none yet and sends those with a positive total.
func (s *BillingService) ProcessBillingCycle(ctx context.Context) (int, error) {
	list, err := s.repo.ListUninvoicedCompleted(ctx, billingBatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing uninvoiced appointments: %w", err)
	}

	created := 0
	var errs []error
	for i := range list {
		a := &list[i]
		item, err := s.visitItem(ctx, a)
		if err != nil {
			errs = append(errs, fmt.Errorf("appointment %d: %w", a.ID, err))
			continue
		}
		id := a.ID
		inv := &models.Invoice{
			ClinicID:      a.ClinicID,
			OwnerID:       a.OwnerID,
			AppointmentID: &id,
			Status:        models.InvoiceDraft,
			TaxRate:       s.cfg.TaxRate,
			Items:         []models.InvoiceItem{item},
		}
		if err := s.create(ctx, inv); err != nil {
			if !errors.Is(err, ErrAlreadyInvoiced) {
				errs = append(errs, fmt.Errorf("appointment %d: %w", a.ID, err))
			}
			continue
		}
		created++
		if inv.Total.IsPositive() {
			if err := s.send(ctx, inv); err != nil {
				errs = append(errs, fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, err))
			}
		}
	}
	if created > 0 {
		s.log.Info("billing cycle invoiced appointments", zap.Int("count", created))
	}
	return created, errors.Join(errs...)
}
