package services

import (
	"fmt"

	"github.com/meinhoongagan/vetcare-app/models"
)

const timeFormat = "2006-01-02 15:04"

func reminderEmail(a *models.Appointment) (string, string) {
	owner, pet := "there", "your pet"
	if a.Owner != nil && a.Owner.Name != "" {
		owner = a.Owner.Name
	}
	if a.Pet != nil && a.Pet.Name != "" {
		pet = a.Pet.Name
	}
	when := ""
	if a.ScheduledAt != nil {
		when = a.ScheduledAt.UTC().Format(timeFormat) + " UTC"
	}

	subject := fmt.Sprintf("Reminder: upcoming appointment %s", a.AppointmentNumber)
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder of the upcoming appointment for %s.</p>
		<p><strong>Details:</strong></p>
		<ul>
			<li><strong>Reference:</strong> %s</li>
			<li><strong>Visit:</strong> %s</li>
			<li><strong>Time:</strong> %s</li>
			<li><strong>Status:</strong> %s</li>
		</ul>
		<p>Please arrive on time. If you need to reschedule or cancel, do so from your account as soon as possible.</p>
	`, owner, pet, a.AppointmentNumber, a.Type, when, a.Status)
	if a.Status == models.StatusScheduled && a.ConfirmationWindowEndsAt != nil {
		body += fmt.Sprintf("<p>Please confirm before %s UTC or the booking will be released.</p>",
			a.ConfirmationWindowEndsAt.UTC().Format(timeFormat))
	}
	return subject, body
}

func invoiceEmail(inv *models.Invoice) (string, string) {
	due := ""
	if inv.DueAt != nil {
		due = inv.DueAt.UTC().Format("2006-01-02")
	}
	subject := fmt.Sprintf("Invoice %s", inv.InvoiceNumber)
	body := fmt.Sprintf(`
		<p>Your invoice <strong>%s</strong> is ready.</p>
		<ul>
			<li><strong>Subtotal:</strong> %s</li>
			<li><strong>Tax:</strong> %s</li>
			<li><strong>Total:</strong> %s</li>
			<li><strong>Due:</strong> %s</li>
		</ul>
	`, inv.InvoiceNumber, inv.Subtotal.StringFixed(2), inv.TaxAmount.StringFixed(2), inv.Total.StringFixed(2), due)
	return subject, body
}
