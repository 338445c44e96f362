package cron

import (
	"context"
	"errors"
	"time"

	"github.com/meinhoongagan/vetcare-app/services"
)

const (
	JobTransitionScheduled = "transition-scheduled-appointments"
	JobUpdateOverdue       = "update-overdue"
	JobSendReminders       = "send-reminders"
	JobProcessBilling      = "process-billing"
	JobCleanupLogs         = "cleanup-logs"
)

type Services struct {
	Appointments *services.AppointmentService
	Billing      *services.BillingService
	Admin        *services.AdminService
}

type Options struct {
	AutoCancelUnconfirmed bool
	LogRetention          time.Duration
}

// DefaultJobs wires the platform's periodic work.
func DefaultJobs(svc Services, opts Options) []Job {
	return []Job{
		{
			Name:     JobTransitionScheduled,
			Schedule: "* * * * *",
			Run: func(ctx context.Context) (int, error) {
				n, err := svc.Appointments.TransitionDue(ctx)
				return int(n), err
			},
		},
		{
			Name:     JobUpdateOverdue,
			Schedule: "@hourly",
			Run: func(ctx context.Context) (int, error) {
				total := 0
				var errs []error
				if opts.AutoCancelUnconfirmed {
					n, err := svc.Appointments.ExpireUnconfirmed(ctx)
					total += n
					errs = append(errs, err)
				}
				n, err := svc.Billing.MarkOverdue(ctx)
				total += int(n)
				errs = append(errs, err)
				return total, errors.Join(errs...)
			},
		},
		{
			Name:     JobSendReminders,
			Schedule: "@hourly",
			Run:      svc.Appointments.SendReminders,
		},
		{
			Name:     JobProcessBilling,
			Schedule: "@daily",
			Run:      svc.Billing.ProcessBillingCycle,
		},
		{
			Name:     JobCleanupLogs,
			Schedule: "@daily",
			Run: func(ctx context.Context) (int, error) {
				n, err := svc.Admin.PurgeLogs(ctx, opts.LogRetention)
				return int(n), err
			},
		},
	}
}
