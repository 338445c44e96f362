package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/meinhoongagan/vetcare-app/models"
)

// tuesday9 is the day after base at 09:00, inside opening hours.
var tuesday9 = time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

func TestBookAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.book(t, tuesday9)

	if a.Status != models.StatusScheduled {
		t.Errorf("expected status scheduled, got %s", a.Status)
	}
	if !strings.HasPrefix(a.AppointmentNumber, "APT-20260302-") {
		t.Errorf("unexpected appointment number %q", a.AppointmentNumber)
	}
	if a.DurationMinutes != 30 {
		t.Errorf("expected service duration 30, got %d", a.DurationMinutes)
	}
	if !a.EstimatedCost.Valid || !a.EstimatedCost.Decimal.Equal(decimal.RequireFromString("45.50")) {
		t.Errorf("expected estimated cost 45.50, got %v", a.EstimatedCost)
	}
	if a.OwnerID != f.owner.UserID {
		t.Errorf("expected owner %d, got %d", f.owner.UserID, a.OwnerID)
	}
	if want := base.Add(24 * time.Hour); a.ConfirmationWindowEndsAt == nil || !a.ConfirmationWindowEndsAt.Equal(want) {
		t.Errorf("expected confirmation deadline %v, got %v", want, a.ConfirmationWindowEndsAt)
	}

	history, err := f.apptSvc.History(ctx, f.owner, a.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].ToStatus != models.StatusScheduled || history[0].Actor != models.ActorOwner {
		t.Errorf("unexpected history %+v", history)
	}
	if got := testutil.ToFloat64(f.metrics.AppointmentsBooked.WithLabelValues("scheduled")); got != 1 {
		t.Errorf("expected 1 booking counted, got %v", got)
	}
}

func TestBookAppointment_ConfirmationDeadlineCappedAtStart(t *testing.T) {
	f := newFixture(t)

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	a := f.book(t, start)

	if a.ConfirmationWindowEndsAt == nil || !a.ConfirmationWindowEndsAt.Equal(start) {
		t.Errorf("expected deadline at the visit start %v, got %v", start, a.ConfirmationWindowEndsAt)
	}
}

func TestBookAppointment_StaffBooksForOwner(t *testing.T) {
	f := newFixture(t)

	a, err := f.apptSvc.Book(context.Background(), f.staff, f.bookInput(tuesday9, f.vet.ID))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if a.OwnerID != f.owner.UserID {
		t.Errorf("expected the pet owner on the booking, got %d", a.OwnerID)
	}
}

func TestBookAppointment_Overlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, tuesday9)

	_, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tuesday9.Add(15*time.Minute), f.vet.ID))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.BookingConflicts); got != 1 {
		t.Errorf("expected 1 conflict counted, got %v", got)
	}

	if _, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tuesday9.Add(15*time.Minute), f.vet2.ID)); err != nil {
		t.Errorf("another veterinarian should be free: %v", err)
	}
	if _, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tuesday9.Add(30*time.Minute), f.vet.ID)); err != nil {
		t.Errorf("back-to-back booking should succeed: %v", err)
	}
}

func TestBookAppointment_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tuesday9, f.vet.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != n-1 {
		t.Errorf("expected exactly one winner, got %d successes and %d conflicts", succeeded, conflicts)
	}
}

func TestBookAppointment_OpeningHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		at   time.Time
	}{
		{"before opening", time.Date(2026, 3, 3, 7, 30, 0, 0, time.UTC)},
		{"runs into lunch break", time.Date(2026, 3, 3, 11, 45, 0, 0, time.UTC)},
		{"during lunch break", time.Date(2026, 3, 3, 12, 15, 0, 0, time.UTC)},
		{"runs past closing", time.Date(2026, 3, 3, 17, 45, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tc.at, f.vet.ID))
			if !errors.Is(err, ErrOutsideHours) {
				t.Errorf("expected ErrOutsideHours, got %v", err)
			}
		})
	}

	if _, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC), f.vet.ID)); err != nil {
		t.Errorf("booking right after the break should succeed: %v", err)
	}
}

func TestBookAppointment_WithoutVet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.bookInput(tuesday9, 0)
	in.ClinicStaffID = nil

	if _, err := f.apptSvc.Book(ctx, f.owner, in); !errors.Is(err, ErrNoOpenSlot) {
		t.Fatalf("no clinic-wide slot: expected ErrNoOpenSlot, got %v", err)
	}

	if _, err := f.slotSvc.Generate(ctx, f.staff, f.clinic.ID, GenerateSlotsInput{Date: "2026-03-03", SlotMinutes: 60, Capacity: 2}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 0; i < 2; i++ {
		a, err := f.apptSvc.Book(ctx, f.owner, in)
		if err != nil {
			t.Fatalf("Book %d: %v", i, err)
		}
		if a.ClinicStaffID != nil {
			t.Errorf("expected no veterinarian, got %d", *a.ClinicStaffID)
		}
		if a.Status != models.StatusScheduled {
			t.Errorf("expected scheduled, got %s", a.Status)
		}
	}
	if _, err := f.apptSvc.Book(ctx, f.owner, in); !errors.Is(err, ErrSlotFull) {
		t.Errorf("third booking: expected ErrSlotFull, got %v", err)
	}

	open, err := f.slotSvc.Available(ctx, f.clinic.ID, "2026-03-03", nil)
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	for _, sl := range open {
		if sl.StartsAt.Equal(tuesday9) {
			t.Error("full clinic-wide slot listed as available")
		}
	}
}

func TestBookAppointment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(base.Add(-time.Hour), f.vet.ID)); !errors.Is(err, ErrScheduledInPast) {
		t.Errorf("past start: expected ErrScheduledInPast, got %v", err)
	}
	if _, err := f.apptSvc.Book(ctx, f.other, f.bookInput(tuesday9, f.vet.ID)); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign pet: expected ErrForbidden, got %v", err)
	}

	in := f.bookInput(tuesday9, f.vet.ID)
	in.Type = ""
	var verr *ValidationError
	if _, err := f.apptSvc.Book(ctx, f.owner, in); !errors.As(err, &verr) {
		t.Errorf("missing type: expected ValidationError, got %v", err)
	}

	vet := *f.vet
	vet.IsActive = false
	_ = f.clinics.UpdateStaff(ctx, &vet)
	if _, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tuesday9, f.vet.ID)); !errors.Is(err, ErrStaffUnavailable) {
		t.Errorf("inactive vet: expected ErrStaffUnavailable, got %v", err)
	}

	c, _ := f.clinics.GetByID(ctx, f.clinic.ID)
	c.Status = models.ClinicSuspended
	_ = f.clinics.SetStatus(ctx, c, models.ClinicApproved)
	if _, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tuesday9, f.vet2.ID)); !errors.Is(err, ErrClinicNotBookable) {
		t.Errorf("suspended clinic: expected ErrClinicNotBookable, got %v", err)
	}
}

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)

	if _, err := f.apptSvc.Confirm(ctx, f.staff, a.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("staff confirm: expected ErrForbidden, got %v", err)
	}
	if _, err := f.apptSvc.Confirm(ctx, f.other, a.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other owner: expected ErrForbidden, got %v", err)
	}

	f.clock.Advance(time.Hour)
	got, err := f.apptSvc.Confirm(ctx, f.owner, a.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.Status != models.StatusConfirmed || got.ConfirmedAt == nil {
		t.Errorf("expected confirmed with timestamp, got %s %v", got.Status, got.ConfirmedAt)
	}
	if _, err := f.apptSvc.Confirm(ctx, f.owner, a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second confirm: expected ErrInvalidTransition, got %v", err)
	}
}

func TestConfirm_AfterWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9.Add(24*time.Hour))

	f.clock.Set(*a.ConfirmationWindowEndsAt)
	f.clock.Advance(time.Second)

	if _, err := f.apptSvc.Confirm(ctx, f.owner, a.ID); !errors.Is(err, ErrWindowExpired) {
		t.Fatalf("expected ErrWindowExpired, got %v", err)
	}
	stored, _ := f.appts.GetByID(ctx, a.ID)
	if stored.Status != models.StatusScheduled {
		t.Errorf("expected status to stay scheduled, got %s", stored.Status)
	}
}

func TestTransitionDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := f.book(t, tuesday9)
	later := f.book(t, tuesday9.Add(2*time.Hour))

	f.clock.Set(tuesday9.Add(30 * time.Second))
	n, err := f.apptSvc.TransitionDue(ctx)
	if err != nil {
		t.Fatalf("TransitionDue: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 transition, got %d", n)
	}
	got, _ := f.appts.GetByID(ctx, due.ID)
	if got.Status != models.StatusInProgress {
		t.Errorf("expected in_progress, got %s", got.Status)
	}
	untouched, _ := f.appts.GetByID(ctx, later.ID)
	if untouched.Status != models.StatusScheduled {
		t.Errorf("future appointment moved to %s", untouched.Status)
	}

	f.clock.Advance(time.Second)
	n, err = f.apptSvc.TransitionDue(ctx)
	if err != nil {
		t.Fatalf("second TransitionDue: %v", err)
	}
	if n != 0 {
		t.Errorf("expected second sweep to be a no-op, got %d", n)
	}
	got, _ = f.appts.GetByID(ctx, due.ID)
	if got.Status != models.StatusInProgress {
		t.Errorf("expected in_progress to hold, got %s", got.Status)
	}

	history, _ := f.appts.History(ctx, due.ID)
	last := history[len(history)-1]
	if last.Actor != models.ActorSystem || last.ToStatus != models.StatusInProgress {
		t.Errorf("unexpected history row %+v", last)
	}
}

func TestStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)

	if _, err := f.apptSvc.Start(ctx, f.staff, a.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("unconfirmed start: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.apptSvc.Confirm(ctx, f.owner, a.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	got, err := f.apptSvc.Start(ctx, f.staff, a.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got.Status != models.StatusInProgress || got.CheckedInAt == nil {
		t.Errorf("expected in_progress and checked in, got %s %v", got.Status, got.CheckedInAt)
	}
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)

	if _, err := f.apptSvc.Complete(ctx, f.staff, a.ID, CompleteInput{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("scheduled completion: expected ErrInvalidTransition, got %v", err)
	}

	f.clock.Set(tuesday9)
	if _, err := f.apptSvc.TransitionDue(ctx); err != nil {
		t.Fatalf("TransitionDue: %v", err)
	}
	if _, err := f.apptSvc.Complete(ctx, f.owner, a.ID, CompleteInput{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner completion: expected ErrForbidden, got %v", err)
	}

	f.clock.Advance(40 * time.Minute)
	cost := decimal.RequireFromString("60.00")
	got, err := f.apptSvc.Complete(ctx, f.staff, a.ID, CompleteInput{ActualCost: &cost})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != models.StatusCompleted || got.CheckedOutAt == nil {
		t.Errorf("expected completed and checked out, got %s", got.Status)
	}
	if want := f.clock.Now().Add(72 * time.Hour); got.DisputeWindowEndsAt == nil || !got.DisputeWindowEndsAt.Equal(want) {
		t.Errorf("expected dispute window to end %v, got %v", want, got.DisputeWindowEndsAt)
	}
	if !got.ActualCost.Valid || !got.ActualCost.Decimal.Equal(cost) {
		t.Errorf("expected actual cost %s, got %v", cost, got.ActualCost)
	}
}

func TestDispute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.completed(t, tuesday9, CompleteInput{})
	completedAt := *a.CheckedOutAt

	f.clock.Set(completedAt.Add(72 * time.Hour))
	if _, err := f.apptSvc.Dispute(ctx, f.staff, a.ID, "wrong charge"); !errors.Is(err, ErrForbidden) {
		t.Errorf("staff dispute: expected ErrForbidden, got %v", err)
	}
	got, err := f.apptSvc.Dispute(ctx, f.owner, a.ID, "wrong charge")
	if err != nil {
		t.Fatalf("Dispute at the window edge: %v", err)
	}
	if !got.IsDisputed || got.Status != models.StatusCompleted {
		t.Errorf("expected disputed completed appointment, got disputed=%v status=%s", got.IsDisputed, got.Status)
	}
	if _, err := f.apptSvc.Dispute(ctx, f.owner, a.ID, "again"); !errors.Is(err, ErrAlreadyDisputed) {
		t.Errorf("second dispute: expected ErrAlreadyDisputed, got %v", err)
	}
}

func TestDispute_AfterWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.completed(t, tuesday9, CompleteInput{})

	f.clock.Set(a.CheckedOutAt.Add(72*time.Hour + time.Second))
	if _, err := f.apptSvc.Dispute(ctx, f.owner, a.ID, "too late"); !errors.Is(err, ErrWindowExpired) {
		t.Errorf("expected ErrWindowExpired, got %v", err)
	}
	if _, err := f.apptSvc.Dispute(ctx, f.owner, a.ID, ""); err == nil {
		t.Error("expected an empty reason to be rejected")
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)

	if _, err := f.apptSvc.Cancel(ctx, f.other, a.ID, "not mine"); !errors.Is(err, ErrForbidden) {
		t.Errorf("other owner: expected ErrForbidden, got %v", err)
	}
	got, err := f.apptSvc.Cancel(ctx, f.owner, a.ID, "travelling")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != models.StatusCancelled || got.CancelReason != "travelling" || got.CancelledAt == nil {
		t.Errorf("unexpected cancelled appointment %+v", got)
	}
	if _, err := f.apptSvc.Cancel(ctx, f.owner, a.ID, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second cancel: expected ErrInvalidTransition, got %v", err)
	}

	if _, err := f.apptSvc.Book(ctx, f.owner, f.bookInput(tuesday9, f.vet.ID)); err != nil {
		t.Errorf("cancelled slot should be free again: %v", err)
	}
}

func TestMarkNoShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)

	if _, err := f.apptSvc.MarkNoShow(ctx, f.owner, a.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner no-show: expected ErrForbidden, got %v", err)
	}
	got, err := f.apptSvc.MarkNoShow(ctx, f.staff, a.ID)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if got.Status != models.StatusNoShow {
		t.Errorf("expected no_show, got %s", got.Status)
	}

	b := f.book(t, tuesday9.Add(time.Hour))
	f.clock.Set(tuesday9.Add(time.Hour))
	_, _ = f.apptSvc.TransitionDue(ctx)
	if _, err := f.apptSvc.MarkNoShow(ctx, f.staff, b.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("in-progress no-show: expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancel_AfterSweepStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)

	f.appts.beforeWrite = func() {
		if n, err := f.appts.TransitionDue(ctx, tuesday9); err != nil || n != 1 {
			t.Fatalf("TransitionDue: n=%d err=%v", n, err)
		}
	}
	if _, err := f.apptSvc.Cancel(ctx, f.owner, a.ID, "travelling"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel after the sweep: expected ErrInvalidTransition, got %v", err)
	}
	got, _ := f.appts.GetByID(ctx, a.ID)
	if got.Status != models.StatusInProgress || got.CancelledAt != nil {
		t.Errorf("expected in_progress to stand, got %s cancelled_at=%v", got.Status, got.CancelledAt)
	}
	history, _ := f.appts.History(ctx, a.ID)
	for _, h := range history {
		if h.ToStatus == models.StatusCancelled {
			t.Errorf("unexpected %s -> cancelled history row", h.FromStatus)
		}
	}
}

func TestStaleWriteKeepsReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)
	later := tuesday9.Add(2 * time.Hour)

	f.appts.beforeWrite = func() {
		if _, err := f.apptSvc.Reschedule(ctx, f.owner, a.ID, RescheduleInput{ScheduledAt: later, Reason: "school run"}); err != nil {
			t.Fatalf("Reschedule: %v", err)
		}
	}
	if _, err := f.apptSvc.Confirm(ctx, f.owner, a.ID); !errors.Is(err, ErrStaleAppointment) {
		t.Fatalf("confirm over a reschedule: expected ErrStaleAppointment, got %v", err)
	}
	got, _ := f.appts.GetByID(ctx, a.ID)
	if !got.ScheduledAt.Equal(later) {
		t.Errorf("expected the reschedule to %v to stand, got %v", later, got.ScheduledAt)
	}

	confirmed, err := f.apptSvc.Confirm(ctx, f.owner, a.ID)
	if err != nil {
		t.Fatalf("Confirm after reload: %v", err)
	}
	if confirmed.Status != models.StatusConfirmed || !confirmed.ScheduledAt.Equal(later) {
		t.Errorf("unexpected confirmed appointment %s at %v", confirmed.Status, confirmed.ScheduledAt)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)
	other := f.book(t, tuesday9.Add(2*time.Hour))

	f.clock.Advance(time.Hour)
	moved, err := f.apptSvc.Reschedule(ctx, f.owner, a.ID, RescheduleInput{ScheduledAt: tuesday9.Add(time.Hour), Reason: "work meeting"})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !moved.ScheduledAt.Equal(tuesday9.Add(time.Hour)) || moved.RescheduleReason != "work meeting" {
		t.Errorf("unexpected rescheduled appointment %v %q", moved.ScheduledAt, moved.RescheduleReason)
	}
	if want := f.clock.Now().Add(24 * time.Hour); !moved.ConfirmationWindowEndsAt.Equal(want) {
		t.Errorf("expected confirmation window reset to %v, got %v", want, moved.ConfirmationWindowEndsAt)
	}

	history, _ := f.apptSvc.History(ctx, f.owner, a.ID)
	last := history[len(history)-1]
	if last.PreviousScheduledAt == nil || !last.PreviousScheduledAt.Equal(tuesday9) {
		t.Errorf("expected previous start %v in history, got %v", tuesday9, last.PreviousScheduledAt)
	}
	if last.NewScheduledAt == nil || !last.NewScheduledAt.Equal(tuesday9.Add(time.Hour)) {
		t.Errorf("expected new start in history, got %v", last.NewScheduledAt)
	}

	if _, err := f.apptSvc.Reschedule(ctx, f.owner, a.ID, RescheduleInput{ScheduledAt: tuesday9.Add(time.Hour + 15*time.Minute), Reason: "a bit later"}); err != nil {
		t.Errorf("overlapping its own old interval should succeed: %v", err)
	}

	_, err = f.apptSvc.Reschedule(ctx, f.owner, a.ID, RescheduleInput{ScheduledAt: *other.ScheduledAt, Reason: "clash"})
	if !errors.Is(err, ErrSlotConflict) {
		t.Errorf("expected ErrSlotConflict, got %v", err)
	}
	stored, _ := f.appts.GetByID(ctx, a.ID)
	if !stored.ScheduledAt.Equal(tuesday9.Add(time.Hour + 15*time.Minute)) {
		t.Errorf("failed reschedule must not move the booking, got %v", stored.ScheduledAt)
	}

	var verr *ValidationError
	if _, err := f.apptSvc.Reschedule(ctx, f.owner, a.ID, RescheduleInput{ScheduledAt: tuesday9.Add(4 * time.Hour)}); !errors.As(err, &verr) {
		t.Errorf("missing reason: expected ValidationError, got %v", err)
	}
}

func TestReschedule_ToAnotherVet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)
	f.book(t, tuesday9.Add(time.Hour))

	moved, err := f.apptSvc.Reschedule(ctx, f.staff, a.ID, RescheduleInput{
		ScheduledAt:   tuesday9.Add(time.Hour),
		ClinicStaffID: &f.vet2.ID,
		Reason:        "Dr. Lee is fully booked",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if *moved.ClinicStaffID != f.vet2.ID {
		t.Errorf("expected vet %d, got %d", f.vet2.ID, *moved.ClinicStaffID)
	}
}

func TestReschedule_CompletedRejected(t *testing.T) {
	f := newFixture(t)
	a := f.completed(t, tuesday9, CompleteInput{})

	_, err := f.apptSvc.Reschedule(context.Background(), f.owner, a.ID, RescheduleInput{ScheduledAt: tuesday9.Add(48 * time.Hour), Reason: "redo"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFollowUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	suggested := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	parent := f.completed(t, tuesday9, CompleteInput{SuggestedFollowUpDate: &suggested})

	if _, err := f.apptSvc.CreateFollowUp(ctx, f.staff, parent.ID, FollowUpInput{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("staff follow-up: expected ErrForbidden, got %v", err)
	}

	child, err := f.apptSvc.CreateFollowUp(ctx, f.owner, parent.ID, FollowUpInput{})
	if err != nil {
		t.Fatalf("CreateFollowUp: %v", err)
	}
	if !child.IsFollowUp || child.ParentAppointmentID == nil || *child.ParentAppointmentID != parent.ID {
		t.Errorf("expected a follow-up linked to %d, got %+v", parent.ID, child)
	}
	if child.Type != models.TypeFollowUp || !child.ScheduledAt.Equal(suggested) {
		t.Errorf("unexpected follow-up type %s at %v", child.Type, child.ScheduledAt)
	}

	later := suggested.Add(24 * time.Hour)
	if _, err := f.apptSvc.CreateFollowUp(ctx, f.owner, parent.ID, FollowUpInput{ScheduledAt: &later}); !errors.Is(err, ErrFollowUpExists) {
		t.Errorf("second follow-up: expected ErrFollowUpExists, got %v", err)
	}

	f.clock.Set(suggested)
	_, _ = f.apptSvc.TransitionDue(ctx)
	f.clock.Advance(30 * time.Minute)
	next := suggested.Add(14 * 24 * time.Hour)
	if _, err := f.apptSvc.Complete(ctx, f.staff, child.ID, CompleteInput{SuggestedFollowUpDate: &next}); !errors.Is(err, ErrNestedFollowUp) {
		t.Errorf("follow-up suggesting another: expected ErrNestedFollowUp, got %v", err)
	}
	if _, err := f.apptSvc.Complete(ctx, f.staff, child.ID, CompleteInput{}); err != nil {
		t.Fatalf("Complete follow-up: %v", err)
	}
	if _, err := f.apptSvc.CreateFollowUp(ctx, f.owner, child.ID, FollowUpInput{ScheduledAt: &next}); !errors.Is(err, ErrNestedFollowUp) {
		t.Errorf("follow-up of follow-up: expected ErrNestedFollowUp, got %v", err)
	}
}

func TestFollowUp_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	scheduled := f.book(t, tuesday9.Add(48*time.Hour))
	if _, err := f.apptSvc.CreateFollowUp(ctx, f.owner, scheduled.ID, FollowUpInput{}); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("scheduled parent: expected ErrNotCompleted, got %v", err)
	}

	plain := f.completed(t, tuesday9, CompleteInput{})
	if _, err := f.apptSvc.CreateFollowUp(ctx, f.owner, plain.ID, FollowUpInput{}); !errors.Is(err, ErrNoFollowUp) {
		t.Errorf("no suggestion: expected ErrNoFollowUp, got %v", err)
	}
}

func TestComplete_FollowUpSuggestionRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.bookInput(tuesday9, f.vet.ID)
	in.Type = models.TypeGrooming
	grooming, err := f.apptSvc.Book(ctx, f.owner, in)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	f.clock.Set(tuesday9)
	_, _ = f.apptSvc.TransitionDue(ctx)

	var verr *ValidationError
	future := tuesday9.Add(7 * 24 * time.Hour)
	if _, err := f.apptSvc.Complete(ctx, f.staff, grooming.ID, CompleteInput{SuggestedFollowUpDate: &future}); !errors.As(err, &verr) {
		t.Errorf("grooming suggestion: expected ValidationError, got %v", err)
	}

	past := tuesday9.Add(-time.Hour)
	in.Type = models.TypeConsultation
	in.ScheduledAt = tuesday9.Add(time.Hour)
	f.clock.Set(base)
	consult, err := f.apptSvc.Book(ctx, f.owner, in)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	f.clock.Set(tuesday9.Add(time.Hour))
	_, _ = f.apptSvc.TransitionDue(ctx)
	if _, err := f.apptSvc.Complete(ctx, f.staff, consult.ID, CompleteInput{SuggestedFollowUpDate: &past}); !errors.As(err, &verr) {
		t.Errorf("past suggestion: expected ValidationError, got %v", err)
	}
}

func TestExpireUnconfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wednesday := tuesday9.Add(24 * time.Hour)
	lapsed := f.book(t, wednesday)
	kept := f.book(t, wednesday.Add(time.Hour))
	if _, err := f.apptSvc.Confirm(ctx, f.owner, kept.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	f.clock.Set(base.Add(25 * time.Hour))
	n, err := f.apptSvc.ExpireUnconfirmed(ctx)
	if err != nil {
		t.Fatalf("ExpireUnconfirmed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 cancellation, got %d", n)
	}
	got, _ := f.appts.GetByID(ctx, lapsed.ID)
	if got.Status != models.StatusCancelled || got.CancelReason != expiredReason {
		t.Errorf("expected lapsed booking cancelled, got %s %q", got.Status, got.CancelReason)
	}
	history, _ := f.appts.History(ctx, lapsed.ID)
	if last := history[len(history)-1]; last.Actor != models.ActorSystem || last.Reason != expiredReason {
		t.Errorf("expected system actor with reason, got %s %q", last.Actor, last.Reason)
	}
	if got := testutil.ToFloat64(f.metrics.AppointmentTransitions.WithLabelValues("cancelled", "system")); got != 1 {
		t.Errorf("expected 1 system cancellation counted, got %v", got)
	}
	confirmed, _ := f.appts.GetByID(ctx, kept.ID)
	if confirmed.Status != models.StatusConfirmed {
		t.Errorf("confirmed booking changed to %s", confirmed.Status)
	}

	if n, _ := f.apptSvc.ExpireUnconfirmed(ctx); n != 0 {
		t.Errorf("expected second run to be a no-op, got %d", n)
	}
}

func TestWalkIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, base.Add(2*time.Hour))

	in := WalkInInput{PetID: f.pet.ID, ClinicStaffID: &f.vet.ID, ServiceID: &f.service.ID, Type: models.TypeEmergency, Priority: models.PriorityUrgent}
	if _, err := f.apptSvc.WalkIn(ctx, f.owner, f.clinic.ID, in); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner walk-in: expected ErrForbidden, got %v", err)
	}

	f.clock.Set(base.Add(2 * time.Hour))
	a, err := f.apptSvc.WalkIn(ctx, f.staff, f.clinic.ID, in)
	if err != nil {
		t.Fatalf("WalkIn: %v", err)
	}
	if a.BookingType != models.BookingWalkIn || a.Status != models.StatusConfirmed {
		t.Errorf("unexpected walk-in %s %s", a.BookingType, a.Status)
	}
	if a.ScheduledAt != nil || a.CheckedInAt == nil || !a.IsPriority() {
		t.Errorf("expected unscheduled, checked-in priority walk-in, got %+v", a)
	}

	if _, err := f.apptSvc.Reschedule(ctx, f.staff, a.ID, RescheduleInput{ScheduledAt: tuesday9, Reason: "later"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("walk-in reschedule: expected ErrInvalidTransition, got %v", err)
	}
	if got := testutil.ToFloat64(f.metrics.AppointmentsBooked.WithLabelValues("walk-in")); got != 1 {
		t.Errorf("expected 1 walk-in counted, got %v", got)
	}
}

func TestSendReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := f.book(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC))
	farOff := f.book(t, tuesday9.Add(24*time.Hour))
	for _, id := range []uint{soon.ID, farOff.ID} {
		f.appts.set(id, func(a *models.Appointment) {
			a.Owner = &models.User{Name: "Ana Owner", Email: "ana@example.com"}
			a.Pet = &models.Pet{Name: "Rex"}
		})
	}

	f.mailer.err = errors.New("smtp down")
	if n, err := f.apptSvc.SendReminders(ctx); err == nil || n != 0 {
		t.Errorf("expected mail failure to surface, got n=%d err=%v", n, err)
	}
	f.mailer.err = nil

	n, err := f.apptSvc.SendReminders(ctx)
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if n != 1 || len(f.mailer.sent) != 1 || f.mailer.sent[0].To != "ana@example.com" {
		t.Fatalf("expected one reminder to ana@example.com, got n=%d sent=%+v", n, f.mailer.sent)
	}
	if n, _ := f.apptSvc.SendReminders(ctx); n != 0 {
		t.Errorf("expected reminders not to repeat, got %d", n)
	}
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, tuesday9)
	f.book(t, tuesday9.Add(time.Hour))

	mine, total, err := f.apptSvc.ListForOwner(ctx, f.owner, AppointmentFilter{})
	if err != nil || total != 2 || len(mine) != 2 {
		t.Errorf("owner list: got %d/%d err=%v", len(mine), total, err)
	}
	theirs, total, _ := f.apptSvc.ListForOwner(ctx, f.other, AppointmentFilter{})
	if total != 0 || len(theirs) != 0 {
		t.Errorf("other owner should see nothing, got %d", total)
	}

	if _, _, err := f.apptSvc.ListForClinic(ctx, f.owner, f.clinic.ID, AppointmentFilter{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner clinic list: expected ErrForbidden, got %v", err)
	}
	list, total, err := f.apptSvc.ListForClinic(ctx, f.staff, f.clinic.ID, AppointmentFilter{StaffID: &f.vet.ID})
	if err != nil || total != 2 || len(list) != 2 {
		t.Errorf("clinic list: got %d/%d err=%v", len(list), total, err)
	}
	if _, err := f.apptSvc.Get(ctx, f.other, list[0].ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other owner get: expected ErrForbidden, got %v", err)
	}
}

func TestSetPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, tuesday9)

	if _, err := f.apptSvc.SetPriority(ctx, f.owner, a.ID, models.PriorityUrgent, "bleeding"); !errors.Is(err, ErrForbidden) {
		t.Errorf("owner override: expected ErrForbidden, got %v", err)
	}
	got, err := f.apptSvc.SetPriority(ctx, f.staff, a.ID, models.PriorityUrgent, "bleeding")
	if err != nil {
		t.Fatalf("SetPriority: %v", err)
	}
	if !got.IsPriority() || got.PriorityReason != "bleeding" {
		t.Errorf("expected urgent priority, got %s %q", got.Priority, got.PriorityReason)
	}
	var verr *ValidationError
	if _, err := f.apptSvc.SetPriority(ctx, f.staff, a.ID, "critical", ""); !errors.As(err, &verr) {
		t.Errorf("unknown level: expected ValidationError, got %v", err)
	}
}
