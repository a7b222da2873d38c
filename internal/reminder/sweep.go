// Package reminder implements the periodic sweep that sends the 24 hour
// and 1 hour pre-session reminder emails.
package reminder

import (
	"context"
	"log"
	"time"

	"roomreserve/internal/mailer"
	"roomreserve/internal/model"
	"roomreserve/internal/monitoring"
	"roomreserve/internal/repository"
)

// Milestones in send-priority order. The 1h pass runs first so that a
// participant whose 24h and 1h milestones are both overdue gets exactly
// one email, the more urgent one.
var milestones = []string{"1h", "24h"}

// DefaultBatchLimit bounds how many due reservations one sweep picks up
// per milestone.
const DefaultBatchLimit = 200

// Store is the slice of the reservation repository the sweep needs.
type Store interface {
	DueReminders(ctx context.Context, milestone string, now time.Time, limit int) ([]model.Reservation, error)
	MarkReminderSent(ctx context.Context, id uint64, milestone string) (bool, error)
}

// SessionSource loads sessions referenced by due reservations.
type SessionSource interface {
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
}

// Failure records one reservation the sweep could not settle. Failed
// sends stay unmarked and are retried by the next sweep.
type Failure struct {
	ReservationID uint64 `json:"reservation_id"`
	Milestone     string `json:"milestone"`
	Reason        string `json:"reason"`
}

// Summary is the result of one sweep run, returned to the cron caller.
type Summary struct {
	Sent         int       `json:"sent"`
	SkippedLate  int       `json:"skipped_late"`
	InvalidEmail int       `json:"invalid_email"`
	Failures     []Failure `json:"failures,omitempty"`
}

// Sweep scans for reservations whose reminder milestones have come due
// and emails each participant at most once per milestone. Marking
// happens only after a successful send, so a crash mid-run re-sends at
// most the in-flight email and never loses one.
type Sweep struct {
	store    Store
	sessions SessionSource
	mail     mailer.Sender
	siteURL  string
	limit    int
	now      func() time.Time
}

func NewSweep(store Store, sessions SessionSource, mail mailer.Sender, siteURL string) *Sweep {
	if store == nil || sessions == nil || mail == nil {
		panic("nil dependency passed to NewSweep")
	}
	return &Sweep{
		store:    store,
		sessions: sessions,
		mail:     mail,
		siteURL:  siteURL,
		limit:    DefaultBatchLimit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one sweep. Per-reservation problems are recorded in the
// summary and never abort the rest of the batch; only a failure to list
// due reservations stops the run.
func (s *Sweep) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	now := s.now()
	// Sessions repeat across the batch; cache per run.
	cache := map[uint64]*model.Session{}

	for _, milestone := range milestones {
		due, err := s.store.DueReminders(ctx, milestone, now, s.limit)
		if err != nil {
			return sum, err
		}
		for i := range due {
			s.process(ctx, &due[i], milestone, now, cache, &sum)
		}
	}
	log.Printf("reminder: sweep done sent=%d skipped_late=%d invalid_email=%d failures=%d",
		sum.Sent, sum.SkippedLate, sum.InvalidEmail, len(sum.Failures))
	return sum, nil
}

func (s *Sweep) process(ctx context.Context, res *model.Reservation, milestone string, now time.Time, cache map[uint64]*model.Session, sum *Summary) {
	sess, ok := cache[res.SessionID]
	if !ok {
		loaded, err := s.sessions.GetByID(ctx, res.SessionID)
		if err != nil {
			if err == repository.ErrSessionNotFound {
				// Session deleted out from under the reservation; settle the
				// milestone so it stops surfacing.
				s.mark(ctx, res.ID, milestone, sum)
				sum.SkippedLate++
				monitoring.TrackReminder(milestone, "skipped_late")
				return
			}
			sum.Failures = append(sum.Failures, Failure{ReservationID: res.ID, Milestone: milestone, Reason: err.Error()})
			monitoring.TrackReminder(milestone, "failed")
			return
		}
		sess = loaded
		cache[res.SessionID] = sess
	}

	// The session already started: a reminder now is noise. Settle
	// without sending.
	if !now.Before(sess.StartsAt) {
		s.mark(ctx, res.ID, milestone, sum)
		sum.SkippedLate++
		monitoring.TrackReminder(milestone, "skipped_late")
		return
	}
	// Both milestones overdue: the 1h pass already covered this
	// participant, so the 24h one is settled silently.
	if milestone == "24h" && res.Reminder1hAt != nil && !res.Reminder1hAt.After(now) {
		s.mark(ctx, res.ID, milestone, sum)
		sum.SkippedLate++
		monitoring.TrackReminder(milestone, "skipped_late")
		return
	}

	to := ""
	if res.UserEmail != nil {
		to = *res.UserEmail
	}
	if !mailer.ValidEmail(to) {
		// An address that failed validation will fail next sweep too;
		// settle it instead of retrying forever.
		s.mark(ctx, res.ID, milestone, sum)
		sum.InvalidEmail++
		monitoring.TrackReminder(milestone, "invalid_email")
		return
	}

	subject := mailer.ReminderSubject(sess.Title, milestone)
	html := mailer.ReminderHTML(sess.Title, sess.StartsAt, milestone, res.Timezone, s.siteURL)
	if err := s.mail.Send(ctx, to, subject, html); err != nil {
		sum.Failures = append(sum.Failures, Failure{ReservationID: res.ID, Milestone: milestone, Reason: err.Error()})
		monitoring.TrackReminder(milestone, "failed")
		return
	}
	s.mark(ctx, res.ID, milestone, sum)
	sum.Sent++
	monitoring.TrackReminder(milestone, "sent")
}

func (s *Sweep) mark(ctx context.Context, id uint64, milestone string, sum *Summary) {
	if _, err := s.store.MarkReminderSent(ctx, id, milestone); err != nil {
		sum.Failures = append(sum.Failures, Failure{ReservationID: id, Milestone: milestone, Reason: "mark: " + err.Error()})
	}
}
