package mailer

import (
	"fmt"
	"html"
	"time"
)

// FormatInZone renders an instant in the participant's IANA timezone
// for display in email bodies. Missing or invalid zones fall back to
// UTC rather than failing the send.
func FormatInZone(t time.Time, timezone *string) string {
	loc := time.UTC
	if timezone != nil && *timezone != "" {
		if l, err := time.LoadLocation(*timezone); err == nil {
			loc = l
		}
	}
	return t.In(loc).Format("Mon, Jan 2, 3:04 PM MST")
}

// ConfirmationSubject is the subject line for booking confirmations.
func ConfirmationSubject(sessionTitle string) string {
	return fmt.Sprintf("You're in: %s", sessionTitle)
}

// ConfirmationHTML renders the booking confirmation body.
func ConfirmationHTML(sessionTitle string, startsAt time.Time, timezone *string, siteURL string) string {
	when := FormatInZone(startsAt, timezone)
	return fmt.Sprintf(`
  <div style="font-family: ui-sans-serif, system-ui, sans-serif; line-height: 1.5;">
    <h2 style="margin:0 0 12px 0;">You're in</h2>
    <p style="margin:0 0 12px 0;">You're signed up for <strong>%s</strong>.</p>
    <p style="margin:0 0 16px 0;"><strong>When:</strong> %s</p>
    <p style="margin:0 0 16px 0;">Join from the site when the button opens (5 minutes before start):</p>
    <p style="margin:0 0 20px 0;">
      <a href="%s" style="display:inline-block; padding:10px 14px; border-radius:10px; background:#111827; color:#fff; text-decoration:none;">Open Writing Room</a>
    </p>
    <p style="margin:0; color:#6b7280; font-size:12px;">Tip: join opens 5 minutes before start.</p>
  </div>`,
		html.EscapeString(sessionTitle), html.EscapeString(when), siteURL)
}

// ReminderSubject builds the subject line for a milestone reminder.
// label is "24h" or "1h".
func ReminderSubject(sessionTitle, label string) string {
	if label == "24h" {
		return fmt.Sprintf("Reminder: %s (tomorrow)", sessionTitle)
	}
	return fmt.Sprintf("Reminder: %s (starting soon)", sessionTitle)
}

// ReminderHTML renders a milestone reminder body.
func ReminderHTML(sessionTitle string, startsAt time.Time, label string, timezone *string, siteURL string) string {
	headline := "Reminder: starting soon"
	if label == "24h" {
		headline = "Reminder: tomorrow"
	}
	when := FormatInZone(startsAt, timezone)
	return fmt.Sprintf(`
  <div style="font-family: ui-sans-serif, system-ui, sans-serif; line-height: 1.5;">
    <h2 style="margin:0 0 12px 0;">%s</h2>
    <p style="margin:0 0 12px 0;"><strong>%s</strong></p>
    <p style="margin:0 0 16px 0;"><strong>When:</strong> %s</p>
    <p style="margin:0 0 20px 0;">
      <a href="%s" style="display:inline-block; padding:10px 14px; border-radius:10px; background:#111827; color:#fff; text-decoration:none;">Open Writing Room</a>
    </p>
    <p style="margin:0; color:#6b7280; font-size:12px;">Tip: join opens 5 minutes before start.</p>
  </div>`,
		html.EscapeString(headline), html.EscapeString(sessionTitle), html.EscapeString(when), siteURL)
}
