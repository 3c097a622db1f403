// Package feed projects recent notifications into display rows for the
// overview panel. Freshness is judged from receipt time, so rows age in
// place between deliveries.
package feed

import (
	"fmt"
	"strings"
	"time"

	"unpod-notifier/internal/dispatch"
)

const RefreshRate = 30 * time.Second

const (
	freshFor  = 10 * time.Minute
	recentFor = time.Hour
)

type Kind int

const (
	Older Kind = iota
	Fresh
	Recent
)

type Row struct {
	Title string
	Kind  Kind
	Age   string
}

// Compute builds one row per notification, newest first, plus a summary
// line for the panel footer. Notifications without a receipt time render
// with no age tag rather than a bogus one.
func Compute(notifications []dispatch.Notification, unread int, now time.Time) ([]Row, string) {
	rows := make([]Row, 0, len(notifications))
	for _, n := range notifications {
		row := Row{Title: displayTitle(n), Kind: Older}
		if !n.Received.IsZero() {
			age := now.Sub(n.Received)
			switch {
			case age <= freshFor:
				row.Kind = Fresh
			case age <= recentFor:
				row.Kind = Recent
			}
			row.Age = formatAge(age)
		}
		rows = append(rows, row)
	}

	detail := ""
	if unread > 0 {
		detail = fmt.Sprintf("%d unread", unread)
	}
	return rows, detail
}

func displayTitle(n dispatch.Notification) string {
	if title := strings.TrimSpace(n.Title); title != "" {
		return title
	}
	if body := strings.TrimSpace(n.Body); body != "" {
		return body
	}
	return "(untitled)"
}

func formatAge(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
