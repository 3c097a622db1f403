package feed

import (
	"testing"
	"time"

	"unpod-notifier/internal/dispatch"
)

func TestCompute_ClassifiesRowsByAge(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	notifications := []dispatch.Notification{
		{Title: "Deploy finished", Received: now.Add(-5 * time.Minute)},
		{Title: "Invite accepted", Received: now.Add(-30 * time.Minute)},
		{Title: "Weekly digest", Received: now.Add(-3 * time.Hour)},
		{Title: "Ancient news", Received: now.Add(-49 * time.Hour)},
	}

	rows, detail := Compute(notifications, 2, now)
	if len(rows) != 4 {
		t.Fatalf("rows len = %d, want 4", len(rows))
	}
	wantKinds := []Kind{Fresh, Recent, Older, Older}
	for i, row := range rows {
		if row.Kind != wantKinds[i] {
			t.Errorf("rows[%d].Kind = %d, want %d", i, row.Kind, wantKinds[i])
		}
	}
	wantAges := []string{"5m ago", "30m ago", "3h ago", "2d ago"}
	for i, row := range rows {
		if row.Age != wantAges[i] {
			t.Errorf("rows[%d].Age = %q, want %q", i, row.Age, wantAges[i])
		}
	}
	if detail != "2 unread" {
		t.Fatalf("detail = %q, want 2 unread", detail)
	}
}

func TestCompute_FallsBackThroughEmptyTitles(t *testing.T) {
	now := time.Now()
	rows, detail := Compute([]dispatch.Notification{
		{Body: "Body only", Received: now},
		{Received: now},
		{Title: "  ", Body: "  "},
	}, 0, now)

	if rows[0].Title != "Body only" {
		t.Errorf("rows[0].Title = %q, want Body only", rows[0].Title)
	}
	if rows[1].Title != "(untitled)" || rows[2].Title != "(untitled)" {
		t.Errorf("blank notifications = %q/%q, want (untitled)", rows[1].Title, rows[2].Title)
	}
	if rows[2].Age != "" {
		t.Errorf("rows[2].Age = %q, want empty for zero receipt time", rows[2].Age)
	}
	if detail != "" {
		t.Fatalf("detail = %q, want empty with zero unread", detail)
	}
}

func TestCompute_FreshRowSaysJustNow(t *testing.T) {
	now := time.Now()
	rows, _ := Compute([]dispatch.Notification{{Title: "Ping", Received: now.Add(-20 * time.Second)}}, 0, now)
	if rows[0].Age != "just now" || rows[0].Kind != Fresh {
		t.Fatalf("row = %+v, want just now / Fresh", rows[0])
	}
}
