package repository

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	ticketdomain "ticketdesk-backend/internal/ticket/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&ticketdomain.Ticket{},
		&ticketdomain.SyncState{},
		&ticketdomain.BlacklistedSender{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func ts(day, hour int) *time.Time {
	t := time.Date(2026, 8, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	repo := NewTicketRepository(newTestDB(t))

	ticket := &ticketdomain.Ticket{
		ThreadID: "thr-1",
		Subject:  "first",
		Status:   ticketdomain.StatusPending,
		Priority: ticketdomain.PriorityMedium,
	}
	if err := repo.Upsert(ticket); err != nil {
		t.Fatalf("create: %v", err)
	}
	created := ticket.CreatedAt
	if created.IsZero() {
		t.Fatal("created_at not set")
	}

	update := &ticketdomain.Ticket{
		ThreadID: "thr-1",
		Subject:  "second",
		Status:   ticketdomain.StatusResponded,
		Priority: ticketdomain.PriorityMedium,
	}
	if err := repo.Upsert(update); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get("thr-1")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.Subject != "second" {
		t.Fatalf("subject = %q, want second", got.Subject)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at changed on update: %v vs %v", got.CreatedAt, created)
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	repo := NewTicketRepository(newTestDB(t))
	got, err := repo.Get("nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	repo := NewTicketRepository(newTestDB(t))

	seed := []*ticketdomain.Ticket{
		{ThreadID: "a", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, LastMessageAt: ts(1, 10)},
		{ThreadID: "b", Status: ticketdomain.StatusResponded, Priority: ticketdomain.PriorityMedium, LastMessageAt: ts(2, 10)},
		{ThreadID: "c", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, IsUnread: true, LastMessageAt: ts(3, 10)},
	}
	for _, s := range seed {
		if err := repo.Upsert(s); err != nil {
			t.Fatalf("seed %s: %v", s.ThreadID, err)
		}
	}

	all, total, err := repo.List(TicketQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(all))
	}
	if all[0].ThreadID != "c" || all[2].ThreadID != "a" {
		t.Fatalf("order = %s,%s,%s, want newest first", all[0].ThreadID, all[1].ThreadID, all[2].ThreadID)
	}

	awaiting, total, err := repo.List(TicketQuery{AwaitingOnly: true})
	if err != nil {
		t.Fatalf("list awaiting: %v", err)
	}
	if total != 2 || len(awaiting) != 2 {
		t.Fatalf("awaiting total=%d len=%d, want 2/2", total, len(awaiting))
	}

	unread, _, err := repo.List(TicketQuery{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 || unread[0].ThreadID != "c" {
		t.Fatalf("unread = %+v", unread)
	}
}

func TestCounts(t *testing.T) {
	db := newTestDB(t)
	repo := NewTicketRepository(db)
	now := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	seed := []*ticketdomain.Ticket{
		{ThreadID: "a", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, DueAt: ts(5, 0)},
		{ThreadID: "b", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, IsUnread: true, DueAt: ts(20, 0)},
		{ThreadID: "c", Status: ticketdomain.StatusResponded, Priority: ticketdomain.PriorityMedium, EscalationLevel: 1},
	}
	for _, s := range seed {
		if err := repo.Upsert(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	counts, err := repo.Counts(now)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.All != 3 || counts.Awaiting != 2 || counts.Unread != 1 || counts.Overdue != 1 || counts.Escalated != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestFindDueRemindersHonorsCooldown(t *testing.T) {
	repo := NewTicketRepository(newTestDB(t))
	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	recently := now.Add(-10 * time.Minute)
	longAgo := now.Add(-2 * time.Hour)

	seed := []*ticketdomain.Ticket{
		{ThreadID: "never", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true},
		{ThreadID: "stale", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, LastRemindedAt: &longAgo},
		{ThreadID: "fresh", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, LastRemindedAt: &recently},
		{ThreadID: "done", Status: ticketdomain.StatusResponded, Priority: ticketdomain.PriorityMedium},
		{ThreadID: "muted", Status: ticketdomain.StatusNoReplyNeeded, Priority: ticketdomain.PriorityMedium, IsNotReplied: true},
	}
	for _, s := range seed {
		if err := repo.Upsert(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	due, err := repo.FindDueReminders(now, time.Hour, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	ids := map[string]bool{}
	for _, d := range due {
		ids[d.ThreadID] = true
	}
	if len(due) != 2 || !ids["never"] || !ids["stale"] {
		t.Fatalf("due = %v, want never+stale", ids)
	}
}

func TestFindOverdueSkipsEscalated(t *testing.T) {
	repo := NewTicketRepository(newTestDB(t))
	now := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	seed := []*ticketdomain.Ticket{
		{ThreadID: "over", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, DueAt: ts(5, 0)},
		{ThreadID: "already", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, DueAt: ts(5, 0), EscalationLevel: 1},
		{ThreadID: "future", Status: ticketdomain.StatusPending, Priority: ticketdomain.PriorityMedium, IsNotReplied: true, DueAt: ts(20, 0)},
	}
	for _, s := range seed {
		if err := repo.Upsert(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	overdue, err := repo.FindOverdue(now)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ThreadID != "over" {
		t.Fatalf("overdue = %+v", overdue)
	}
}

func TestSyncStateLastWriteWins(t *testing.T) {
	repo := NewSyncStateRepository(newTestDB(t))

	if got, err := repo.Get("k"); err != nil || got != "" {
		t.Fatalf("empty get = %q, %v", got, err)
	}
	if err := repo.Set("k", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set("k", "2"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	if got, _ := repo.Get("k"); got != "2" {
		t.Fatalf("get = %q, want 2", got)
	}
	if err := repo.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := repo.Get("k"); got != "" {
		t.Fatalf("get after delete = %q", got)
	}
}

func TestBlacklistAddIsIdempotentAndCaseInsensitive(t *testing.T) {
	repo := NewBlacklistRepository(newTestDB(t))

	first, err := repo.Add("Tenant@Example.com")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := repo.Add("tenant@example.com")
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("duplicate add created a new entry: %s vs %s", first.ID, second.ID)
	}

	blocked, err := repo.IsBlacklisted("TENANT@example.com")
	if err != nil || !blocked {
		t.Fatalf("IsBlacklisted = %v, %v", blocked, err)
	}

	if err := repo.Remove("tenant@example.com"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	blocked, _ = repo.IsBlacklisted("tenant@example.com")
	if blocked {
		t.Fatal("still blacklisted after remove")
	}
}
