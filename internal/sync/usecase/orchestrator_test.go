package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	mailboxrepo "ticketdesk-backend/internal/mailbox/repository"
	mailboxusecase "ticketdesk-backend/internal/mailbox/usecase"
	ticketdomain "ticketdesk-backend/internal/ticket/domain"
	"ticketdesk-backend/internal/ticket/repository"
	"ticketdesk-backend/pkg/config"
)

// fakeProvider is an in-memory MailProvider for orchestrator tests.
type fakeProvider struct {
	historyID  uint64
	historyErr error

	threads   map[string]*mailboxdomain.Thread
	threadErr map[string]error

	listed     []string
	listErr    error
	lastQuery  string
	lastInbox  bool
	listCalled bool

	changed    []string
	changedErr error
}

func (f *fakeProvider) CurrentHistoryID(ctx context.Context, creds mailboxdomain.Credentials) (uint64, error) {
	return f.historyID, f.historyErr
}

func (f *fakeProvider) ListThreadIDs(ctx context.Context, creds mailboxdomain.Credentials, query string, inboxOnly bool, max int) (*mailboxdomain.ThreadPage, error) {
	f.listCalled = true
	f.lastQuery = query
	f.lastInbox = inboxOnly
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := &mailboxdomain.ThreadPage{}
	for _, id := range f.listed {
		if len(page.IDs) >= max {
			page.HitLimit = true
			break
		}
		page.IDs = append(page.IDs, id)
	}
	return page, nil
}

func (f *fakeProvider) ListChangedThreadIDs(ctx context.Context, creds mailboxdomain.Credentials, startHistoryID uint64) ([]string, error) {
	if f.changedErr != nil {
		return nil, f.changedErr
	}
	return f.changed, nil
}

func (f *fakeProvider) GetThread(ctx context.Context, creds mailboxdomain.Credentials, threadID string) (*mailboxdomain.Thread, error) {
	if err, ok := f.threadErr[threadID]; ok {
		return nil, err
	}
	if th, ok := f.threads[threadID]; ok {
		return th, nil
	}
	return nil, mailboxdomain.ErrThreadNotFound
}

func (f *fakeProvider) GetThreadDetail(ctx context.Context, creds mailboxdomain.Credentials, threadID string) (*mailboxdomain.ThreadDetail, error) {
	return &mailboxdomain.ThreadDetail{ThreadID: threadID}, nil
}

func (f *fakeProvider) SendMessage(ctx context.Context, creds mailboxdomain.Credentials, threadID, to, subject, body string) error {
	return nil
}

func awaitingThread(id string) *mailboxdomain.Thread {
	return &mailboxdomain.Thread{
		ID:       id,
		Messages: []mailboxdomain.ThreadMessage{outboundMsg("m1", t1), inboundMsg("m2", t2)},
	}
}

func newTestOrchestrator(t *testing.T, provider *fakeProvider) (*Orchestrator, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)

	session := mailboxusecase.NewSessionSource(mailboxrepo.NewOAuthTokenRepository(db))
	cfg := &config.Config{
		MyEmails:          []string{"agent@example.com"},
		SyncBootstrapDays: 30,
	}
	o := NewOrchestrator(provider, session, repository.NewUnitOfWork(db), newTestReconciler(), cfg)
	return o, db
}

func connectMailbox(t *testing.T, db *gorm.DB) {
	t.Helper()
	row := &mailboxdomain.OAuthToken{
		Provider:     "google",
		AccessToken:  "at",
		RefreshToken: "rt",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := mailboxrepo.NewOAuthTokenRepository(db).Save(row); err != nil {
		t.Fatalf("save token: %v", err)
	}
}

func watermark(t *testing.T, db *gorm.DB) string {
	t.Helper()
	value, err := repository.NewSyncStateRepository(db).Get(ticketdomain.SyncStateKeyGmailHistory)
	if err != nil {
		t.Fatalf("get watermark: %v", err)
	}
	return value
}

func setWatermark(t *testing.T, db *gorm.DB, value string) {
	t.Helper()
	if err := repository.NewSyncStateRepository(db).Set(ticketdomain.SyncStateKeyGmailHistory, value); err != nil {
		t.Fatalf("set watermark: %v", err)
	}
}

func TestSyncNotConnectedIsNonFatal(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeProvider{})

	summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{Incremental: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.OK {
		t.Fatal("expected OK=false before mailbox connect")
	}
	if summary.Error != "mailbox not connected" {
		t.Fatalf("error = %q", summary.Error)
	}
}

func TestSyncBootstrapSetsWatermark(t *testing.T) {
	provider := &fakeProvider{
		historyID: 4242,
		listed:    []string{"thr-1"},
		threads:   map[string]*mailboxdomain.Thread{"thr-1": awaitingThread("thr-1")},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)

	summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{Incremental: true})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !summary.OK {
		t.Fatalf("summary not OK: %s", summary.Error)
	}
	if summary.Mode != ModeBootstrap {
		t.Fatalf("mode = %q, want bootstrap", summary.Mode)
	}
	if summary.Upserted != 1 {
		t.Fatalf("upserted = %d, want 1", summary.Upserted)
	}
	if !provider.lastInbox {
		t.Fatal("bootstrap should restrict to inbox by default")
	}
	if got := watermark(t, db); got != "4242" {
		t.Fatalf("watermark = %q, want 4242", got)
	}
	if summary.HistoryID != "4242" {
		t.Fatalf("summary history id = %q", summary.HistoryID)
	}
}

func TestSyncIncrementalUsesChangeLog(t *testing.T) {
	provider := &fakeProvider{
		historyID: 5000,
		changed:   []string{"thr-1", "thr-2"},
		threads: map[string]*mailboxdomain.Thread{
			"thr-1": awaitingThread("thr-1"),
			"thr-2": awaitingThread("thr-2"),
		},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)
	setWatermark(t, db, "4000")

	summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{Incremental: true})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Mode != ModeIncremental {
		t.Fatalf("mode = %q, want incremental", summary.Mode)
	}
	if provider.listCalled {
		t.Fatal("incremental mode must not fall back to listing")
	}
	if summary.Upserted != 2 {
		t.Fatalf("upserted = %d, want 2", summary.Upserted)
	}
	if got := watermark(t, db); got != "5000" {
		t.Fatalf("watermark = %q, want 5000", got)
	}
}

func TestSyncExpiredMarkerFallsBackToWindow(t *testing.T) {
	provider := &fakeProvider{
		historyID:  6000,
		changedErr: mailboxdomain.ErrHistoryExpired,
		listed:     []string{"thr-1"},
		threads:    map[string]*mailboxdomain.Thread{"thr-1": awaitingThread("thr-1")},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)
	setWatermark(t, db, "1")

	summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{Incremental: true})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !summary.OK {
		t.Fatalf("expired marker must not fail the run: %s", summary.Error)
	}
	if summary.Mode != ModeBootstrap {
		t.Fatalf("mode = %q, want bootstrap fallback", summary.Mode)
	}
	if !provider.listCalled {
		t.Fatal("fallback should list a recent window")
	}
	if got := watermark(t, db); got != "6000" {
		t.Fatalf("watermark = %q, want 6000 after recovery", got)
	}
}

func TestSyncRangeModeDoesNotAdvanceWatermark(t *testing.T) {
	provider := &fakeProvider{
		historyID: 7000,
		listed:    []string{"thr-1"},
		threads:   map[string]*mailboxdomain.Thread{"thr-1": awaitingThread("thr-1")},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)
	setWatermark(t, db, "4000")

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Mode != ModeRange {
		t.Fatalf("mode = %q, want range", summary.Mode)
	}
	if provider.lastQuery != "after:2026/08/01 before:2026/08/16" {
		t.Fatalf("query = %q", provider.lastQuery)
	}
	if got := watermark(t, db); got != "4000" {
		t.Fatalf("watermark = %q, range mode must not advance it", got)
	}
}

func TestSyncCapTruncatesAndFlagsLimit(t *testing.T) {
	provider := &fakeProvider{
		historyID: 8000,
		changed:   []string{"thr-1", "thr-2", "thr-3"},
		threads: map[string]*mailboxdomain.Thread{
			"thr-1": awaitingThread("thr-1"),
			"thr-2": awaitingThread("thr-2"),
			"thr-3": awaitingThread("thr-3"),
		},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)
	setWatermark(t, db, "7000")

	summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{Incremental: true, MaxThreads: 2})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !summary.HitLimit {
		t.Fatal("expected hit_limit=true")
	}
	if summary.ThreadsSeen != 2 {
		t.Fatalf("threads_seen = %d, want 2", summary.ThreadsSeen)
	}
	if summary.Upserted != 2 {
		t.Fatalf("upserted = %d, want 2", summary.Upserted)
	}
}

func TestSyncSkipsVanishedThreads(t *testing.T) {
	provider := &fakeProvider{
		historyID: 9000,
		changed:   []string{"thr-1", "thr-gone"},
		threads:   map[string]*mailboxdomain.Thread{"thr-1": awaitingThread("thr-1")},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)
	setWatermark(t, db, "8000")

	summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{Incremental: true})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !summary.OK {
		t.Fatalf("vanished thread must not fail the run: %s", summary.Error)
	}
	if summary.Upserted != 1 || summary.Skipped != 1 {
		t.Fatalf("upserted=%d skipped=%d, want 1/1", summary.Upserted, summary.Skipped)
	}
}

func TestSyncFatalErrorLeavesWatermarkUntouched(t *testing.T) {
	provider := &fakeProvider{
		historyID: 9500,
		changed:   []string{"thr-1", "thr-2"},
		threads:   map[string]*mailboxdomain.Thread{"thr-1": awaitingThread("thr-1")},
		threadErr: map[string]error{"thr-2": errors.New("storage exploded")},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)
	setWatermark(t, db, "9000")

	_, err := o.SyncInboxThreads(context.Background(), SyncOptions{Incremental: true})
	if err == nil {
		t.Fatal("expected fatal error to propagate")
	}
	if got := watermark(t, db); got != "9000" {
		t.Fatalf("watermark = %q, must stay at 9000 after aborted run", got)
	}
	// The aborted transaction must also roll back the upsert of thr-1.
	ticket, err := repository.NewTicketRepository(db).Get("thr-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ticket != nil {
		t.Fatal("upsert from aborted run must be rolled back")
	}
}

func TestSyncSecondRunIsIdempotent(t *testing.T) {
	provider := &fakeProvider{
		historyID: 9900,
		listed:    []string{"thr-1"},
		threads:   map[string]*mailboxdomain.Thread{"thr-1": awaitingThread("thr-1")},
	}
	o, db := newTestOrchestrator(t, provider)
	connectMailbox(t, db)

	for i := 0; i < 2; i++ {
		summary, err := o.SyncInboxThreads(context.Background(), SyncOptions{})
		if err != nil || !summary.OK {
			t.Fatalf("run #%d: err=%v summary=%+v", i+1, err, summary)
		}
	}

	var count int64
	if err := db.Model(&ticketdomain.Ticket{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("ticket rows = %d, want 1", count)
	}
}
