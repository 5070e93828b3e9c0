package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
	mailboxusecase "ticketdesk-backend/internal/mailbox/usecase"
	ticketdomain "ticketdesk-backend/internal/ticket/domain"
	"ticketdesk-backend/internal/ticket/repository"
	"ticketdesk-backend/pkg/config"
)

// Sync modes reported in the run summary.
const (
	ModeRange       = "range"
	ModeIncremental = "incremental"
	ModeBootstrap   = "bootstrap"
)

const defaultMaxThreads = 500

// SyncOptions are the per-run knobs of the orchestrator.
type SyncOptions struct {
	MaxThreads int

	// StartDate/EndDate select range mode. EndDate is inclusive.
	StartDate *time.Time
	EndDate   *time.Time

	// Incremental tails the change log from the stored watermark when one
	// exists. Ignored in range mode.
	Incremental bool

	IncludeArchived bool
	AwaitingOnly    bool
	AutoClassify    bool
}

// RunSummary is the sole observable result of a sync run. Expected failure
// conditions (mailbox not connected) produce OK=false with an error string
// instead of a returned error.
type RunSummary struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Mode  string `json:"mode,omitempty"`

	ThreadsSeen int  `json:"threads_seen"`
	Upserted    int  `json:"upserted"`
	Skipped     int  `json:"skipped"`
	HitLimit    bool `json:"hit_limit"`

	HistoryID string `json:"history_id,omitempty"`

	Mailbox         string `json:"mailbox,omitempty"`
	IncludeArchived bool   `json:"include_archived"`
	AwaitingOnly    bool   `json:"awaiting_only"`
	AutoClassify    bool   `json:"auto_classify"`
}

// Orchestrator owns thread selection, the reconcile loop, the commit
// boundary, and the watermark. Runs are serialized: concurrent runs would
// race on the watermark and double-count history events.
type Orchestrator struct {
	provider   mailboxdomain.MailProvider
	session    *mailboxusecase.SessionSource
	uow        repository.UnitOfWork
	reconciler *ThreadReconciler
	cfg        *config.Config

	mu sync.Mutex
}

func NewOrchestrator(
	provider mailboxdomain.MailProvider,
	session *mailboxusecase.SessionSource,
	uow repository.UnitOfWork,
	reconciler *ThreadReconciler,
	cfg *config.Config,
) *Orchestrator {
	return &Orchestrator{
		provider:   provider,
		session:    session,
		uow:        uow,
		reconciler: reconciler,
		cfg:        cfg,
	}
}

// SyncInboxThreads runs one full sync pass. It returns an error only for
// fatal conditions (persistence unavailable); everything expected is folded
// into the summary.
func (o *Orchestrator) SyncInboxThreads(ctx context.Context, opts SyncOptions) (*RunSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	summary := &RunSummary{
		IncludeArchived: opts.IncludeArchived,
		AwaitingOnly:    opts.AwaitingOnly,
		AutoClassify:    opts.AutoClassify,
	}
	if len(o.cfg.MyEmails) > 0 {
		summary.Mailbox = o.cfg.MyEmails[0]
	}
	if opts.MaxThreads <= 0 {
		opts.MaxThreads = defaultMaxThreads
	}

	creds, err := o.session.Credentials()
	if err != nil {
		if errors.Is(err, mailboxdomain.ErrMailboxNotConnected) {
			summary.Error = "mailbox not connected"
			return summary, nil
		}
		return summary, err
	}

	rangeMode := opts.StartDate != nil || opts.EndDate != nil

	// The marker is read before listing so events landing mid-run are
	// replayed next time instead of being skipped.
	var startMarker uint64
	markerOK := false
	if !rangeMode {
		startMarker, err = o.provider.CurrentHistoryID(ctx, creds)
		if err != nil {
			if errors.Is(err, mailboxdomain.ErrMailboxNotConnected) {
				summary.Error = "mailbox not connected"
				return summary, nil
			}
			log.Printf("[Sync] could not read current history marker, watermark will not advance: %v", err)
		} else {
			markerOK = true
		}
	}

	threadIDs, mode, hitLimit, err := o.selectThreads(ctx, creds, opts, rangeMode, markerOK)
	if err != nil {
		if errors.Is(err, mailboxdomain.ErrMailboxNotConnected) {
			summary.Error = "mailbox not connected"
			return summary, nil
		}
		summary.Error = err.Error()
		summary.Mode = mode
		return summary, nil
	}

	if len(threadIDs) > opts.MaxThreads {
		threadIDs = threadIDs[:opts.MaxThreads]
		hitLimit = true
	}

	summary.Mode = mode
	summary.HitLimit = hitLimit
	summary.ThreadsSeen = len(threadIDs)

	reconcileOpts := ReconcileOptions{
		AwaitingOnly: opts.AwaitingOnly,
		AutoClassify: opts.AutoClassify,
	}

	upserted, skipped := 0, 0
	err = o.uow.Do(func(repos *repository.Repos) error {
		for _, id := range threadIDs {
			thread, fetchErr := o.provider.GetThread(ctx, creds, id)
			if fetchErr != nil {
				if errors.Is(fetchErr, mailboxdomain.ErrThreadNotFound) ||
					errors.Is(fetchErr, mailboxdomain.ErrTransient) {
					log.Printf("[Sync] skipping thread %s: %v", id, fetchErr)
					skipped++
					continue
				}
				return fetchErr
			}

			ok, recErr := o.reconciler.Reconcile(ctx, thread, repos, reconcileOpts)
			if recErr != nil {
				return recErr
			}
			if ok {
				upserted++
			} else {
				skipped++
			}
		}

		// Watermark advances only for non-range runs, and only inside the
		// same transaction as the upserts.
		if !rangeMode && markerOK {
			value := strconv.FormatUint(startMarker, 10)
			if err := repos.SyncState.Set(ticketdomain.SyncStateKeyGmailHistory, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, mailboxdomain.ErrMailboxNotConnected) {
			summary.Error = "mailbox not connected"
			return summary, nil
		}
		return summary, fmt.Errorf("sync run aborted: %w", err)
	}

	summary.OK = true
	summary.Upserted = upserted
	summary.Skipped = skipped
	if !rangeMode && markerOK {
		summary.HistoryID = strconv.FormatUint(startMarker, 10)
	}
	return summary, nil
}

// selectThreads picks the candidate thread IDs and reports the mode used.
// Incremental tailing requires both a stored watermark and a readable
// current marker; otherwise the run degrades to the bootstrap window.
func (o *Orchestrator) selectThreads(ctx context.Context, creds mailboxdomain.Credentials, opts SyncOptions, rangeMode, markerOK bool) ([]string, string, bool, error) {
	if rangeMode {
		ids, hitLimit, err := o.listByRange(ctx, creds, opts.StartDate, opts.EndDate, opts)
		return ids, ModeRange, hitLimit, err
	}

	if opts.Incremental && markerOK {
		stored, err := o.readWatermark()
		if err != nil {
			return nil, ModeIncremental, false, err
		}
		if stored > 0 {
			ids, err := o.provider.ListChangedThreadIDs(ctx, creds, stored)
			if err == nil {
				return ids, ModeIncremental, false, nil
			}
			if !errors.Is(err, mailboxdomain.ErrHistoryExpired) {
				return nil, ModeIncremental, false, err
			}
			log.Printf("[Sync] history marker %d expired, falling back to %d-day window", stored, o.cfg.SyncBootstrapDays)
		}
	}

	start := time.Now().UTC().AddDate(0, 0, -o.cfg.SyncBootstrapDays)
	ids, hitLimit, err := o.listByRange(ctx, creds, &start, nil, opts)
	return ids, ModeBootstrap, hitLimit, err
}

func (o *Orchestrator) listByRange(ctx context.Context, creds mailboxdomain.Credentials, start, end *time.Time, opts SyncOptions) ([]string, bool, error) {
	query := buildRangeQuery(start, end, opts.IncludeArchived)
	page, err := o.provider.ListThreadIDs(ctx, creds, query, !opts.IncludeArchived, opts.MaxThreads)
	if err != nil {
		return nil, false, err
	}
	return page.IDs, page.HitLimit, nil
}

// buildRangeQuery renders a Gmail search restricted to the given dates.
// The provider's before: operator is exclusive, so the inclusive end date
// is pushed forward one day.
func buildRangeQuery(start, end *time.Time, includeArchived bool) string {
	var terms []string
	if includeArchived {
		terms = append(terms, "in:anywhere")
	}
	if start != nil {
		terms = append(terms, "after:"+start.Format("2006/01/02"))
	}
	if end != nil {
		terms = append(terms, "before:"+end.AddDate(0, 0, 1).Format("2006/01/02"))
	}
	return strings.Join(terms, " ")
}

func (o *Orchestrator) readWatermark() (uint64, error) {
	var value string
	err := o.uow.Do(func(repos *repository.Repos) error {
		var innerErr error
		value, innerErr = repos.SyncState.Get(ticketdomain.SyncStateKeyGmailHistory)
		return innerErr
	})
	if err != nil {
		return 0, err
	}
	if value == "" {
		return 0, nil
	}
	marker, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		// A corrupt watermark is unrecoverable by tailing; treat as absent.
		log.Printf("[Sync] discarding unparseable watermark %q", value)
		return 0, nil
	}
	return marker, nil
}
