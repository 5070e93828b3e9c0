package repository

import "gorm.io/gorm"

// Repos bundles transaction-scoped repositories for one unit of work.
type Repos struct {
	Tickets   TicketRepository
	SyncState SyncStateRepository
	Blacklist BlacklistRepository
}

// UnitOfWork runs a function against transaction-scoped repositories. The
// sync orchestrator uses it to flush a whole run (every upsert plus the
// watermark advance) in a single commit: if fn returns an error, nothing is
// written.
type UnitOfWork interface {
	Do(fn func(repos *Repos) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a GORM-transaction-backed UnitOfWork.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(fn func(repos *Repos) error) error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Repos{
			Tickets:   NewTicketRepository(tx),
			SyncState: NewSyncStateRepository(tx),
			Blacklist: NewBlacklistRepository(tx),
		})
	})
}
