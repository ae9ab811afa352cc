// Package changes turns committed domain events into table change
// notifications and fans them out to in-process subscribers.
package changes

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/floroz/bazaar/pkg/apperr"
)

const (
	TableBids     = "bids"
	TableAuctions = "auctions"
)

// Tables lists every table that emits changes.
var Tables = []string{TableBids, TableAuctions}

var ErrUnknownTable = apperr.New(apperr.ErrValidation, "unknown change table")

// Change says the row ID in Table changed. For bids, ID is the auction id.
// A change carries no data; receivers re-fetch.
type Change struct {
	Table string `json:"table"`
	ID    string `json:"id"`
}

// Subscriber registers callbacks for a table. onChange runs on the
// dispatching goroutine and must not block. The returned func unsubscribes.
type Subscriber interface {
	Subscribe(table string, onChange func(id string)) (unsubscribe func())
}

// Publisher broadcasts a change to every API instance.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

type ProcessedEventRepository interface {
	IsEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (bool, error)
	MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error
}

// CacheInvalidator drops cached auction lists.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// ValidateTables checks tables and defaults an empty selection to all.
func ValidateTables(tables []string) ([]string, error) {
	if len(tables) == 0 {
		return Tables, nil
	}
	for _, table := range tables {
		if !slices.Contains(Tables, table) {
			return nil, ErrUnknownTable
		}
	}
	return tables, nil
}

// SubscribeToBidChanges calls onChange with the auction id whenever a bid
// is accepted on it.
func SubscribeToBidChanges(s Subscriber, onChange func(auctionID string)) (unsubscribe func()) {
	return s.Subscribe(TableBids, onChange)
}
