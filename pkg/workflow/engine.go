// Package workflow is the request and consultation workflow engine: the
// status state machines, the per-document verification tracker, the
// append-only history ledger and the escalation hand-off between unit and
// central review.
//
// Every transition is a single atomic read-modify-write guarded by
// optimistic concurrency: the UPDATE carries the status the caller read,
// and zero affected rows means another reviewer won the race.
package workflow

import (
	"context"

	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
)

// Engine executes workflow operations against the database and publishes
// consultation change events to the feed.
type Engine struct {
	db   *gorm.DB
	feed *changefeed.Feed
}

func NewEngine(db *gorm.DB, feed *changefeed.Feed) *Engine {
	return &Engine{db: db, feed: feed}
}

// DB exposes the underlying handle for read-only queries in handlers.
func (e *Engine) DB() *gorm.DB {
	return e.db
}

// appendHistory writes one ledger entry inside the caller's transaction.
// Entries are only ever written on successful transitions; a failed
// attempt rolls the transaction back and leaves no trace.
func appendHistory(tx *gorm.DB, itemType model.HistoryItemType, itemID uint, action string, actor Actor, note string) error {
	entry := model.HistoryEntry{
		ItemID:    itemID,
		ItemType:  itemType,
		Action:    action,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Note:      note,
	}
	return tx.Create(&entry).Error
}

// History returns the ledger for one item, newest first.
func (e *Engine) History(ctx context.Context, itemType model.HistoryItemType, itemID uint) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := e.db.WithContext(ctx).
		Where("item_id = ? AND item_type = ?", itemID, itemType).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}
