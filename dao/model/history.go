package model

import (
	"time"
)

// HistoryItemType names the entity a history entry belongs to.
type HistoryItemType string

const (
	HistoryItemRequest      HistoryItemType = "service_request"
	HistoryItemConsultation HistoryItemType = "consultation"
)

// HistoryEntry is one line of the append-only audit ledger. Entries are
// written in the same transaction as the transition they record and are
// never mutated or deleted. Display order is timestamp-descending,
// causal order timestamp-ascending.
//
// No gorm.Model here: the ledger has no UpdatedAt/DeletedAt semantics.
type HistoryEntry struct {
	ID        uint            `gorm:"primaryKey"`
	ItemID    uint            `gorm:"not null;index:idx_history_item;comment:id of the referenced item"`
	ItemType  HistoryItemType `gorm:"type:varchar(32);not null;index:idx_history_item"`
	Action    string          `gorm:"type:varchar(64);not null;comment:transition or event label"`
	ActorID   uint            `gorm:"not null"`
	ActorRole Role            `gorm:"not null"`
	Note      string          `gorm:"type:varchar(512)"`
	CreatedAt time.Time
}
