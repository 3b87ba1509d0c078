package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
)

// Shared test actors. Unit 10 is the submitter's unit; unit 11 is a
// foreign unit used for scope checks.
var (
	submitter    = Actor{ID: 1, Role: model.RoleUser, UnitID: 10}
	unitReviewer = Actor{ID: 2, Role: model.RoleUnitReviewer, UnitID: 10}
	central      = Actor{ID: 3, Role: model.RoleCentralReviewer}
	admin        = Actor{ID: 4, Role: model.RoleAdmin}
	foreignUnit  = Actor{ID: 5, Role: model.RoleUnitReviewer, UnitID: 11}
)

func newTestEngine(t *testing.T) (*Engine, *changefeed.Feed) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// The in-memory database exists per connection; keep a single one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Unit{},
		&model.User{},
		&model.ServiceRequest{},
		&model.DocumentSlot{},
		&model.Consultation{},
		&model.ConsultationMessage{},
		&model.HistoryEntry{},
	))

	feed := changefeed.New()
	return NewEngine(db, feed), feed
}

// submitRequest creates a request with the given provided document names.
func submitRequest(t *testing.T, e *Engine, typ model.RequestType, docNames ...string) *model.ServiceRequest {
	t.Helper()
	req := &model.ServiceRequest{Type: typ}
	docs := make([]model.DocumentSlot, 0, len(docNames))
	for _, name := range docNames {
		docs = append(docs, model.DocumentSlot{
			Name: name,
			URL:  "https://files.example.com/" + name,
		})
	}
	require.NoError(t, e.SubmitRequest(context.Background(), submitter, req, docs))
	return req
}

func requestHistory(t *testing.T, e *Engine, id uint) []model.HistoryEntry {
	t.Helper()
	entries, err := e.History(context.Background(), model.HistoryItemRequest, id)
	require.NoError(t, err)
	return entries
}

func slotsOf(t *testing.T, e *Engine, requestID uint) []model.DocumentSlot {
	t.Helper()
	var slots []model.DocumentSlot
	require.NoError(t, e.DB().Where("request_id = ?", requestID).Order("position ASC").Find(&slots).Error)
	return slots
}
