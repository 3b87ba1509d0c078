package cronjob

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oa-lab/hrdesk/dao/model"
)

type recordingAlerter struct {
	reminded map[string]int
}

func (r *recordingAlerter) RequestReturnedAlert(context.Context, uint, string) error { return nil }
func (r *recordingAlerter) RequestApprovedAlert(context.Context, uint) error         { return nil }
func (r *recordingAlerter) RequestRejectedAlert(context.Context, uint, string) error { return nil }
func (r *recordingAlerter) ConsultationReplyAlert(context.Context, uint) error       { return nil }

func (r *recordingAlerter) PendingReviewAlert(_ context.Context, reviewer *model.User, pending int) error {
	r.reminded[reviewer.Name] = pending
	return nil
}

func newReminderHarness(t *testing.T) (*ReminderManager, *gorm.DB, *recordingAlerter) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.ServiceRequest{}))

	rec := &recordingAlerter{reminded: make(map[string]int)}
	return NewReminderManager(db, rec), db, rec
}

func seedReviewer(t *testing.T, db *gorm.DB, name string, role model.Role, unitID uint) {
	t.Helper()
	require.NoError(t, db.Create(&model.User{
		Name:   name,
		Role:   role,
		Status: model.StatusActive,
		UnitID: unitID,
	}).Error)
}

func seedRequest(t *testing.T, db *gorm.DB, status model.RequestStatus, unitID uint, age time.Duration) {
	t.Helper()
	req := &model.ServiceRequest{
		RefCode:     fmt.Sprintf("hr-%s", uuid.New().String()[:8]),
		Type:        model.RequestTypeLeave,
		Status:      status,
		SubmitterID: 99,
		UnitID:      unitID,
	}
	require.NoError(t, db.Create(req).Error)
	// Backdate past the scan deadline.
	require.NoError(t, db.Model(req).UpdateColumn("updated_at", time.Now().Add(-age)).Error)
}

func TestRemindPendingReviewsGroupsByTier(t *testing.T) {
	rm, db, rec := newReminderHarness(t)
	ctx := context.Background()

	seedReviewer(t, db, "unit-a-reviewer", model.RoleUnitReviewer, 10)
	seedReviewer(t, db, "unit-b-reviewer", model.RoleUnitReviewer, 11)
	seedReviewer(t, db, "central-reviewer", model.RoleCentralReviewer, 0)

	seedRequest(t, db, model.RequestStatusSubmitted, 10, 48*time.Hour)
	seedRequest(t, db, model.RequestStatusUnderReviewUnit, 10, 48*time.Hour)
	seedRequest(t, db, model.RequestStatusUnderReviewCentral, 11, 48*time.Hour)
	// Fresh and terminal requests are out of scope.
	seedRequest(t, db, model.RequestStatusSubmitted, 11, time.Hour)
	seedRequest(t, db, model.RequestStatusApprovedFinal, 10, 48*time.Hour)

	require.NoError(t, rm.RemindPendingReviews(ctx, time.Now().Add(-24*time.Hour)))

	assert.Equal(t, 2, rec.reminded["unit-a-reviewer"])
	assert.NotContains(t, rec.reminded, "unit-b-reviewer")
	assert.Equal(t, 1, rec.reminded["central-reviewer"])
}

func TestRemindPendingReviewsSkipsInactiveReviewers(t *testing.T) {
	rm, db, rec := newReminderHarness(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.User{
		Name:   "retired-reviewer",
		Role:   model.RoleUnitReviewer,
		Status: model.StatusInactive,
		UnitID: 10,
	}).Error)
	seedRequest(t, db, model.RequestStatusSubmitted, 10, 48*time.Hour)

	require.NoError(t, rm.RemindPendingReviews(ctx, time.Now().Add(-24*time.Hour)))
	assert.Empty(t, rec.reminded)
}
