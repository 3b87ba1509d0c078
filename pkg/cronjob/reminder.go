package cronjob

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/oa-lab/hrdesk/dao/model"
)

// pendingCount is one unit's backlog of overdue requests.
type pendingCount struct {
	UnitID uint
	Count  int
}

// RemindPendingReviews scans for requests that have sat in a review queue
// since before the deadline and alerts the reviewers who own them: unit
// reviewers for the unit tier, central reviewers for the central tier.
func (rm *ReminderManager) RemindPendingReviews(ctx context.Context, deadline time.Time) error {
	var unitBacklog []pendingCount
	err := rm.db.WithContext(ctx).
		Model(&model.ServiceRequest{}).
		Select("unit_id", "count(*) as count").
		Where("status IN ? AND updated_at < ?",
			[]model.RequestStatus{model.RequestStatusSubmitted, model.RequestStatusUnderReviewUnit}, deadline).
		Group("unit_id").
		Scan(&unitBacklog).Error
	if err != nil {
		return fmt.Errorf("ReminderManager.RemindPendingReviews: %w", err)
	}

	for _, backlog := range unitBacklog {
		var reviewers []model.User
		err = rm.db.WithContext(ctx).
			Where("role = ? AND unit_id = ? AND status = ?",
				model.RoleUnitReviewer, backlog.UnitID, model.StatusActive).
			Find(&reviewers).Error
		if err != nil {
			return fmt.Errorf("ReminderManager.RemindPendingReviews: %w", err)
		}
		rm.notify(ctx, reviewers, backlog.Count)
	}

	var centralCount int64
	err = rm.db.WithContext(ctx).
		Model(&model.ServiceRequest{}).
		Where("status IN ? AND updated_at < ?",
			[]model.RequestStatus{model.RequestStatusApprovedByUnit, model.RequestStatusUnderReviewCentral}, deadline).
		Count(&centralCount).Error
	if err != nil {
		return fmt.Errorf("ReminderManager.RemindPendingReviews: %w", err)
	}
	if centralCount > 0 {
		var reviewers []model.User
		err = rm.db.WithContext(ctx).
			Where("role = ? AND status = ?", model.RoleCentralReviewer, model.StatusActive).
			Find(&reviewers).Error
		if err != nil {
			return fmt.Errorf("ReminderManager.RemindPendingReviews: %w", err)
		}
		rm.notify(ctx, reviewers, int(centralCount))
	}
	return nil
}

func (rm *ReminderManager) notify(ctx context.Context, reviewers []model.User, pending int) {
	for i := range reviewers {
		if err := rm.alerter.PendingReviewAlert(ctx, &reviewers[i], pending); err != nil {
			klog.Errorf("pending review alert to %s failed: %v", reviewers[i].Name, err)
		}
	}
}
