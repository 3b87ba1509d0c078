package cronjob

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/oa-lab/hrdesk/pkg/alert"
	"github.com/oa-lab/hrdesk/pkg/config"
)

// ReminderManager runs the periodic scan over requests that have been
// sitting in a review queue past the configured deadline and notifies the
// responsible reviewers.
type ReminderManager struct {
	db        *gorm.DB
	alerter   alert.AlertInterface
	cron      *cron.Cron
	cronMutex sync.RWMutex
	entryID   cron.EntryID
}

func NewReminderManager(db *gorm.DB, alerter alert.AlertInterface) *ReminderManager {
	return &ReminderManager{
		db:      db,
		alerter: alerter,
		cron:    cron.New(cron.WithLocation(time.Local)),
	}
}

// Start schedules the reminder scan and starts the cron loop. It is a
// no-op when reminders are disabled in the config.
func (rm *ReminderManager) Start() error {
	cfg := config.GetConfig().Reminder
	if !cfg.Enable {
		klog.Info("reminder cron disabled")
		return nil
	}

	rm.cronMutex.Lock()
	defer rm.cronMutex.Unlock()

	pending := time.Duration(cfg.PendingHours) * time.Hour
	entryID, err := rm.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := rm.RemindPendingReviews(ctx, time.Now().Add(-pending)); err != nil {
			klog.Errorf("reminder scan failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	rm.entryID = entryID
	rm.cron.Start()
	klog.Infof("reminder cron scheduled: %q", cfg.Schedule)
	return nil
}

// Stop halts the cron loop and waits for a running scan to finish.
func (rm *ReminderManager) Stop() {
	rm.cronMutex.Lock()
	defer rm.cronMutex.Unlock()
	<-rm.cron.Stop().Done()
}
