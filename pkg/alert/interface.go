package alert

import (
	"context"

	"github.com/oa-lab/hrdesk/dao/model"
)

// AlertInterface is the notification component used by handlers and the
// reminder cron. Covered scenarios:
//  1. a request was returned to its submitter for fixes
//  2. a request reached final approval
//  3. a request was rejected
//  4. a consultation received a reviewer reply
//  5. a reviewer has requests sitting unreviewed past the deadline
type AlertInterface interface {
	RequestReturnedAlert(ctx context.Context, requestID uint, note string) error
	RequestApprovedAlert(ctx context.Context, requestID uint) error
	RequestRejectedAlert(ctx context.Context, requestID uint, note string) error
	ConsultationReplyAlert(ctx context.Context, consultationID uint) error
	PendingReviewAlert(ctx context.Context, reviewer *model.User, pending int) error
}

// alertHandlerInterface is what a concrete channel (SMTP, webhook robot)
// implements.
type alertHandlerInterface interface {
	SendMessageTo(ctx context.Context, receiver *model.UserAttribute, subject, body string) error
}
