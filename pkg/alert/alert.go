package alert

import (
	"context"
	"fmt"
	"sync"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/dao/query"
	"github.com/oa-lab/hrdesk/pkg/config"
)

type alertMgr struct {
	handler alertHandlerInterface
}

var (
	once    sync.Once
	alerter *alertMgr
)

func GetAlertMgr() AlertInterface {
	once.Do(func() {
		alerter = initAlertMgr()
	})
	return alerter
}

func initAlertMgr() *alertMgr {
	// SMTP is the primary channel; the webhook robot is the fallback when
	// no mail server is configured.
	cfg := config.GetConfig()
	if cfg.SMTP.Host != "" {
		smtpHandler, err := newSMTPAlerter()
		if err != nil {
			panic(err)
		}
		return &alertMgr{handler: smtpHandler}
	}
	return &alertMgr{handler: newWebhookRobot()}
}

// sendRequestMessage resolves the request's submitter and delivers the
// rendered message.
func (a *alertMgr) sendRequestMessage(ctx context.Context, requestID uint, subject, messageTemplate string, extra ...any) error {
	db := query.GetDB()
	req := &model.ServiceRequest{}
	if err := db.WithContext(ctx).First(req, requestID).Error; err != nil {
		return err
	}
	user := &model.User{}
	if err := db.WithContext(ctx).First(user, req.SubmitterID).Error; err != nil {
		return err
	}
	receiver := user.Attributes.Data()

	args := append([]any{receiver.Nickname, req.Type, req.ID}, extra...)
	body := fmt.Sprintf(messageTemplate, args...)
	return a.handler.SendMessageTo(ctx, &receiver, subject, body)
}

func (a *alertMgr) RequestReturnedAlert(ctx context.Context, requestID uint, note string) error {
	subject := "Request returned for fixes"
	messageTemplate := `Dear %s: your %s request (#%d) was returned by the reviewer. Reviewer note: %s. Please fix the flagged items and resubmit.`
	return a.sendRequestMessage(ctx, requestID, subject, messageTemplate, note)
}

func (a *alertMgr) RequestApprovedAlert(ctx context.Context, requestID uint) error {
	subject := "Request approved"
	messageTemplate := `Dear %s: your %s request (#%d) has received final approval.`
	return a.sendRequestMessage(ctx, requestID, subject, messageTemplate)
}

func (a *alertMgr) RequestRejectedAlert(ctx context.Context, requestID uint, note string) error {
	subject := "Request rejected"
	messageTemplate := `Dear %s: your %s request (#%d) was rejected. Reviewer note: %s.`
	return a.sendRequestMessage(ctx, requestID, subject, messageTemplate, note)
}

func (a *alertMgr) ConsultationReplyAlert(ctx context.Context, consultationID uint) error {
	db := query.GetDB()
	c := &model.Consultation{}
	if err := db.WithContext(ctx).First(c, consultationID).Error; err != nil {
		return err
	}
	user := &model.User{}
	if err := db.WithContext(ctx).First(user, c.SubmitterID).Error; err != nil {
		return err
	}
	receiver := user.Attributes.Data()

	subject := "Your consultation received a reply"
	body := fmt.Sprintf(`Dear %s: your consultation "%s" (#%d) received a new reply. Sign in to read it.`,
		receiver.Nickname, c.Subject, c.ID)
	return a.handler.SendMessageTo(ctx, &receiver, subject, body)
}

func (a *alertMgr) PendingReviewAlert(ctx context.Context, reviewer *model.User, pending int) error {
	receiver := reviewer.Attributes.Data()
	subject := "Requests awaiting your review"
	body := fmt.Sprintf(`Dear %s: %d request(s) in your queue have been waiting past the review deadline. Please process them.`,
		receiver.Nickname, pending)
	return a.handler.SendMessageTo(ctx, &receiver, subject, body)
}
