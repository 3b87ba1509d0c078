package workflow

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
)

// Consultation ledger labels.
const (
	consultationSubmit   = "submit"
	consultationMessage  = "message"
	consultationAnswer   = "answer"
	consultationEscalate = "escalate"
	consultationResolve  = "resolve"
	consultationClose    = "close"
)

// CreateConsultation stores a new consultation in state submitted and
// writes the first ledger entry.
func (e *Engine) CreateConsultation(ctx context.Context, actor Actor, c *model.Consultation) error {
	if actor.Role == model.RoleGuest {
		return errUnauthorized("guests cannot open consultations")
	}
	if c.Subject == "" {
		return errValidation("consultation subject must not be empty")
	}
	if c.Priority == "" {
		c.Priority = model.PriorityMedium
	}
	c.SubmitterID = actor.ID
	c.UnitID = actor.UnitID
	c.Status = model.ConsultationSubmitted
	c.IsEscalated = false

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return appendHistory(tx, model.HistoryItemConsultation, c.ID, consultationSubmit, actor, "")
	})
}

// AppendMessage adds one immutable message to the thread and applies the
// message-driven status rules:
//
//   - a reviewer message on a submitted consultation is the first touch
//     and moves it to under_review;
//   - a reviewer answer moves it to responded (unit) or
//     escalated_responded (central, escalated only) and records the
//     sender as current handler;
//   - a submitter message after an answer re-opens the loop as
//     follow_up_requested.
//
// Writes against a resolved or closed consultation fail with
// ConsultationClosed.
func (e *Engine) AppendMessage(
	ctx context.Context,
	actor Actor,
	consultationID uint,
	content string,
	msgType model.MessageType,
) (*model.ConsultationMessage, error) {
	if content == "" {
		return nil, errValidation("message content must not be empty")
	}
	if msgType != model.MessageQuestion && msgType != model.MessageAnswer {
		return nil, errValidation("unknown message type %q", msgType)
	}

	c, err := e.loadConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, errConsultationClosed(c.Status)
	}

	fromSubmitter := actor.ID == c.SubmitterID && !actor.Role.IsReviewer()
	if fromSubmitter {
		if msgType != model.MessageQuestion {
			return nil, errValidation("submitters post questions, not answers")
		}
	} else {
		if err := checkConsultationOwner(actor, c); err != nil {
			return nil, err
		}
	}

	newStatus, setHandler := nextConsultationStatus(c, actor, msgType, fromSubmitter)

	msg := &model.ConsultationMessage{
		ConsultationID: c.ID,
		SenderID:       actor.ID,
		SenderRole:     actor.Role,
		Content:        content,
		MessageType:    msgType,
		FromCentral:    actor.isCentral(),
	}

	action := consultationMessage
	if msgType == model.MessageAnswer {
		action = consultationAnswer
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if newStatus != c.Status || setHandler {
			updates := map[string]any{"status": newStatus}
			if setHandler {
				updates["current_handler_id"] = actor.ID
			}
			// Message insertion is commutative, but the status
			// recomputation that follows it is not; same guard as any
			// other transition.
			res := tx.Model(&model.Consultation{}).
				Where("id = ? AND status = ?", c.ID, c.Status).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStaleState("consultation", c.ID)
			}
		}
		return appendHistory(tx, model.HistoryItemConsultation, c.ID, action, actor, "")
	})
	if err != nil {
		return nil, err
	}

	e.feed.Publish(changefeed.Event{
		ConsultationID: c.ID,
		Kind:           changefeed.EventMessage,
		Status:         string(newStatus),
		MessageID:      msg.ID,
		SenderID:       actor.ID,
		At:             time.Now(),
	})
	return msg, nil
}

// nextConsultationStatus applies the message-driven part of the state
// machine. It returns the resulting status and whether the sender
// becomes the current handler.
func nextConsultationStatus(c *model.Consultation, actor Actor, msgType model.MessageType, fromSubmitter bool) (model.ConsultationStatus, bool) {
	if fromSubmitter {
		if c.Status == model.ConsultationResponded || c.Status == model.ConsultationEscalatedResponded {
			return model.ConsultationFollowUpRequested, false
		}
		return c.Status, false
	}

	if msgType == model.MessageAnswer {
		if actor.isCentral() {
			return model.ConsultationEscalatedResponded, true
		}
		return model.ConsultationResponded, true
	}

	// Reviewer question: first touch only.
	if c.Status == model.ConsultationSubmitted {
		return model.ConsultationUnderReview, false
	}
	return c.Status, false
}

// Escalate hands the consultation from unit to central review. Only a
// unit reviewer of the owning unit may escalate, only once, and only
// while the consultation is open. The flag never goes back to false.
func (e *Engine) Escalate(ctx context.Context, actor Actor, consultationID uint, note string) (*model.Consultation, error) {
	c, err := e.loadConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, errConsultationClosed(c.Status)
	}
	if c.IsEscalated {
		return nil, errInvalidConsultationTransition(c.Status, "re-escalate")
	}
	if !actor.canReviewUnit(c.UnitID) {
		return nil, errUnauthorized("escalation requires a unit reviewer of unit %d", c.UnitID)
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Consultation{}).
			Where("id = ? AND status = ? AND is_escalated = ?", c.ID, c.Status, false).
			Updates(map[string]any{
				"status":       model.ConsultationEscalated,
				"is_escalated": true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleState("consultation", c.ID)
		}
		return appendHistory(tx, model.HistoryItemConsultation, c.ID, consultationEscalate, actor, note)
	})
	if err != nil {
		return nil, err
	}

	c.Status = model.ConsultationEscalated
	c.IsEscalated = true
	e.publishStatus(c)
	return c, nil
}

// Resolve closes the loop successfully. Permitted for the reviewer role
// currently owning the consultation, from any non-terminal state.
func (e *Engine) Resolve(ctx context.Context, actor Actor, consultationID uint, note string) (*model.Consultation, error) {
	c, err := e.loadConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, errConsultationClosed(c.Status)
	}
	if err := checkConsultationOwner(actor, c); err != nil {
		return nil, err
	}

	now := time.Now()
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Consultation{}).
			Where("id = ? AND status = ?", c.ID, c.Status).
			Updates(map[string]any{
				"status":      model.ConsultationResolved,
				"resolved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleState("consultation", c.ID)
		}
		return appendHistory(tx, model.HistoryItemConsultation, c.ID, consultationResolve, actor, note)
	})
	if err != nil {
		return nil, err
	}

	c.Status = model.ConsultationResolved
	c.ResolvedAt = &now
	e.publishStatus(c)
	return c, nil
}

// Close is the administrative terminal state, reachable only by an
// admin with a mandatory note.
func (e *Engine) Close(ctx context.Context, actor Actor, consultationID uint, note string) (*model.Consultation, error) {
	if actor.Role != model.RoleAdmin {
		return nil, errUnauthorized("closing a consultation requires an administrator")
	}
	if note == "" {
		return nil, errValidation("closing requires a note")
	}
	c, err := e.loadConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, errConsultationClosed(c.Status)
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Consultation{}).
			Where("id = ? AND status = ?", c.ID, c.Status).
			Update("status", model.ConsultationClosed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleState("consultation", c.ID)
		}
		return appendHistory(tx, model.HistoryItemConsultation, c.ID, consultationClose, actor, note)
	})
	if err != nil {
		return nil, err
	}

	c.Status = model.ConsultationClosed
	e.publishStatus(c)
	return c, nil
}

func (e *Engine) publishStatus(c *model.Consultation) {
	e.feed.Publish(changefeed.Event{
		ConsultationID: c.ID,
		Kind:           changefeed.EventStatus,
		Status:         string(c.Status),
		At:             time.Now(),
	})
}

func (e *Engine) loadConsultation(ctx context.Context, id uint) (*model.Consultation, error) {
	var c model.Consultation
	err := e.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound("consultation", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
