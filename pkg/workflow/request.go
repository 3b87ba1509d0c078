package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
)

// RequestAction names an edge of the request state graph. The action
// string doubles as the history ledger label.
type RequestAction string

const (
	ActionSubmit        RequestAction = "submit"
	ActionOpenReview    RequestAction = "open_review"
	ActionApproveByUnit RequestAction = "approve_by_unit"
	ActionReturnToUser  RequestAction = "return_to_user"
	ActionResubmit      RequestAction = "resubmit"
	ActionTakeCentral   RequestAction = "take_central"
	ActionApproveFinal  RequestAction = "approve_final"
	ActionReturnToUnit  RequestAction = "return_to_unit"
	ActionReject        RequestAction = "reject"
)

// requestEdges is the explicit transition table: from-state x action ->
// to-state. An action absent from the current state's row is an invalid
// transition, which keeps the graph exhaustive and test-checkable.
// The reject edge is handled separately because it leaves from every
// non-terminal state.
var requestEdges = map[model.RequestStatus]map[RequestAction]model.RequestStatus{
	model.RequestStatusSubmitted: {
		ActionOpenReview: model.RequestStatusUnderReviewUnit,
	},
	model.RequestStatusUnderReviewUnit: {
		ActionApproveByUnit: model.RequestStatusApprovedByUnit,
		ActionReturnToUser:  model.RequestStatusReturnedToUser,
	},
	model.RequestStatusReturnedToUser: {
		ActionResubmit: model.RequestStatusSubmitted,
	},
	model.RequestStatusApprovedByUnit: {
		ActionTakeCentral: model.RequestStatusUnderReviewCentral,
	},
	model.RequestStatusUnderReviewCentral: {
		ActionApproveFinal: model.RequestStatusApprovedFinal,
		ActionReturnToUnit: model.RequestStatusUnderReviewUnit,
	},
}

// noteRequired lists the edges that demand a non-empty note.
var noteRequired = map[RequestAction]bool{
	ActionReturnToUser: true,
	ActionReturnToUnit: true,
	ActionReject:       true,
}

// checkRequestRole gates each edge on the actor's role. Unit-reviewer
// edges additionally require the actor's unit to match the request's
// owning unit; resubmission is reserved for the submitting user.
func checkRequestRole(actor Actor, req *model.ServiceRequest, action RequestAction) error {
	switch action {
	case ActionOpenReview, ActionApproveByUnit, ActionReturnToUser:
		if !actor.canReviewUnit(req.UnitID) {
			return errUnauthorized("action %s requires a unit reviewer of unit %d", action, req.UnitID)
		}
	case ActionTakeCentral, ActionApproveFinal, ActionReturnToUnit:
		if !actor.isCentral() {
			return errUnauthorized("action %s requires a central reviewer", action)
		}
	case ActionReject:
		if !actor.isCentral() && !actor.canReviewUnit(req.UnitID) {
			return errUnauthorized("rejection requires a unit or central reviewer of the request")
		}
	case ActionResubmit:
		if actor.ID != req.SubmitterID {
			return errUnauthorized("only the submitting user may resubmit request %d", req.ID)
		}
	default:
		return errValidation("unknown request action %q", action)
	}
	return nil
}

// SubmitRequest creates a request in state submitted together with its
// document checklist and the first ledger entry. The submitter and
// owning unit are fixed at this point and never change.
func (e *Engine) SubmitRequest(ctx context.Context, actor Actor, req *model.ServiceRequest, docs []model.DocumentSlot) error {
	if actor.Role == model.RoleGuest {
		return errUnauthorized("guests cannot submit requests")
	}
	req.SubmitterID = actor.ID
	req.UnitID = actor.UnitID
	req.Status = model.RequestStatusSubmitted
	req.RefCode = fmt.Sprintf("hr-%s", uuid.New().String()[:8])

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		for i := range docs {
			docs[i].RequestID = req.ID
			docs[i].Position = i
			docs[i].VerificationStatus = model.VerificationPending
		}
		if len(docs) > 0 {
			if err := tx.Create(&docs).Error; err != nil {
				return err
			}
		}
		return appendHistory(tx, model.HistoryItemRequest, req.ID, string(ActionSubmit), actor, "")
	})
}

// OpenReview moves a submitted request into unit review. Triggered when
// a unit reviewer opens the request.
func (e *Engine) OpenReview(ctx context.Context, actor Actor, requestID uint) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionOpenReview, "", nil)
}

// ApproveByUnit advances unit review to unit approval. Precondition:
// every provided document slot must be verified; otherwise the call
// fails with PreconditionFailed naming the outstanding slots.
func (e *Engine) ApproveByUnit(ctx context.Context, actor Actor, requestID uint) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionApproveByUnit, "", nil)
}

// ReturnToUser hands the request back to the submitter for fixes. The
// note is mandatory and every slot in flagSlots is marked needs_fix with
// that note.
func (e *Engine) ReturnToUser(ctx context.Context, actor Actor, requestID uint, note string, flagSlots []uint) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionReturnToUser, note, flagSlots)
}

// Resubmit re-enters the submitted state after the submitter addressed a
// return. Only the owning user may resubmit.
func (e *Engine) Resubmit(ctx context.Context, actor Actor, requestID uint) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionResubmit, "", nil)
}

// TakeCentral moves a unit-approved request into central review. Called
// explicitly, or implicitly on first central-reviewer access.
func (e *Engine) TakeCentral(ctx context.Context, actor Actor, requestID uint) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionTakeCentral, "", nil)
}

// ApproveFinal is the terminal success transition; it stamps ApprovedAt.
func (e *Engine) ApproveFinal(ctx context.Context, actor Actor, requestID uint) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionApproveFinal, "", nil)
}

// ReturnToUnit sends a request under central review back to unit review
// with a mandatory note.
func (e *Engine) ReturnToUnit(ctx context.Context, actor Actor, requestID uint, note string) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionReturnToUnit, note, nil)
}

// Reject is the terminal failure transition, reachable from any
// non-terminal state by an authorized reviewer with a mandatory note.
func (e *Engine) Reject(ctx context.Context, actor Actor, requestID uint, note string) (*model.ServiceRequest, error) {
	return e.transitionRequest(ctx, actor, requestID, ActionReject, note, nil)
}

// transitionRequest is the single read-modify-write every request edge
// funnels through.
func (e *Engine) transitionRequest(
	ctx context.Context,
	actor Actor,
	requestID uint,
	action RequestAction,
	note string,
	flagSlots []uint,
) (*model.ServiceRequest, error) {
	var req model.ServiceRequest
	err := e.db.WithContext(ctx).Preload("Documents", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNotFound("request", requestID)
	}
	if err != nil {
		return nil, err
	}

	target, err := requestTarget(req.Status, action)
	if err != nil {
		return nil, err
	}
	if err := checkRequestRole(actor, &req, action); err != nil {
		return nil, err
	}
	if noteRequired[action] && note == "" {
		return nil, errValidation("action %s requires a note", action)
	}
	if action == ActionApproveByUnit {
		if err := checkDocumentsVerified(req.Documents); err != nil {
			return nil, err
		}
	}

	prev := req.Status
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": target}
		if action == ActionApproveFinal {
			updates["approved_at"] = time.Now()
		}
		res := tx.Model(&model.ServiceRequest{}).
			Where("id = ? AND status = ?", req.ID, prev).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleState("request", req.ID)
		}

		if action == ActionReturnToUser && len(flagSlots) > 0 {
			res := tx.Model(&model.DocumentSlot{}).
				Where("request_id = ? AND id IN ?", req.ID, flagSlots).
				Updates(map[string]any{
					"verification_status": model.VerificationNeedsFix,
					"verification_note":   note,
				})
			if res.Error != nil {
				return res.Error
			}
		}

		return appendHistory(tx, model.HistoryItemRequest, req.ID, string(action), actor, note)
	})
	if err != nil {
		return nil, err
	}

	req.Status = target
	if action == ActionApproveFinal {
		now := time.Now()
		req.ApprovedAt = &now
	}
	return &req, nil
}

// requestTarget resolves the transition table, folding in the reject
// edge which leaves from every non-terminal state.
func requestTarget(from model.RequestStatus, action RequestAction) (model.RequestStatus, error) {
	if action == ActionReject {
		if from.IsTerminal() {
			return "", errInvalidTransition(from, action)
		}
		return model.RequestStatusRejected, nil
	}
	if to, ok := requestEdges[from][action]; ok {
		return to, nil
	}
	return "", errInvalidTransition(from, action)
}

// checkDocumentsVerified enforces the approval gate: every slot the
// submitter actually provided must be verified. Slots with an empty URL
// are "not provided" and never count, in either direction.
func checkDocumentsVerified(docs []model.DocumentSlot) error {
	var outstanding []string
	for i := range docs {
		d := &docs[i]
		if !d.Provided() {
			continue
		}
		if d.VerificationStatus != model.VerificationVerified {
			outstanding = append(outstanding, d.Name)
		}
	}
	if len(outstanding) > 0 {
		return errPreconditionFailed(outstanding)
	}
	return nil
}

// document verification tracker ----------------------------------------

// documentAction maps a verification status to its ledger label.
func documentAction(status model.VerificationStatus) string {
	return fmt.Sprintf("document_%s", status)
}

// SetDocumentStatus updates one slot's verification sub-state. Reviewer
// only; allowed at any point while the owning request is not terminal.
// needs_fix demands a note; verified clears any prior note unless the
// caller asks to preserve it.
func (e *Engine) SetDocumentStatus(
	ctx context.Context,
	actor Actor,
	requestID, slotID uint,
	status model.VerificationStatus,
	note string,
	preserveNote bool,
) (*model.DocumentSlot, error) {
	switch status {
	case model.VerificationPending, model.VerificationVerified, model.VerificationNeedsFix:
	default:
		return nil, errValidation("unknown verification status %q", status)
	}
	if status == model.VerificationNeedsFix && note == "" {
		return nil, errValidation("needs_fix requires a note")
	}

	req, slot, err := e.loadSlot(ctx, requestID, slotID)
	if err != nil {
		return nil, err
	}
	if !actor.isCentral() && !actor.canReviewUnit(req.UnitID) {
		return nil, errUnauthorized("document verification requires a reviewer of the request")
	}
	if req.Status.IsTerminal() {
		return nil, errInvalidTransition(req.Status, RequestAction(documentAction(status)))
	}

	newNote := note
	if status == model.VerificationVerified && note == "" && !preserveNote {
		newNote = ""
	} else if note == "" && preserveNote {
		newNote = slot.VerificationNote
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.DocumentSlot{}).
			Where("id = ? AND verification_status = ?", slot.ID, slot.VerificationStatus).
			Updates(map[string]any{
				"verification_status": status,
				"verification_note":   newNote,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleState("document slot", slot.ID)
		}
		return appendHistory(tx, model.HistoryItemRequest, req.ID, documentAction(status), actor, newNote)
	})
	if err != nil {
		return nil, err
	}

	slot.VerificationStatus = status
	slot.VerificationNote = newNote
	return slot, nil
}

// ProvideDocument lets the submitter attach or replace evidence on a
// slot while the request is with them (submitted or returned_to_user).
// The slot drops back to pending_review for the next review pass.
func (e *Engine) ProvideDocument(ctx context.Context, actor Actor, requestID, slotID uint, url string) (*model.DocumentSlot, error) {
	if url == "" {
		return nil, errValidation("document url must not be empty")
	}
	req, slot, err := e.loadSlot(ctx, requestID, slotID)
	if err != nil {
		return nil, err
	}
	if actor.ID != req.SubmitterID {
		return nil, errUnauthorized("only the submitting user may provide documents")
	}
	if req.Status != model.RequestStatusSubmitted && req.Status != model.RequestStatusReturnedToUser {
		return nil, errInvalidTransition(req.Status, "provide_document")
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.DocumentSlot{}).
			Where("id = ?", slot.ID).
			Updates(map[string]any{
				"url":                 url,
				"verification_status": model.VerificationPending,
				"verification_note":   "",
			})
		if res.Error != nil {
			return res.Error
		}
		return appendHistory(tx, model.HistoryItemRequest, req.ID, "document_provided", actor, slot.Name)
	})
	if err != nil {
		return nil, err
	}

	slot.URL = url
	slot.VerificationStatus = model.VerificationPending
	slot.VerificationNote = ""
	return slot, nil
}

func (e *Engine) loadSlot(ctx context.Context, requestID, slotID uint) (*model.ServiceRequest, *model.DocumentSlot, error) {
	var req model.ServiceRequest
	err := e.db.WithContext(ctx).First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errNotFound("request", requestID)
	}
	if err != nil {
		return nil, nil, err
	}
	var slot model.DocumentSlot
	err = e.db.WithContext(ctx).Where("id = ? AND request_id = ?", slotID, requestID).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, errNotFound("document slot", slotID)
	}
	if err != nil {
		return nil, nil, err
	}
	return &req, &slot, nil
}
