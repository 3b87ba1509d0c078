package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/payload"
	"github.com/oa-lab/hrdesk/internal/resputil"
	"github.com/oa-lab/hrdesk/internal/util"
	"github.com/oa-lab/hrdesk/pkg/alert"
	"github.com/oa-lab/hrdesk/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewRequestMgr)
}

type RequestMgr struct {
	name    string
	db      *gorm.DB
	engine  *workflow.Engine
	alerter alert.AlertInterface
}

func NewRequestMgr(conf *RegisterConfig) Manager {
	return &RequestMgr{
		name:    "requests",
		db:      conf.DB,
		engine:  conf.Engine,
		alerter: conf.Alerter,
	}
}

func (mgr *RequestMgr) GetName() string { return mgr.name }

func (mgr *RequestMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *RequestMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("", mgr.CreateRequest)
	g.GET("", mgr.ListMyRequests)
	g.GET("/queue", mgr.ListReviewQueue)
	g.GET("/:id", mgr.GetRequest)

	g.POST("/:id/review", mgr.OpenReview)
	g.POST("/:id/approve", mgr.ApproveByUnit)
	g.POST("/:id/return", mgr.ReturnToUser)
	g.POST("/:id/resubmit", mgr.Resubmit)
	g.POST("/:id/final-approve", mgr.ApproveFinal)
	g.POST("/:id/return-unit", mgr.ReturnToUnit)
	g.POST("/:id/reject", mgr.Reject)

	g.PUT("/:id/slots/:slotID", mgr.ProvideDocument)
	g.POST("/:id/slots/:slotID/status", mgr.SetDocumentStatus)
}

func (mgr *RequestMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListAllRequests)
}

type (
	RequestIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	CreateRequestReq struct {
		Type    model.RequestType    `json:"type" binding:"required"`
		Content model.RequestContent `json:"content"`
	}

	RequestResp struct {
		ID         uint                 `json:"id"`
		RefCode    string               `json:"refCode"`
		Type       model.RequestType    `json:"type"`
		Status     model.RequestStatus  `json:"status"`
		Content    model.RequestContent `json:"content"`
		Documents  []DocumentSlotResp   `json:"documents,omitempty"`
		CreatedAt  time.Time            `json:"createdAt"`
		UpdatedAt  time.Time            `json:"updatedAt"`
		ApprovedAt *time.Time           `json:"approvedAt,omitempty"`

		SubmitterID uint   `json:"submitterID"`
		Submitter   string `json:"submitter,omitempty"`
		UnitID      uint   `json:"unitID"`
	}

	DocumentSlotResp struct {
		ID                 uint                     `json:"id"`
		Position           int                      `json:"position"`
		Name               string                   `json:"name"`
		URL                string                   `json:"url"`
		Note               string                   `json:"note"`
		Provided           bool                     `json:"provided"`
		VerificationStatus model.VerificationStatus `json:"verificationStatus"`
		VerificationNote   string                   `json:"verificationNote"`
	}
)

func toSlotResp(d model.DocumentSlot, viewer workflow.Actor) DocumentSlotResp {
	// Submitters only see the reviewer's note while the slot needs fixing.
	note := d.VerificationNote
	if !isReviewer(viewer) && d.VerificationStatus != model.VerificationNeedsFix {
		note = ""
	}
	return DocumentSlotResp{
		ID:                 d.ID,
		Position:           d.Position,
		Name:               d.Name,
		URL:                d.URL,
		Note:               d.Note,
		Provided:           d.Provided(),
		VerificationStatus: d.VerificationStatus,
		VerificationNote:   note,
	}
}

func isReviewer(actor workflow.Actor) bool {
	switch actor.Role {
	case model.RoleUnitReviewer, model.RoleCentralReviewer, model.RoleAdmin:
		return true
	default:
		return false
	}
}

func toRequestResp(req *model.ServiceRequest, viewer workflow.Actor) RequestResp {
	return RequestResp{
		ID:          req.ID,
		RefCode:     req.RefCode,
		Type:        req.Type,
		Status:      req.Status,
		Content:     req.Content.Data(),
		Documents:   lo.Map(req.Documents, func(d model.DocumentSlot, _ int) DocumentSlotResp { return toSlotResp(d, viewer) }),
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
		ApprovedAt:  req.ApprovedAt,
		SubmitterID: req.SubmitterID,
		Submitter:   req.Submitter.Name,
		UnitID:      req.UnitID,
	}
}

// CreateRequest godoc
//
//	@Summary		Submit a new request
//	@Description	Creates the request with its document checklist derived from the matching template; vault documents prefill the slots
//	@Tags			Request
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		CreateRequestReq	true	"request type and payload"
//	@Success		200		{object}	resputil.Response[RequestResp]	"the created request"
//	@Failure		400		{object}	resputil.Response[any]	"invalid request"
//	@Failure		500		{object}	resputil.Response[any]	"database error"
//	@Router			/v1/requests [post]
func (mgr *RequestMgr) CreateRequest(c *gin.Context) {
	var req CreateRequestReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	slots, err := mgr.buildChecklistSlots(c, actor.ID, req.Type, req.Content.SubCategory)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	request := &model.ServiceRequest{
		Type:    req.Type,
		Content: datatypes.NewJSONType(req.Content),
	}
	if err := mgr.engine.SubmitRequest(c, actor, request, slots); err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, toRequestResp(request, actor))
}

// buildChecklistSlots derives the initial document slots from the template
// matching the type and sub-category. Vault documents matching an item's
// key prefill the URL as a snapshot.
func (mgr *RequestMgr) buildChecklistSlots(
	c *gin.Context,
	userID uint,
	typ model.RequestType,
	subCategory string,
) ([]model.DocumentSlot, error) {
	tpl := &model.ChecklistTemplate{}
	err := mgr.db.WithContext(c).
		Where("type = ? AND sub_category = ?", typ, subCategory).
		First(tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && subCategory != "" {
		// Fall back to the type-wide template.
		err = mgr.db.WithContext(c).
			Where("type = ? AND sub_category = ''", typ).
			First(tpl).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // no checklist for this category
	}
	if err != nil {
		return nil, err
	}

	keys := lo.FilterMap(tpl.Items, func(it model.ChecklistItem, _ int) (string, bool) {
		return it.VaultKey, it.VaultKey != ""
	})
	vault := map[string]string{}
	if len(keys) > 0 {
		var docs []model.VaultDocument
		if err := mgr.db.WithContext(c).
			Where("user_id = ? AND key IN ?", userID, keys).
			Find(&docs).Error; err != nil {
			return nil, err
		}
		for _, d := range docs {
			vault[d.Key] = d.URL
		}
	}

	slots := make([]model.DocumentSlot, 0, len(tpl.Items))
	for _, item := range tpl.Items {
		slots = append(slots, model.DocumentSlot{
			Name: item.Name,
			Note: item.Note,
			URL:  vault[item.VaultKey],
		})
	}
	return slots, nil
}

type ListRequestsReq struct {
	PageIndex *int                `form:"page_index" binding:"required"`
	PageSize  *int                `form:"page_size" binding:"required"`
	Status    model.RequestStatus `form:"status"`
	Type      model.RequestType   `form:"type"`
}

func (mgr *RequestMgr) listRequests(c *gin.Context, req *ListRequestsReq, scope func(*gorm.DB) *gorm.DB) {
	query := mgr.db.WithContext(c).Model(&model.ServiceRequest{}).Scopes(scope)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	var requests []model.ServiceRequest
	err := query.
		Preload("Submitter").
		Order("created_at DESC").
		Offset((*req.PageIndex - 1) * *req.PageSize).
		Limit(*req.PageSize).
		Find(&requests).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	viewer := util.GetActor(c)
	rows := lo.Map(requests, func(r model.ServiceRequest, _ int) RequestResp { return toRequestResp(&r, viewer) })
	resputil.Success(c, payload.ListResp[RequestResp]{Rows: rows, Count: count})
}

// ListMyRequests godoc
//
//	@Summary		List my requests
//	@Description	Returns the requests submitted by the current user, newest first
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			query	query		ListRequestsReq	true	"pagination and filters"
//	@Success		200		{object}	resputil.Response[payload.ListResp[RequestResp]]	"request page"
//	@Failure		400		{object}	resputil.Response[any]	"invalid request"
//	@Router			/v1/requests [get]
func (mgr *RequestMgr) ListMyRequests(c *gin.Context) {
	var req ListRequestsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)
	mgr.listRequests(c, &req, func(db *gorm.DB) *gorm.DB {
		return db.Where("submitter_id = ?", actor.ID)
	})
}

// ListReviewQueue godoc
//
//	@Summary		List the review queue
//	@Description	Unit reviewers see their unit's open requests; central reviewers see the central tier
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			query	query		ListRequestsReq	true	"pagination and filters"
//	@Success		200		{object}	resputil.Response[payload.ListResp[RequestResp]]	"request page"
//	@Failure		403		{object}	resputil.Response[any]	"not a reviewer"
//	@Router			/v1/requests/queue [get]
func (mgr *RequestMgr) ListReviewQueue(c *gin.Context) {
	var req ListRequestsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	switch actor.Role {
	case model.RoleUnitReviewer:
		mgr.listRequests(c, &req, func(db *gorm.DB) *gorm.DB {
			return db.Where("unit_id = ? AND status IN ?", actor.UnitID, []model.RequestStatus{
				model.RequestStatusSubmitted,
				model.RequestStatusUnderReviewUnit,
				model.RequestStatusReturnedToUser,
			})
		})
	case model.RoleCentralReviewer:
		mgr.listRequests(c, &req, func(db *gorm.DB) *gorm.DB {
			return db.Where("status IN ?", []model.RequestStatus{
				model.RequestStatusApprovedByUnit,
				model.RequestStatusUnderReviewCentral,
			})
		})
	default:
		resputil.HTTPError(c, 403, "Not a reviewer", resputil.UserNotAllowed)
	}
}

// GetRequest godoc
//
//	@Summary		Get a request with its checklist
//	@Description	Submitter, owning-unit reviewers, central reviewers and admins may view; a central reviewer's first view claims the request for central review
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int	true	"request id"
//	@Success		200	{object}	resputil.Response[RequestResp]	"the request"
//	@Failure		403	{object}	resputil.Response[any]	"no access"
//	@Failure		404	{object}	resputil.Response[any]	"not found"
//	@Router			/v1/requests/{id} [get]
func (mgr *RequestMgr) GetRequest(c *gin.Context) {
	var uri RequestIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	request := &model.ServiceRequest{}
	err := mgr.db.WithContext(c).
		Preload("Submitter").
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(request, uri.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, 404, "Request not found", resputil.NotFound)
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}

	if !canViewRequest(actor, request) {
		resputil.HTTPError(c, 403, "No access to this request", resputil.UserNotAllowed)
		return
	}

	// A central reviewer opening a unit-approved request claims it.
	if actor.Role == model.RoleCentralReviewer && request.Status == model.RequestStatusApprovedByUnit {
		claimed, err := mgr.engine.TakeCentral(c, actor, request.ID)
		if err == nil {
			request.Status = claimed.Status
		} else if workflow.KindOf(err) != workflow.KindStaleState {
			klog.Errorf("claim request %d for central review: %v", request.ID, err)
		}
	}

	resputil.Success(c, toRequestResp(request, actor))
}

func canViewRequest(actor workflow.Actor, req *model.ServiceRequest) bool {
	switch actor.Role {
	case model.RoleAdmin, model.RoleCentralReviewer:
		return true
	case model.RoleUnitReviewer:
		return actor.UnitID == req.UnitID || actor.ID == req.SubmitterID
	default:
		return actor.ID == req.SubmitterID
	}
}

// ListAllRequests godoc
//
//	@Summary		List all requests
//	@Description	Admin view over every request with the shared filters
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			query	query		ListRequestsReq	true	"pagination and filters"
//	@Success		200		{object}	resputil.Response[payload.ListResp[RequestResp]]	"request page"
//	@Router			/v1/admin/requests [get]
func (mgr *RequestMgr) ListAllRequests(c *gin.Context) {
	var req ListRequestsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	mgr.listRequests(c, &req, func(db *gorm.DB) *gorm.DB { return db })
}

type TransitionNoteReq struct {
	Note    string `json:"note"`
	SlotIDs []uint `json:"slotIDs"` // slots to flag needs_fix on return
}

// transition binds the uri id, runs the engine call and answers with the
// updated request.
func (mgr *RequestMgr) transition(
	c *gin.Context,
	run func(actor workflow.Actor, id uint) (*model.ServiceRequest, error),
) {
	var uri RequestIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	request, err := run(actor, uri.ID)
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, toRequestResp(request, actor))
}

// OpenReview godoc
//
//	@Summary		Start reviewing a request
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int	true	"request id"
//	@Success		200	{object}	resputil.Response[RequestResp]	"the updated request"
//	@Failure		409	{object}	resputil.Response[any]	"transition rejected"
//	@Router			/v1/requests/{id}/review [post]
func (mgr *RequestMgr) OpenReview(c *gin.Context) {
	mgr.transition(c, func(actor workflow.Actor, id uint) (*model.ServiceRequest, error) {
		return mgr.engine.OpenReview(c, actor, id)
	})
}

// ApproveByUnit godoc
//
//	@Summary		Approve at the unit tier
//	@Description	Requires every provided document slot to be verified
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int	true	"request id"
//	@Success		200	{object}	resputil.Response[RequestResp]	"the updated request"
//	@Failure		409	{object}	resputil.Response[any]	"unverified documents or transition rejected"
//	@Router			/v1/requests/{id}/approve [post]
func (mgr *RequestMgr) ApproveByUnit(c *gin.Context) {
	mgr.transition(c, func(actor workflow.Actor, id uint) (*model.ServiceRequest, error) {
		return mgr.engine.ApproveByUnit(c, actor, id)
	})
}

// ReturnToUser godoc
//
//	@Summary		Return the request to its submitter
//	@Description	Requires a note; the listed slots are flagged needs_fix with it
//	@Tags			Request
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"request id"
//	@Param			data	body		TransitionNoteReq	true	"note and slots to flag"
//	@Success		200		{object}	resputil.Response[RequestResp]	"the updated request"
//	@Failure		409		{object}	resputil.Response[any]	"transition rejected"
//	@Router			/v1/requests/{id}/return [post]
func (mgr *RequestMgr) ReturnToUser(c *gin.Context) {
	var req TransitionNoteReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	mgr.transition(c, func(actor workflow.Actor, id uint) (*model.ServiceRequest, error) {
		request, err := mgr.engine.ReturnToUser(c, actor, id, req.Note, req.SlotIDs)
		if err == nil {
			mgr.notify(c, func() error { return mgr.alerter.RequestReturnedAlert(c, id, req.Note) })
		}
		return request, err
	})
}

// Resubmit godoc
//
//	@Summary		Resubmit a returned request
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int	true	"request id"
//	@Success		200	{object}	resputil.Response[RequestResp]	"the updated request"
//	@Failure		409	{object}	resputil.Response[any]	"transition rejected"
//	@Router			/v1/requests/{id}/resubmit [post]
func (mgr *RequestMgr) Resubmit(c *gin.Context) {
	mgr.transition(c, func(actor workflow.Actor, id uint) (*model.ServiceRequest, error) {
		return mgr.engine.Resubmit(c, actor, id)
	})
}

// ApproveFinal godoc
//
//	@Summary		Grant final approval
//	@Tags			Request
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int	true	"request id"
//	@Success		200	{object}	resputil.Response[RequestResp]	"the updated request"
//	@Failure		409	{object}	resputil.Response[any]	"transition rejected"
//	@Router			/v1/requests/{id}/final-approve [post]
func (mgr *RequestMgr) ApproveFinal(c *gin.Context) {
	mgr.transition(c, func(actor workflow.Actor, id uint) (*model.ServiceRequest, error) {
		request, err := mgr.engine.ApproveFinal(c, actor, id)
		if err == nil {
			mgr.notify(c, func() error { return mgr.alerter.RequestApprovedAlert(c, id) })
		}
		return request, err
	})
}

// ReturnToUnit godoc
//
//	@Summary		Send the request back to the unit tier
//	@Description	Requires a note explaining what the unit must revisit
//	@Tags			Request
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"request id"
//	@Param			data	body		TransitionNoteReq	true	"note"
//	@Success		200		{object}	resputil.Response[RequestResp]	"the updated request"
//	@Failure		409		{object}	resputil.Response[any]	"transition rejected"
//	@Router			/v1/requests/{id}/return-unit [post]
func (mgr *RequestMgr) ReturnToUnit(c *gin.Context) {
	var req TransitionNoteReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	mgr.transition(c, func(actor workflow.Actor, id uint) (*model.ServiceRequest, error) {
		return mgr.engine.ReturnToUnit(c, actor, id, req.Note)
	})
}

// Reject godoc
//
//	@Summary		Reject the request
//	@Description	Terminal; requires a note. The request stays readable forever
//	@Tags			Request
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"request id"
//	@Param			data	body		TransitionNoteReq	true	"note"
//	@Success		200		{object}	resputil.Response[RequestResp]	"the updated request"
//	@Failure		409		{object}	resputil.Response[any]	"transition rejected"
//	@Router			/v1/requests/{id}/reject [post]
func (mgr *RequestMgr) Reject(c *gin.Context) {
	var req TransitionNoteReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	mgr.transition(c, func(actor workflow.Actor, id uint) (*model.ServiceRequest, error) {
		request, err := mgr.engine.Reject(c, actor, id, req.Note)
		if err == nil {
			mgr.notify(c, func() error { return mgr.alerter.RequestRejectedAlert(c, id, req.Note) })
		}
		return request, err
	})
}

// notify delivers a notification without failing the request on alert
// channel errors.
func (mgr *RequestMgr) notify(_ *gin.Context, send func() error) {
	if mgr.alerter == nil {
		return
	}
	if err := send(); err != nil {
		klog.Errorf("notification failed: %v", err)
	}
}

type (
	SlotIDReq struct {
		ID     uint `uri:"id" binding:"required"`
		SlotID uint `uri:"slotID" binding:"required"`
	}

	ProvideDocumentReq struct {
		URL string `json:"url" binding:"required"`
	}

	SetDocumentStatusReq struct {
		Status       model.VerificationStatus `json:"status" binding:"required"`
		Note         string                   `json:"note"`
		PreserveNote bool                     `json:"preserveNote"`
	}
)

// ProvideDocument godoc
//
//	@Summary		Attach evidence to a checklist slot
//	@Description	Submitter only, while the request is editable; resets the slot to pending_review
//	@Tags			Request
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"request id"
//	@Param			slotID	path		int					true	"slot id"
//	@Param			data	body		ProvideDocumentReq	true	"evidence link"
//	@Success		200		{object}	resputil.Response[DocumentSlotResp]	"the updated slot"
//	@Failure		409		{object}	resputil.Response[any]	"request not editable"
//	@Router			/v1/requests/{id}/slots/{slotID} [put]
func (mgr *RequestMgr) ProvideDocument(c *gin.Context) {
	var uri SlotIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ProvideDocumentReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	actor := util.GetActor(c)
	slot, err := mgr.engine.ProvideDocument(c, actor, uri.ID, uri.SlotID, req.URL)
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, toSlotResp(*slot, actor))
}

// SetDocumentStatus godoc
//
//	@Summary		Set a slot's verification status
//	@Description	Reviewer only; needs_fix requires a note, verified clears it unless preserved
//	@Tags			Request
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int						true	"request id"
//	@Param			slotID	path		int						true	"slot id"
//	@Param			data	body		SetDocumentStatusReq	true	"verification verdict"
//	@Success		200		{object}	resputil.Response[DocumentSlotResp]	"the updated slot"
//	@Failure		409		{object}	resputil.Response[any]	"request in a terminal state"
//	@Router			/v1/requests/{id}/slots/{slotID}/status [post]
func (mgr *RequestMgr) SetDocumentStatus(c *gin.Context) {
	var uri SlotIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req SetDocumentStatusReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	actor := util.GetActor(c)
	slot, err := mgr.engine.SetDocumentStatus(c, actor, uri.ID, uri.SlotID, req.Status, req.Note, req.PreserveNote)
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, toSlotResp(*slot, actor))
}
