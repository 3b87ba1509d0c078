package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
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
	Registers = append(Registers, NewConsultationMgr)
}

type ConsultationMgr struct {
	name    string
	db      *gorm.DB
	engine  *workflow.Engine
	alerter alert.AlertInterface
}

func NewConsultationMgr(conf *RegisterConfig) Manager {
	return &ConsultationMgr{
		name:    "consultations",
		db:      conf.DB,
		engine:  conf.Engine,
		alerter: conf.Alerter,
	}
}

func (mgr *ConsultationMgr) GetName() string { return mgr.name }

func (mgr *ConsultationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ConsultationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("", mgr.CreateConsultation)
	g.GET("", mgr.ListConsultations)
	g.GET("/:id", mgr.GetConsultation)
	g.POST("/:id/messages", mgr.AppendMessage)
	g.POST("/:id/escalate", mgr.Escalate)
	g.POST("/:id/resolve", mgr.Resolve)
}

func (mgr *ConsultationMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListAllConsultations)
	g.POST("/:id/close", mgr.Close)
}

type (
	ConsultationIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}

	CreateConsultationReq struct {
		Subject     string                     `json:"subject" binding:"required"`
		Description string                     `json:"description"`
		Category    string                     `json:"category"`
		Priority    model.ConsultationPriority `json:"priority"`
	}

	ConsultationNoteReq struct {
		Note string `json:"note"`
	}

	AppendMessageReq struct {
		Content     string            `json:"content" binding:"required"`
		MessageType model.MessageType `json:"messageType" binding:"required"`
	}

	ConsultationResp struct {
		ID          uint                       `json:"id"`
		Subject     string                     `json:"subject"`
		Description string                     `json:"description"`
		Category    string                     `json:"category"`
		Priority    model.ConsultationPriority `json:"priority"`
		Status      model.ConsultationStatus   `json:"status"`
		IsEscalated bool                       `json:"isEscalated"`
		OwningRole  model.Role                 `json:"owningRole"`
		CreatedAt   time.Time                  `json:"createdAt"`
		ResolvedAt  *time.Time                 `json:"resolvedAt,omitempty"`

		SubmitterID      uint   `json:"submitterID"`
		UnitID           uint   `json:"unitID"`
		CurrentHandlerID uint   `json:"currentHandlerID,omitempty"`

		Messages []MessageResp `json:"messages,omitempty"`
	}

	MessageResp struct {
		ID          uint              `json:"id"`
		SenderID    uint              `json:"senderID"`
		SenderRole  model.Role        `json:"senderRole"`
		Content     string            `json:"content"`
		MessageType model.MessageType `json:"messageType"`
		FromCentral bool              `json:"fromCentral"`
		CreatedAt   time.Time         `json:"createdAt"`
	}
)

func toConsultationResp(c *model.Consultation) ConsultationResp {
	return ConsultationResp{
		ID:               c.ID,
		Subject:          c.Subject,
		Description:      c.Description,
		Category:         c.Category,
		Priority:         c.Priority,
		Status:           c.Status,
		IsEscalated:      c.IsEscalated,
		OwningRole:       workflow.OwningRole(c.IsEscalated),
		CreatedAt:        c.CreatedAt,
		ResolvedAt:       c.ResolvedAt,
		SubmitterID:      c.SubmitterID,
		UnitID:           c.UnitID,
		CurrentHandlerID: c.CurrentHandlerID,
		Messages: lo.Map(c.Messages, func(m model.ConsultationMessage, _ int) MessageResp {
			return MessageResp{
				ID:          m.ID,
				SenderID:    m.SenderID,
				SenderRole:  m.SenderRole,
				Content:     m.Content,
				MessageType: m.MessageType,
				FromCentral: m.FromCentral,
				CreatedAt:   m.CreatedAt,
			}
		}),
	}
}

// CreateConsultation godoc
//
//	@Summary		Open a consultation
//	@Tags			Consultation
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		CreateConsultationReq	true	"subject and details"
//	@Success		200		{object}	resputil.Response[ConsultationResp]	"the created consultation"
//	@Failure		400		{object}	resputil.Response[any]	"invalid request"
//	@Router			/v1/consultations [post]
func (mgr *ConsultationMgr) CreateConsultation(c *gin.Context) {
	var req CreateConsultationReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	consultation := &model.Consultation{
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	}
	if err := mgr.engine.CreateConsultation(c, util.GetActor(c), consultation); err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, toConsultationResp(consultation))
}

type ListConsultationsReq struct {
	PageIndex *int                     `form:"page_index" binding:"required"`
	PageSize  *int                     `form:"page_size" binding:"required"`
	Status    model.ConsultationStatus `form:"status"`
	Category  string                   `form:"category"`
}

func (mgr *ConsultationMgr) listConsultations(c *gin.Context, req *ListConsultationsReq, scope func(*gorm.DB) *gorm.DB) {
	query := mgr.db.WithContext(c).Model(&model.Consultation{}).Scopes(scope)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Category != "" {
		query = query.Where("category = ?", req.Category)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	var consultations []model.Consultation
	err := query.
		Order("created_at DESC").
		Offset((*req.PageIndex - 1) * *req.PageSize).
		Limit(*req.PageSize).
		Find(&consultations).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	rows := lo.Map(consultations, func(con model.Consultation, _ int) ConsultationResp {
		return toConsultationResp(&con)
	})
	resputil.Success(c, payload.ListResp[ConsultationResp]{Rows: rows, Count: count})
}

// ListConsultations godoc
//
//	@Summary		List consultations
//	@Description	Submitters see their own; unit reviewers their unit's; central reviewers the escalated ones
//	@Tags			Consultation
//	@Produce		json
//	@Security		Bearer
//	@Param			query	query		ListConsultationsReq	true	"pagination and filters"
//	@Success		200		{object}	resputil.Response[payload.ListResp[ConsultationResp]]	"consultation page"
//	@Router			/v1/consultations [get]
func (mgr *ConsultationMgr) ListConsultations(c *gin.Context) {
	var req ListConsultationsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	switch actor.Role {
	case model.RoleUnitReviewer:
		mgr.listConsultations(c, &req, func(db *gorm.DB) *gorm.DB {
			return db.Where("unit_id = ? AND is_escalated = ?", actor.UnitID, false)
		})
	case model.RoleCentralReviewer:
		mgr.listConsultations(c, &req, func(db *gorm.DB) *gorm.DB {
			return db.Where("is_escalated = ?", true)
		})
	default:
		mgr.listConsultations(c, &req, func(db *gorm.DB) *gorm.DB {
			return db.Where("submitter_id = ?", actor.ID)
		})
	}
}

// ListAllConsultations godoc
//
//	@Summary		List all consultations
//	@Tags			Consultation
//	@Produce		json
//	@Security		Bearer
//	@Param			query	query		ListConsultationsReq	true	"pagination and filters"
//	@Success		200		{object}	resputil.Response[payload.ListResp[ConsultationResp]]	"consultation page"
//	@Router			/v1/admin/consultations [get]
func (mgr *ConsultationMgr) ListAllConsultations(c *gin.Context) {
	var req ListConsultationsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	mgr.listConsultations(c, &req, func(db *gorm.DB) *gorm.DB { return db })
}

// GetConsultation godoc
//
//	@Summary		Get a consultation with its thread
//	@Tags			Consultation
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int	true	"consultation id"
//	@Success		200	{object}	resputil.Response[ConsultationResp]	"the consultation"
//	@Failure		403	{object}	resputil.Response[any]	"no access"
//	@Failure		404	{object}	resputil.Response[any]	"not found"
//	@Router			/v1/consultations/{id} [get]
func (mgr *ConsultationMgr) GetConsultation(c *gin.Context) {
	var uri ConsultationIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	consultation := &model.Consultation{}
	err := mgr.db.WithContext(c).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(consultation, uri.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, 404, "Consultation not found", resputil.NotFound)
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}

	if !canViewConsultation(actor, consultation) {
		resputil.HTTPError(c, 403, "No access to this consultation", resputil.UserNotAllowed)
		return
	}
	resputil.Success(c, toConsultationResp(consultation))
}

func canViewConsultation(actor workflow.Actor, c *model.Consultation) bool {
	switch actor.Role {
	case model.RoleAdmin, model.RoleCentralReviewer:
		return true
	case model.RoleUnitReviewer:
		return actor.UnitID == c.UnitID || actor.ID == c.SubmitterID
	default:
		return actor.ID == c.SubmitterID
	}
}

// AppendMessage godoc
//
//	@Summary		Post a message on the thread
//	@Description	Submitters ask, the owning reviewer tier answers; the status follows the message
//	@Tags			Consultation
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"consultation id"
//	@Param			data	body		AppendMessageReq	true	"message"
//	@Success		200		{object}	resputil.Response[MessageResp]	"the appended message"
//	@Failure		409		{object}	resputil.Response[any]	"consultation closed"
//	@Router			/v1/consultations/{id}/messages [post]
func (mgr *ConsultationMgr) AppendMessage(c *gin.Context) {
	var uri ConsultationIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AppendMessageReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	msg, err := mgr.engine.AppendMessage(c, util.GetActor(c), uri.ID, req.Content, req.MessageType)
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}

	if req.MessageType == model.MessageAnswer && mgr.alerter != nil {
		if err := mgr.alerter.ConsultationReplyAlert(c, uri.ID); err != nil {
			klog.Errorf("consultation reply alert failed: %v", err)
		}
	}

	resputil.Success(c, MessageResp{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		SenderRole:  msg.SenderRole,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		FromCentral: msg.FromCentral,
		CreatedAt:   msg.CreatedAt,
	})
}

// Escalate godoc
//
//	@Summary		Escalate to the central tier
//	@Description	One-way hand-off; the unit tier loses all write access
//	@Tags			Consultation
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"consultation id"
//	@Param			data	body		ConsultationNoteReq	false	"optional note"
//	@Success		200		{object}	resputil.Response[ConsultationResp]	"the escalated consultation"
//	@Failure		409		{object}	resputil.Response[any]	"already escalated or closed"
//	@Router			/v1/consultations/{id}/escalate [post]
func (mgr *ConsultationMgr) Escalate(c *gin.Context) {
	mgr.consultationAction(c, func(actor workflow.Actor, id uint, note string) (*model.Consultation, error) {
		return mgr.engine.Escalate(c, actor, id, note)
	})
}

// Resolve godoc
//
//	@Summary		Resolve the consultation
//	@Description	Only the owning tier resolves: unit before escalation, central after
//	@Tags			Consultation
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"consultation id"
//	@Param			data	body		ConsultationNoteReq	false	"optional note"
//	@Success		200		{object}	resputil.Response[ConsultationResp]	"the resolved consultation"
//	@Failure		409		{object}	resputil.Response[any]	"closed"
//	@Router			/v1/consultations/{id}/resolve [post]
func (mgr *ConsultationMgr) Resolve(c *gin.Context) {
	mgr.consultationAction(c, func(actor workflow.Actor, id uint, note string) (*model.Consultation, error) {
		return mgr.engine.Resolve(c, actor, id, note)
	})
}

// Close godoc
//
//	@Summary		Administratively close the consultation
//	@Description	Admin only; the note documenting the closure is mandatory
//	@Tags			Consultation
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int					true	"consultation id"
//	@Param			data	body		ConsultationNoteReq	true	"closure note"
//	@Success		200		{object}	resputil.Response[ConsultationResp]	"the closed consultation"
//	@Failure		409		{object}	resputil.Response[any]	"already terminal"
//	@Router			/v1/admin/consultations/{id}/close [post]
func (mgr *ConsultationMgr) Close(c *gin.Context) {
	mgr.consultationAction(c, func(actor workflow.Actor, id uint, note string) (*model.Consultation, error) {
		return mgr.engine.Close(c, actor, id, note)
	})
}

func (mgr *ConsultationMgr) consultationAction(
	c *gin.Context,
	run func(actor workflow.Actor, id uint, note string) (*model.Consultation, error),
) {
	var uri ConsultationIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ConsultationNoteReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	consultation, err := run(util.GetActor(c), uri.ID, req.Note)
	if err != nil {
		resputil.WorkflowError(c, err)
		return
	}
	resputil.Success(c, toConsultationResp(consultation))
}
