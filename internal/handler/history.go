package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/resputil"
	"github.com/oa-lab/hrdesk/internal/util"
	"github.com/oa-lab/hrdesk/pkg/workflow"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewHistoryMgr)
}

// HistoryMgr exposes the append-only action ledger kept for every
// request and consultation.
type HistoryMgr struct {
	name   string
	db     *gorm.DB
	engine *workflow.Engine
}

func NewHistoryMgr(conf *RegisterConfig) Manager {
	return &HistoryMgr{
		name:   "history",
		db:     conf.DB,
		engine: conf.Engine,
	}
}

func (mgr *HistoryMgr) GetName() string { return mgr.name }

func (mgr *HistoryMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *HistoryMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/:type/:id", mgr.GetHistory)
}

func (mgr *HistoryMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	HistoryUriReq struct {
		Type model.HistoryItemType `uri:"type" binding:"required"`
		ID   uint                  `uri:"id" binding:"required"`
	}

	HistoryEntryResp struct {
		Action    string     `json:"action"`
		ActorID   uint       `json:"actorID"`
		ActorRole model.Role `json:"actorRole"`
		Note      string     `json:"note,omitempty"`
		CreatedAt time.Time  `json:"createdAt"`
	}
)

// GetHistory godoc
//
//	@Summary		Get the action ledger of an item
//	@Description	Newest first; visibility follows the underlying item's access rules
//	@Tags			History
//	@Produce		json
//	@Security		Bearer
//	@Param			type	path		string	true	"item type"	Enums(service_request, consultation)
//	@Param			id		path		int		true	"item id"
//	@Success		200		{object}	resputil.Response[[]HistoryEntryResp]	"ledger entries"
//	@Failure		403		{object}	resputil.Response[any]	"no access"
//	@Failure		404		{object}	resputil.Response[any]	"item not found"
//	@Router			/v1/history/{type}/{id} [get]
func (mgr *HistoryMgr) GetHistory(c *gin.Context) {
	var uri HistoryUriReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	actor := util.GetActor(c)

	if ok, err := mgr.checkAccess(c, actor, uri.Type, uri.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, 404, "Item not found", resputil.NotFound)
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	} else if !ok {
		resputil.HTTPError(c, 403, "No access to this item", resputil.UserNotAllowed)
		return
	}

	entries, err := mgr.engine.History(c, uri.Type, uri.ID)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resputil.Success(c, lo.Map(entries, func(e model.HistoryEntry, _ int) HistoryEntryResp {
		return HistoryEntryResp{
			Action:    e.Action,
			ActorID:   e.ActorID,
			ActorRole: e.ActorRole,
			Note:      e.Note,
			CreatedAt: e.CreatedAt,
		}
	}))
}

func (mgr *HistoryMgr) checkAccess(c *gin.Context, actor workflow.Actor, itemType model.HistoryItemType, id uint) (bool, error) {
	switch itemType {
	case model.HistoryItemRequest:
		req := &model.ServiceRequest{}
		if err := mgr.db.WithContext(c).First(req, id).Error; err != nil {
			return false, err
		}
		return canViewRequest(actor, req), nil
	case model.HistoryItemConsultation:
		con := &model.Consultation{}
		if err := mgr.db.WithContext(c).First(con, id).Error; err != nil {
			return false, err
		}
		return canViewConsultation(actor, con), nil
	default:
		return false, gorm.ErrRecordNotFound
	}
}
