package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/resputil"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewChecklistMgr)
}

// ChecklistMgr serves the category -> required-documents templates.
// Reading is open to every signed-in user (the submission form needs it);
// editing is admin only.
type ChecklistMgr struct {
	name string
	db   *gorm.DB
}

func NewChecklistMgr(conf *RegisterConfig) Manager {
	return &ChecklistMgr{
		name: "checklists",
		db:   conf.DB,
	}
}

func (mgr *ChecklistMgr) GetName() string { return mgr.name }

func (mgr *ChecklistMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ChecklistMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListChecklists)
}

func (mgr *ChecklistMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.PUT("", mgr.PutChecklist)
	g.DELETE("/:id", mgr.DeleteChecklist)
}

type (
	ListChecklistsReq struct {
		Type model.RequestType `form:"type"`
	}

	ChecklistResp struct {
		ID          uint                  `json:"id"`
		Type        model.RequestType     `json:"type"`
		SubCategory string                `json:"subCategory"`
		Items       []model.ChecklistItem `json:"items"`
	}

	PutChecklistReq struct {
		Type        model.RequestType     `json:"type" binding:"required"`
		SubCategory string                `json:"subCategory"`
		Items       []model.ChecklistItem `json:"items" binding:"required"`
	}

	ChecklistIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}
)

// ListChecklists godoc
//
//	@Summary		List checklist templates
//	@Tags			Checklist
//	@Produce		json
//	@Security		Bearer
//	@Param			type	query		string	false	"filter by request type"
//	@Success		200		{object}	resputil.Response[[]ChecklistResp]	"templates"
//	@Router			/v1/checklists [get]
func (mgr *ChecklistMgr) ListChecklists(c *gin.Context) {
	var req ListChecklistsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	query := mgr.db.WithContext(c).Model(&model.ChecklistTemplate{})
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}

	var templates []model.ChecklistTemplate
	if err := query.Order("type ASC, sub_category ASC").Find(&templates).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resputil.Success(c, lo.Map(templates, func(t model.ChecklistTemplate, _ int) ChecklistResp {
		return ChecklistResp{
			ID:          t.ID,
			Type:        t.Type,
			SubCategory: t.SubCategory,
			Items:       t.Items,
		}
	}))
}

// PutChecklist godoc
//
//	@Summary		Create or replace a checklist template
//	@Description	Upserts by type and sub-category; existing requests keep their slots
//	@Tags			Checklist
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		PutChecklistReq	true	"template"
//	@Success		200		{object}	resputil.Response[ChecklistResp]	"the stored template"
//	@Router			/v1/admin/checklists [put]
func (mgr *ChecklistMgr) PutChecklist(c *gin.Context) {
	var req PutChecklistReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	tpl := &model.ChecklistTemplate{}
	err := mgr.db.WithContext(c).
		Where("type = ? AND sub_category = ?", req.Type, req.SubCategory).
		First(tpl).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		tpl = &model.ChecklistTemplate{
			Type:        req.Type,
			SubCategory: req.SubCategory,
			Items:       datatypes.NewJSONSlice(req.Items),
		}
		err = mgr.db.WithContext(c).Create(tpl).Error
	case err == nil:
		err = mgr.db.WithContext(c).Model(tpl).
			Update("items", datatypes.NewJSONSlice(req.Items)).Error
		tpl.Items = datatypes.NewJSONSlice(req.Items)
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resputil.Success(c, ChecklistResp{
		ID:          tpl.ID,
		Type:        tpl.Type,
		SubCategory: tpl.SubCategory,
		Items:       tpl.Items,
	})
}

// DeleteChecklist godoc
//
//	@Summary		Delete a checklist template
//	@Tags			Checklist
//	@Produce		json
//	@Security		Bearer
//	@Param			id	path		int	true	"template id"
//	@Success		200	{object}	resputil.Response[any]	"deleted"
//	@Failure		404	{object}	resputil.Response[any]	"not found"
//	@Router			/v1/admin/checklists/{id} [delete]
func (mgr *ChecklistMgr) DeleteChecklist(c *gin.Context) {
	var uri ChecklistIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	res := mgr.db.WithContext(c).Delete(&model.ChecklistTemplate{}, uri.ID)
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.HTTPError(c, 404, "Template not found", resputil.NotFound)
		return
	}
	resputil.Success(c, nil)
}
