package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/resputil"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewUnitMgr)
}

type UnitMgr struct {
	name string
	db   *gorm.DB
}

func NewUnitMgr(conf *RegisterConfig) Manager {
	return &UnitMgr{
		name: "units",
		db:   conf.DB,
	}
}

func (mgr *UnitMgr) GetName() string { return mgr.name }

func (mgr *UnitMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *UnitMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListUnits)
}

func (mgr *UnitMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.POST("", mgr.CreateUnit)
	g.PUT("/:id", mgr.UpdateUnit)
}

type (
	UnitResp struct {
		ID     uint   `json:"id"`
		Name   string `json:"name"`
		Code   string `json:"code"`
		Active bool   `json:"active"`
	}

	CreateUnitReq struct {
		Name string `json:"name" binding:"required"`
		Code string `json:"code" binding:"required"`
	}

	UpdateUnitReq struct {
		Name   *string `json:"name"`
		Active *bool   `json:"active"`
	}

	UnitIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}
)

func toUnitResp(u *model.Unit) UnitResp {
	return UnitResp{ID: u.ID, Name: u.Name, Code: u.Code, Active: u.Active}
}

// ListUnits godoc
//
//	@Summary		List organizational units
//	@Tags			Unit
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]UnitResp]	"all units"
//	@Router			/v1/units [get]
func (mgr *UnitMgr) ListUnits(c *gin.Context) {
	var units []model.Unit
	if err := mgr.db.WithContext(c).Order("code ASC").Find(&units).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(units, func(u model.Unit, _ int) UnitResp { return toUnitResp(&u) }))
}

// CreateUnit godoc
//
//	@Summary		Create a unit
//	@Tags			Unit
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		CreateUnitReq	true	"name and code"
//	@Success		200		{object}	resputil.Response[UnitResp]	"the created unit"
//	@Failure		400		{object}	resputil.Response[any]	"duplicate name or code"
//	@Router			/v1/admin/units [post]
func (mgr *UnitMgr) CreateUnit(c *gin.Context) {
	var req CreateUnitReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	unit := &model.Unit{Name: req.Name, Code: req.Code, Active: true}
	if err := mgr.db.WithContext(c).Create(unit).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			resputil.BadRequestError(c, "Unit name or code already taken")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	resputil.Success(c, toUnitResp(unit))
}

// UpdateUnit godoc
//
//	@Summary		Rename or deactivate a unit
//	@Description	Deactivated units accept no new submissions; open items continue to completion
//	@Tags			Unit
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int				true	"unit id"
//	@Param			data	body		UpdateUnitReq	true	"fields to change"
//	@Success		200		{object}	resputil.Response[UnitResp]	"the updated unit"
//	@Failure		404		{object}	resputil.Response[any]	"not found"
//	@Router			/v1/admin/units/{id} [put]
func (mgr *UnitMgr) UpdateUnit(c *gin.Context) {
	var uri UnitIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateUnitReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	unit := &model.Unit{}
	if err := mgr.db.WithContext(c).First(unit, uri.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, 404, "Unit not found", resputil.NotFound)
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
		unit.Name = *req.Name
	}
	if req.Active != nil {
		updates["active"] = *req.Active
		unit.Active = *req.Active
	}
	if len(updates) > 0 {
		if err := mgr.db.WithContext(c).Model(unit).Updates(updates).Error; err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
	}
	resputil.Success(c, toUnitResp(unit))
}
