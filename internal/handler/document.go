package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/resputil"
	"github.com/oa-lab/hrdesk/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewVaultMgr)
}

// VaultMgr serves the personal document vault: evidence uploaded once and
// reused to prefill checklist slots on later submissions.
type VaultMgr struct {
	name string
	db   *gorm.DB
}

func NewVaultMgr(conf *RegisterConfig) Manager {
	return &VaultMgr{
		name: "vault",
		db:   conf.DB,
	}
}

func (mgr *VaultMgr) GetName() string { return mgr.name }

func (mgr *VaultMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *VaultMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListVault)
	g.PUT("", mgr.PutVaultDocument)
	g.DELETE("/:key", mgr.DeleteVaultDocument)
}

func (mgr *VaultMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	VaultDocumentReq struct {
		Key  string `json:"key" binding:"required"`
		Name string `json:"name" binding:"required"`
		URL  string `json:"url" binding:"required"`
	}

	VaultKeyReq struct {
		Key string `uri:"key" binding:"required"`
	}

	VaultDocumentResp struct {
		Key  string `json:"key"`
		Name string `json:"name"`
		URL  string `json:"url"`
	}
)

// ListVault godoc
//
//	@Summary		List my vault documents
//	@Tags			Vault
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[[]VaultDocumentResp]	"vault contents"
//	@Router			/v1/vault [get]
func (mgr *VaultMgr) ListVault(c *gin.Context) {
	token := util.GetToken(c)

	var docs []model.VaultDocument
	if err := mgr.db.WithContext(c).
		Where("user_id = ?", token.UserID).
		Order("key ASC").
		Find(&docs).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resputil.Success(c, lo.Map(docs, func(d model.VaultDocument, _ int) VaultDocumentResp {
		return VaultDocumentResp{Key: d.Key, Name: d.Name, URL: d.URL}
	}))
}

// PutVaultDocument godoc
//
//	@Summary		Store or replace a vault document
//	@Description	Upserts by key; existing checklist slots keep their snapshot
//	@Tags			Vault
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		VaultDocumentReq	true	"document"
//	@Success		200		{object}	resputil.Response[VaultDocumentResp]	"the stored document"
//	@Failure		400		{object}	resputil.Response[any]	"invalid request"
//	@Router			/v1/vault [put]
func (mgr *VaultMgr) PutVaultDocument(c *gin.Context) {
	var req VaultDocumentReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)

	doc := model.VaultDocument{
		UserID: token.UserID,
		Key:    req.Key,
		Name:   req.Name,
		URL:    req.URL,
	}
	err := mgr.db.WithContext(c).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "url", "updated_at"}),
		}).
		Create(&doc).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, VaultDocumentResp{Key: doc.Key, Name: doc.Name, URL: doc.URL})
}

// DeleteVaultDocument godoc
//
//	@Summary		Delete a vault document
//	@Tags			Vault
//	@Produce		json
//	@Security		Bearer
//	@Param			key	path		string	true	"document key"
//	@Success		200	{object}	resputil.Response[any]	"deleted"
//	@Failure		404	{object}	resputil.Response[any]	"not found"
//	@Router			/v1/vault/{key} [delete]
func (mgr *VaultMgr) DeleteVaultDocument(c *gin.Context) {
	var uri VaultKeyReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)

	doc := &model.VaultDocument{}
	err := mgr.db.WithContext(c).
		Where("user_id = ? AND key = ?", token.UserID, uri.Key).
		First(doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, 404, "Document not found", resputil.NotFound)
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if err := mgr.db.WithContext(c).Delete(doc).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, nil)
}
