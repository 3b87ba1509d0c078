package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/payload"
	"github.com/oa-lab/hrdesk/internal/resputil"
	"github.com/oa-lab/hrdesk/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewUserMgr)
}

type UserMgr struct {
	name string
	db   *gorm.DB
}

func NewUserMgr(conf *RegisterConfig) Manager {
	return &UserMgr{
		name: "users",
		db:   conf.DB,
	}
}

func (mgr *UserMgr) GetName() string { return mgr.name }

func (mgr *UserMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *UserMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/me", mgr.GetMe)
	g.PUT("/me", mgr.UpdateMe)
	g.PUT("/me/password", mgr.UpdatePassword)
}

func (mgr *UserMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListUsers)
	g.POST("", mgr.CreateUser)
	g.PUT("/:id", mgr.UpdateUser)
}

type (
	UserResp struct {
		ID         uint                `json:"id"`
		Name       string              `json:"name"`
		Nickname   string              `json:"nickname"`
		Role       model.Role          `json:"role"`
		Status     model.Status        `json:"status"`
		UnitID     uint                `json:"unitID"`
		Unit       string              `json:"unit,omitempty"`
		Attributes model.UserAttribute `json:"attributes"`
	}

	UpdateMeReq struct {
		Nickname   *string              `json:"nickname"`
		Attributes *model.UserAttribute `json:"attributes"`
	}

	UpdatePasswordReq struct {
		OldPassword string `json:"oldPassword" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required,min=8"`
	}

	CreateUserReq struct {
		Name     string       `json:"name" binding:"required"`
		Password string       `json:"password" binding:"required,min=8"`
		Role     model.Role   `json:"role" binding:"required"`
		UnitID   uint         `json:"unitID" binding:"required"`
		Nickname string       `json:"nickname"`
	}

	UpdateUserReq struct {
		Role   *model.Role   `json:"role"`
		Status *model.Status `json:"status"`
		UnitID *uint         `json:"unitID"`
	}

	UserIDReq struct {
		ID uint `uri:"id" binding:"required"`
	}
)

func toUserResp(u *model.User) UserResp {
	resp := UserResp{
		ID:         u.ID,
		Name:       u.Name,
		Role:       u.Role,
		Status:     u.Status,
		UnitID:     u.UnitID,
		Unit:       u.Unit.Name,
		Attributes: u.Attributes.Data(),
	}
	if u.Nickname != nil {
		resp.Nickname = *u.Nickname
	}
	return resp
}

// GetMe godoc
//
//	@Summary		Get my profile
//	@Tags			User
//	@Produce		json
//	@Security		Bearer
//	@Success		200	{object}	resputil.Response[UserResp]	"the profile"
//	@Router			/v1/users/me [get]
func (mgr *UserMgr) GetMe(c *gin.Context) {
	token := util.GetToken(c)

	user := &model.User{}
	if err := mgr.db.WithContext(c).Preload("Unit").First(user, token.UserID).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(user))
}

// UpdateMe godoc
//
//	@Summary		Update my profile
//	@Description	Nickname and contact attributes only; role and unit are admin-managed
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		UpdateMeReq	true	"fields to change"
//	@Success		200		{object}	resputil.Response[UserResp]	"the updated profile"
//	@Router			/v1/users/me [put]
func (mgr *UserMgr) UpdateMe(c *gin.Context) {
	var req UpdateMeReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)

	user := &model.User{}
	if err := mgr.db.WithContext(c).Preload("Unit").First(user, token.UserID).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	updates := map[string]any{}
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
		user.Nickname = req.Nickname
	}
	if req.Attributes != nil {
		attrs := datatypes.NewJSONType(*req.Attributes)
		updates["attributes"] = attrs
		user.Attributes = attrs
	}
	if len(updates) > 0 {
		if err := mgr.db.WithContext(c).Model(user).Updates(updates).Error; err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
	}
	resputil.Success(c, toUserResp(user))
}

// UpdatePassword godoc
//
//	@Summary		Change my password
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		UpdatePasswordReq	true	"old and new password"
//	@Success		200		{object}	resputil.Response[any]	"changed"
//	@Failure		401		{object}	resputil.Response[any]	"old password does not match"
//	@Router			/v1/users/me/password [put]
func (mgr *UserMgr) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)

	user := &model.User{}
	if err := mgr.db.WithContext(c).First(user, token.UserID).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if user.Password == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.OldPassword)) != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Old password does not match", resputil.InvalidCredentials)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if err := mgr.db.WithContext(c).Model(user).Update("password", string(hashed)).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, nil)
}

type ListUsersReq struct {
	PageIndex *int           `form:"page_index" binding:"required"`
	PageSize  *int           `form:"page_size" binding:"required"`
	Role      model.Role     `form:"role"`
	UnitID    uint           `form:"unit_id"`
	Order     *payload.Order `form:"order"`
}

// ListUsers godoc
//
//	@Summary		List users
//	@Tags			User
//	@Produce		json
//	@Security		Bearer
//	@Param			query	query		ListUsersReq	true	"pagination and filters"
//	@Success		200		{object}	resputil.Response[payload.ListResp[UserResp]]	"user page"
//	@Router			/v1/admin/users [get]
func (mgr *UserMgr) ListUsers(c *gin.Context) {
	var req ListUsersReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	query := mgr.db.WithContext(c).Model(&model.User{})
	if req.Role != 0 {
		query = query.Where("role = ?", req.Role)
	}
	if req.UnitID != 0 {
		query = query.Where("unit_id = ?", req.UnitID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	nameOrder := "name ASC"
	if req.Order != nil && *req.Order == payload.Desc {
		nameOrder = "name DESC"
	}

	var users []model.User
	err := query.
		Preload("Unit").
		Order(nameOrder).
		Offset((*req.PageIndex - 1) * *req.PageSize).
		Limit(*req.PageSize).
		Find(&users).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	rows := lo.Map(users, func(u model.User, _ int) UserResp { return toUserResp(&u) })
	resputil.Success(c, payload.ListResp[UserResp]{Rows: rows, Count: count})
}

// CreateUser godoc
//
//	@Summary		Provision a user
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			data	body		CreateUserReq	true	"account details"
//	@Success		200		{object}	resputil.Response[UserResp]	"the created user"
//	@Failure		400		{object}	resputil.Response[any]	"invalid request or duplicate name"
//	@Router			/v1/admin/users [post]
func (mgr *UserMgr) CreateUser(c *gin.Context) {
	var req CreateUserReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	password := string(hashed)

	user := &model.User{
		Name:     req.Name,
		Password: &password,
		Role:     req.Role,
		Status:   model.StatusActive,
		UnitID:   req.UnitID,
		Attributes: datatypes.NewJSONType(model.UserAttribute{
			Name:     req.Name,
			Nickname: req.Nickname,
		}),
	}
	if req.Nickname != "" {
		user.Nickname = &req.Nickname
	}
	if err := mgr.db.WithContext(c).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			resputil.BadRequestError(c, "Username already taken")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	resputil.Success(c, toUserResp(user))
}

// UpdateUser godoc
//
//	@Summary		Update a user's role, status or unit
//	@Tags			User
//	@Accept			json
//	@Produce		json
//	@Security		Bearer
//	@Param			id		path		int				true	"user id"
//	@Param			data	body		UpdateUserReq	true	"fields to change"
//	@Success		200		{object}	resputil.Response[UserResp]	"the updated user"
//	@Failure		404		{object}	resputil.Response[any]	"not found"
//	@Router			/v1/admin/users/{id} [put]
func (mgr *UserMgr) UpdateUser(c *gin.Context) {
	var uri UserIDReq
	if err := c.ShouldBindUri(&uri); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateUserReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	user := &model.User{}
	if err := mgr.db.WithContext(c).First(user, uri.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			resputil.HTTPError(c, 404, "User not found", resputil.NotFound)
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}

	updates := map[string]any{}
	if req.Role != nil {
		updates["role"] = *req.Role
		user.Role = *req.Role
	}
	if req.Status != nil {
		updates["status"] = *req.Status
		user.Status = *req.Status
	}
	if req.UnitID != nil {
		updates["unit_id"] = *req.UnitID
		user.UnitID = *req.UnitID
	}
	if len(updates) > 0 {
		if err := mgr.db.WithContext(c).Model(user).Updates(updates).Error; err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
	}
	resputil.Success(c, toUserResp(user))
}
