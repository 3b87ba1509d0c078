package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	ldap "github.com/go-ldap/ldap/v3"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/resputil"
	"github.com/oa-lab/hrdesk/internal/util"
	"github.com/oa-lab/hrdesk/pkg/config"
	"github.com/oa-lab/hrdesk/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name     string
	db       *gorm.DB
	tokenMgr *util.TokenManager
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:     "auth",
		db:       conf.DB,
		tokenMgr: util.GetTokenMgr(),
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/login", mgr.Login)
	g.POST("/refresh", mgr.RefreshToken)
}

func (mgr *AuthMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	LoginReq struct {
		Username   string `json:"username" binding:"required"`
		Password   string `json:"password" binding:"required"`
		AuthMethod string `json:"auth" binding:"required"` // [normal, ldap]
	}

	LoginResp struct {
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
		Context      UserContext `json:"context"`
	}

	UserContext struct {
		Unit string     `json:"unit"` // Current unit name
		Role model.Role `json:"role"`
	}
)

const (
	AuthMethodNormal = "normal"
	AuthMethodLDAP   = "ldap"
)

// Login godoc
//
//	@Summary		Sign in with username and password
//	@Description	Verifies the credentials and returns JWT tokens with the user context
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			data	body		LoginReq	false	"credentials"
//	@Success		200		{object}	resputil.Response[LoginResp]	"tokens and user context"
//	@Failure		400		{object}	resputil.Response[any]	"invalid request"
//	@Failure		401		{object}	resputil.Response[any]	"wrong username or password"
//	@Failure		500		{object}	resputil.Response[any]	"database error"
//	@Router			/auth/login [post]
func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBind(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	l := logutils.Log.WithFields(logutils.Fields{
		"username": req.Username,
		"auth":     req.AuthMethod,
	})

	switch req.AuthMethod {
	case AuthMethodLDAP:
		if !config.GetConfig().LDAP.Enable {
			resputil.HTTPError(c, http.StatusBadRequest, "LDAP login is disabled", resputil.InvalidRequest)
			return
		}
		if err := mgr.ldapAuth(req.Username, req.Password); err != nil {
			l.Error("invalid credentials: ", err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	case AuthMethodNormal:
		if err := mgr.normalAuth(c, req.Username, req.Password); err != nil {
			l.Error("invalid credentials: ", err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	default:
		l.Error("invalid auth method: ", req.AuthMethod)
		resputil.HTTPError(c, http.StatusBadRequest, "Invalid auth method", resputil.InvalidRequest)
		return
	}

	user := &model.User{}
	err := mgr.db.WithContext(c).Preload("Unit").Where("name = ?", req.Username).First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Directory accounts are provisioned by an admin before first
			// login; no auto-registration.
			resputil.HTTPError(c, http.StatusUnauthorized, "User not registered", resputil.InvalidCredentials)
		} else {
			l.Error(err)
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if user.Status != model.StatusActive {
		l.Error("user is not active")
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.NotSpecified)
		return
	}

	jwtMessage := util.JWTMessage{
		UserID:   user.ID,
		Username: user.Name,
		UnitID:   user.UnitID,
		UnitName: user.Unit.Name,
		Role:     user.Role,
	}
	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&jwtMessage)
	if err != nil {
		resputil.HTTPError(c, http.StatusInternalServerError, err.Error(), resputil.NotSpecified)
		return
	}
	loginResponse := LoginResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Context: UserContext{
			Unit: user.Unit.Name,
			Role: user.Role,
		},
	}
	resputil.Success(c, loginResponse)
}

func (mgr *AuthMgr) normalAuth(c *gin.Context, username, password string) error {
	user := &model.User{}
	if err := mgr.db.WithContext(c).Where("name = ?", username).First(user).Error; err != nil {
		return fmt.Errorf("user not found")
	}

	p := user.Password
	if p == nil {
		return fmt.Errorf("user does not have a password")
	}

	if bcrypt.CompareHashAndPassword([]byte(*p), []byte(password)) != nil {
		return fmt.Errorf("wrong username or password")
	}
	return nil
}

func (mgr *AuthMgr) ldapAuth(username, password string) error {
	ldapConfig := config.GetConfig().LDAP
	l, err := ldap.DialURL(ldapConfig.Address)
	if err != nil {
		return err
	}
	err = l.Bind(ldapConfig.UserName, ldapConfig.Password)
	if err != nil {
		return err
	}

	searchRequest := ldap.NewSearchRequest(
		ldapConfig.SearchDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(sAMAccountName=%s)", username),
		[]string{"dn"},
		nil,
	)

	searchResult, err := l.Search(searchRequest)
	if err != nil {
		return err
	}

	if len(searchResult.Entries) != 1 {
		return fmt.Errorf("user not found or too many entries returned")
	}

	// Bind as the user to verify the password.
	userDN := searchResult.Entries[0].DN
	return l.Bind(userDN, password)
}

type (
	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"` // without the `Bearer ` prefix
	}

	RefreshResp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
)

// RefreshToken godoc
//
//	@Summary		Refresh the token pair
//	@Description	Exchanges a valid refresh token for a new token pair
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			data	body		RefreshReq	false	"refresh token"
//	@Success		200		{object}	resputil.Response[RefreshResp]	"new token pair"
//	@Failure		400		{object}	resputil.Response[any]	"invalid request"
//	@Failure		401		{object}	resputil.Response[any]	"invalid refresh token"
//	@Router			/auth/refresh [post]
func (mgr *AuthMgr) RefreshToken(c *gin.Context) {
	var request RefreshReq

	if err := c.ShouldBind(&request); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	claims, err := mgr.tokenMgr.CheckToken(request.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid refresh token", resputil.TokenInvalid)
		return
	}

	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&claims)
	if err != nil {
		resputil.HTTPError(c, http.StatusInternalServerError, err.Error(), resputil.NotSpecified)
		return
	}

	resputil.Success(c, RefreshResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}
