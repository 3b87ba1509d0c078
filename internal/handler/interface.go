package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/pkg/alert"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
	"github.com/oa-lab/hrdesk/pkg/workflow"
)

type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies the handler managers are
// constructed with.
type RegisterConfig struct {
	DB      *gorm.DB
	Engine  *workflow.Engine
	Feed    *changefeed.Feed
	Alerter alert.AlertInterface
}

type ManagerRegisterFunc func(*RegisterConfig) Manager

// Registers collects the manager constructors; each handler file appends
// its own in init().
var Registers []ManagerRegisterFunc
