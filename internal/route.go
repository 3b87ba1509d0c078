package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	docs "github.com/oa-lab/hrdesk/docs"
	"github.com/oa-lab/hrdesk/internal/handler"
	"github.com/oa-lab/hrdesk/internal/middleware"
)

type Backend struct {
	R *gin.Engine
}

const apiPrefix = "/v1"

// Register builds the gin engine with every handler manager mounted under
// its public, protected and admin groups.
func Register(registerConfig *handler.RegisterConfig) *Backend {
	s := new(Backend)
	s.R = gin.Default()

	// Health check for the deployment probe
	s.R.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	s.registerService(registerConfig)

	docs.SwaggerInfo.BasePath = "/"
	s.R.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return s
}

func (b *Backend) registerService(registerConfig *handler.RegisterConfig) {
	// Enable CORS for http://localhost:XXXX in debug mode
	if gin.Mode() == gin.DebugMode {
		fe := os.Getenv("HRDESK_FE_PORT")
		if fe != "" {
			url := "http://localhost:" + fe
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{url}
			corsConf.AllowHeaders = append(corsConf.AllowHeaders, "Authorization")
			b.R.Use(cors.New(corsConf))
		}
	}

	managers := registerManagers(registerConfig)

	publicRouter := b.R.Group("")

	protectedRouter := b.R.Group(apiPrefix)
	protectedRouter.Use(middleware.AuthProtected())

	adminRouter := b.R.Group(apiPrefix + "/admin")
	adminRouter.Use(middleware.AuthProtected(), middleware.AuthAdmin())

	for _, mgr := range managers {
		name := mgr.GetName()
		mgr.RegisterPublic(publicRouter.Group(name))
		mgr.RegisterProtected(protectedRouter.Group(name))
		mgr.RegisterAdmin(adminRouter.Group(name))
	}
}

// ServeHTTP makes Backend usable as the http.Server handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.R.ServeHTTP(w, r)
}
