package helper

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/oa-lab/hrdesk/dao/query"
	"github.com/oa-lab/hrdesk/internal/handler"
	"github.com/oa-lab/hrdesk/pkg/alert"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
	"github.com/oa-lab/hrdesk/pkg/config"
	"github.com/oa-lab/hrdesk/pkg/workflow"
)

// ConfigInitializer wires the configuration and the shared dependencies.
type ConfigInitializer struct {
	backendConfig *config.Config
}

func NewConfigInitializer() *ConfigInitializer {
	return &ConfigInitializer{
		backendConfig: config.GetConfig(),
	}
}

func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// LoadDebugEnvironment loads .debug.env and overrides the listen address
// in debug mode.
func (ci *ConfigInitializer) LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}

	err := godotenv.Load(".debug.env")
	if err != nil {
		return err
	}

	be := os.Getenv("HRDESK_BE_PORT")
	if be == "" {
		panic("HRDESK_BE_PORT is not set")
	}
	ci.backendConfig.ServerAddr = ":" + be

	return nil
}

// InitializeRegisterConfig connects the database, runs the migrations and
// builds the dependencies the handler managers are constructed with.
func (ci *ConfigInitializer) InitializeRegisterConfig() (*handler.RegisterConfig, error) {
	db := query.GetDB()
	if err := query.Migrate(db); err != nil {
		return nil, err
	}
	if err := query.SeedChecklists(db); err != nil {
		return nil, err
	}

	feed := changefeed.New()
	return &handler.RegisterConfig{
		DB:      db,
		Engine:  workflow.NewEngine(db, feed),
		Feed:    feed,
		Alerter: alert.GetAlertMgr(),
	}, nil
}
