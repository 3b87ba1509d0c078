package main

import (
	"k8s.io/klog/v2"

	"github.com/oa-lab/hrdesk/cmd/hrdesk/helper"
	"github.com/oa-lab/hrdesk/pkg/cronjob"
)

// @title						HR Desk API
// @version						1.0.0
// @description					Request and consultation workflow service for the two-tier HR review hierarchy.
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description					Call /auth/login, then pass 'Bearer ${TOKEN}' to access protected endpoints
func main() {
	configInit := helper.NewConfigInitializer()
	backendConfig := configInit.GetBackendConfig()

	if err := configInit.LoadDebugEnvironment(); err != nil {
		klog.Fatalf("Failed to load env: %s", err)
	}

	registerConfig, err := configInit.InitializeRegisterConfig()
	if err != nil {
		klog.Fatalf("Failed to register config: %s\n", err)
	}

	reminder := cronjob.NewReminderManager(registerConfig.DB, registerConfig.Alerter)
	if err := reminder.Start(); err != nil {
		klog.Fatalf("Failed to start reminder cron: %s", err)
	}

	serverRunner := helper.NewServerRunner(backendConfig)
	serverRunner.StartServer(registerConfig, reminder)
}
