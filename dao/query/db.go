package query

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/pkg/config"
	"github.com/oa-lab/hrdesk/pkg/logutils"
)

var (
	once     sync.Once
	instance *gorm.DB
)

// GetDB returns the singleton instance of the database connection.
func GetDB() *gorm.DB {
	once.Do(func() {
		dbConfig := config.GetConfig()

		host := dbConfig.Postgres.Host
		port := dbConfig.Postgres.Port
		dbName := dbConfig.Postgres.DBName
		user := dbConfig.Postgres.User
		password := dbConfig.Postgres.Password
		sslMode := dbConfig.Postgres.SSLMode
		timeZone := dbConfig.Postgres.TimeZone

		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbName, port, sslMode, timeZone)
		var err error
		instance, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			panic(err)
		}
		maxIdleConns := 5
		maxOpenConns := 10
		sqlDB, err := instance.DB()
		if err != nil {
			panic(err)
		}
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Hour)

		logutils.Log.Info("Postgres init success!")
	})
	return instance
}

// Migrate creates or updates the schema for all entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Unit{},
		&model.User{},
		&model.ServiceRequest{},
		&model.DocumentSlot{},
		&model.Consultation{},
		&model.ConsultationMessage{},
		&model.HistoryEntry{},
		&model.ChecklistTemplate{},
		&model.VaultDocument{},
	)
}

// SeedChecklists inserts the static category -> required-documents table
// when it is empty. A fresh deployment needs a usable baseline; admins
// maintain the table afterwards.
func SeedChecklists(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.ChecklistTemplate{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	templates := []model.ChecklistTemplate{
		{
			Type:        model.RequestTypePromotion,
			SubCategory: "regular",
			Items: []model.ChecklistItem{
				{Name: "Performance appraisal", Note: "Most recent annual appraisal", VaultKey: "appraisal"},
				{Name: "Service record", Note: "Issued by the personnel office", VaultKey: "service_record"},
				{Name: "Training certificate", Note: "Completed leadership training", VaultKey: "training_cert"},
			},
		},
		{
			Type: model.RequestTypeTransfer,
			Items: []model.ChecklistItem{
				{Name: "Service record", VaultKey: "service_record"},
				{Name: "Receiving unit consent", Note: "Signed by the receiving unit head"},
			},
		},
		{
			Type: model.RequestTypeRetirement,
			Items: []model.ChecklistItem{
				{Name: "Service record", VaultKey: "service_record"},
				{Name: "Identity document", VaultKey: "identity"},
			},
		},
		{
			// Leave requests need no evidence by default.
			Type:  model.RequestTypeLeave,
			Items: []model.ChecklistItem{},
		},
	}
	return db.Create(&templates).Error
}
