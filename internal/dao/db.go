package dao

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/systematicfunnels/smartX-v0.1/internal/common"
	"github.com/systematicfunnels/smartX-v0.1/internal/model"
)

// Open connects to MySQL using the environment config and migrates the
// schema. The handle is constructed once in main and injected into the DAOs.
func Open(cfg common.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := gorm.Open(mysql.Open(dsn))
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.MasterJob{},
		&model.TaskJob{},
		&model.Meeting{},
		&model.TranscriptSegment{},
		&model.Repository{},
	)
}
