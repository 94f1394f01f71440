package database

import (
	"fmt"
	"learner_dashboard/internal/config"
	"learner_dashboard/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dashboardModels 本服务拥有的表；LMS 条目表由外部系统维护，不参与迁移
var dashboardModels = []interface{}{
	&model.User{},
	&model.Event{},
	&model.UserMeta{},
	&model.Course{},
	&model.CourseItem{},
	&model.Membership{},
	&model.ChatMessage{},
	&model.Certificate{},
}

// Migrate 创建或更新本服务拥有的表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(dashboardModels...)
}

func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)
}

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Server.Mode == "debug" {
		level = logger.Info
	}

	db, err := gorm.Open(mysql.Open(DSN(&cfg.Database)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	// release 模式下只在显式要求时迁移
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database migration completed")
	}

	return db, nil
}
