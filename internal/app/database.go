package app

import (
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/talkincode/stockroom/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	db, err := openDatabase(cfg, workdir)
	if err != nil {
		zap.S().Fatalf("database connection failed: %v", err)
	}
	return db
}

func openDatabase(cfg config.DBConfig, workdir string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if cfg.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "mysql":
		dialector = mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User, cfg.Passwd, cfg.Host, cfg.Port, cfg.Name))
	case "sqlite":
		file := cfg.Name
		if !filepath.IsAbs(file) {
			file = path.Join(workdir, "data", file+".db")
		}
		dialector = sqlite.Open(file + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	default:
		dialector = postgres.Open(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name))
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
	}
	if cfg.IdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}
