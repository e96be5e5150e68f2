package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pandora-hackathon/jejak-air/internal/config"
	"github.com/pandora-hackathon/jejak-air/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数,未配置时使用默认值
	var poolConfig *PoolConfig
	if cfg.MaxIdleConns > 0 || cfg.MaxOpenConns > 0 {
		poolConfig = &PoolConfig{
			MaxIdleConns:    cfg.MaxIdleConns,
			MaxOpenConns:    cfg.MaxOpenConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		}
		if poolConfig.MaxIdleConns == 0 {
			poolConfig.MaxIdleConns = 10
		}
		if poolConfig.MaxOpenConns == 0 {
			poolConfig.MaxOpenConns = 100
		}
		if poolConfig.ConnMaxLifetime == 0 {
			poolConfig.ConnMaxLifetime = 3600
		}
		if poolConfig.ConnMaxIdleTime == 0 {
			poolConfig.ConnMaxIdleTime = 600
		}
	} else {
		poolConfig = GetPoolConfig()
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接,指数退避
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,audit_logs 表需要手动创建
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.City{},
			&model.User{},
			&model.Laboratory{},
			&model.Commodity{},
			&model.Farm{},
			&model.HarvestBatch{},
			&model.Activity{},
			&model.LabTest{},
			&model.AuditLog{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(255) NOT NULL UNIQUE,
			province VARCHAR(255) NOT NULL,
			code VARCHAR(8),
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create cities table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			email VARCHAR(255),
			full_name VARCHAR(255),
			role VARCHAR(32) NOT NULL,
			laboratory_id INTEGER,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS laboratories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(255) NOT NULL UNIQUE,
			city_id INTEGER,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create laboratories table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS commodities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			default_safety_threshold REAL,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create commodities table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS farms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(255) NOT NULL,
			city_id INTEGER,
			owner_id VARCHAR(64),
			location VARCHAR(255) NOT NULL,
			risk_score INTEGER,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create farms table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS harvest_batches (
			code VARCHAR(50) PRIMARY KEY,
			farm_id INTEGER NOT NULL,
			commodity_id INTEGER NOT NULL,
			planting_date DATE,
			harvest_date DATE NOT NULL,
			volume_kg REAL NOT NULL,
			destination VARCHAR(255) NOT NULL,
			quality_status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
			risk_score INTEGER,
			is_shipped BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create harvest_batches table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS activities (
			id VARCHAR(64) PRIMARY KEY,
			batch_code VARCHAR(50) NOT NULL,
			date DATE NOT NULL,
			kind VARCHAR(32) NOT NULL,
			location VARCHAR(255) NOT NULL,
			actor VARCHAR(255) NOT NULL,
			note TEXT,
			created_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create activities table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS lab_tests (
			id VARCHAR(64) PRIMARY KEY,
			batch_code VARCHAR(50) NOT NULL UNIQUE,
			reading REAL NOT NULL,
			safety_threshold REAL,
			conclusion VARCHAR(16) NOT NULL,
			test_date DATE NOT NULL,
			qc_user_id VARCHAR(64) NOT NULL,
			laboratory_id INTEGER,
			created_at DATETIME
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create lab_tests table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_farms_owner_id ON farms(owner_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_farms_owner_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_farms_city_id ON farms(city_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_farms_city_id: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_farm_harvest ON harvest_batches(farm_id, harvest_date)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_farm_harvest: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_quality_status ON harvest_batches(quality_status)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_quality_status: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_batches_created_at ON harvest_batches(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_batches_created_at: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_activities_batch_code ON activities(batch_code)").Error; err != nil {
		return fmt.Errorf("failed to create idx_activities_batch_code: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_activities_batch_date ON activities(batch_code, date, created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_activities_batch_date: %w", err)
	}

	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_lab_tests_batch_code ON lab_tests(batch_code)").Error; err != nil {
		return fmt.Errorf("failed to create idx_lab_tests_batch_code: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_lab_tests_qc_user_id ON lab_tests(qc_user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_lab_tests_qc_user_id: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}

// Reconnect 重新连接数据库
func Reconnect(cfg config.DatabaseConfig, oldDB *gorm.DB) (*gorm.DB, error) {
	if oldDB != nil {
		if sqlDB, err := oldDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return Connect(cfg)
}
