// 包 remote 对接可选的远端数据库（mysql / postgres / sqlite），
// 用于镜像新提交的请求并周期性地与本地列表对账。
package remote

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"astro-homepage/internal/model"

	// 与本地存储共用纯 Go 的 "sqlite" 驱动
	_ "modernc.org/sqlite"
)

// ErrUnknownDriver 表示不支持的数据库驱动。
var ErrUnknownDriver = errors.New("unknown remote driver")

// Store 为远端请求表的访问对象。
type Store struct {
	db *gorm.DB
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Open 连接远端数据库并自动迁移请求表。
func Open(driver, dsn string) (*Store, error) {
	d, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&model.RemoteRecord{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	return &Store{db: db}, nil
}

// Insert 写入一条记录；CreatedAt 为零值时由 gorm 填充当前时间。
func (s *Store) Insert(ctx context.Context, rec model.RemoteRecord) error {
	rec.ID = 0
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// ListAll 按创建时间倒序返回全部记录。
func (s *Store) ListAll(ctx context.Context) ([]model.RemoteRecord, error) {
	var recs []model.RemoteRecord
	if err := s.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return recs, nil
}

// Ping 检查连接是否可用。
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
