package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// goose的方言和文件系统是全局状态
var gooseMu sync.Mutex

// migrationTarget 返回驱动对应的goose方言和迁移目录
func migrationTarget(driver string) (string, string, error) {
	switch driver {
	case config.DriverPostgres:
		return "postgres", "migrations/postgres", nil
	case config.DriverSQLite:
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", fmt.Errorf("不支持的数据库驱动: %s", driver)
	}
}

// Migrate 执行所有未应用的迁移
func Migrate(ctx context.Context, conn *sql.DB, driver string) error {
	dialect, dir, err := migrationTarget(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("设置迁移方言失败: %w", err)
	}
	if err := goose.UpContext(ctx, conn, dir); err != nil {
		return fmt.Errorf("执行数据库迁移失败: %w", err)
	}
	return nil
}

// Reset 回滚所有迁移
func Reset(ctx context.Context, conn *sql.DB, driver string) error {
	dialect, dir, err := migrationTarget(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("设置迁移方言失败: %w", err)
	}
	if err := goose.ResetContext(ctx, conn, dir); err != nil {
		return fmt.Errorf("回滚数据库迁移失败: %w", err)
	}
	return nil
}

// MigrationVersion 当前迁移版本
func MigrationVersion(ctx context.Context, conn *sql.DB, driver string) (int64, error) {
	dialect, _, err := migrationTarget(driver)
	if err != nil {
		return 0, err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("设置迁移方言失败: %w", err)
	}
	return goose.GetDBVersionContext(ctx, conn)
}
