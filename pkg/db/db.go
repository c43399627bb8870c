package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	// DB 全局数据库连接实例
	DB *sql.DB
	// Driver 当前数据库驱动
	Driver string
)

// Open 打开数据库连接并测试连通性
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if driver == config.DriverSQLite {
		// sqlite只允许单写
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("数据库Ping失败: %w", err)
	}

	return conn, nil
}

// InitDatabase 根据全局配置初始化数据库连接
func InitDatabase(ctx context.Context) error {
	dbConfig := config.GlobalConfig.Database

	conn, err := Open(ctx, dbConfig.Driver, dbConfig.GetDSN())
	if err != nil {
		return err
	}

	DB = conn
	Driver = dbConfig.Driver
	log.Printf("成功连接到数据库 (%s)", Driver)
	return nil
}

// Close 关闭数据库连接
func Close() {
	if DB != nil {
		DB.Close()
		log.Println("数据库连接已关闭")
	}
}

// Rebind 将?占位符转换为目标驱动的占位符
func Rebind(driver, query string) string {
	if driver != config.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
