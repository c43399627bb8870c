// Package storage 账号、存档、竞技场队伍与排行榜的持久化
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/pkg/db"
	"github.com/lib/pq"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrUsernameTaken 用户名已被占用
	ErrUsernameTaken = errors.New("用户名已存在")
)

// sqlStore 带驱动信息的数据库句柄
type sqlStore struct {
	db     *sql.DB
	driver string
}

func (s sqlStore) q(query string) string {
	return db.Rebind(s.driver, query)
}

// isUniqueViolation 判断唯一约束冲突
func isUniqueViolation(driver string, err error) bool {
	if err == nil {
		return false
	}
	if driver == config.DriverPostgres {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTime 兼容不同驱动返回的时间列
func parseTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("无法解析时间: %q", v)
	default:
		return time.Time{}, fmt.Errorf("不支持的时间类型: %T", raw)
	}
}
