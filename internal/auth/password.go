package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinUsernameLen 用户名最短长度
	MinUsernameLen = 3
	// MaxUsernameLen 用户名最长长度
	MaxUsernameLen = 50
	// MinPasswordLen 密码最短长度
	MinPasswordLen = 6
	// MaxPasswordLen bcrypt只处理前72字节
	MaxPasswordLen = 72
)

// ErrInvalidCredentials 用户名或密码不符合要求
var ErrInvalidCredentials = errors.New("用户名或密码格式错误")

// ValidateCredentials 校验注册信息
func ValidateCredentials(username, password string) error {
	if n := utf8.RuneCountInString(username); n < MinUsernameLen || n > MaxUsernameLen {
		return fmt.Errorf("%w: 用户名长度须在%d到%d之间", ErrInvalidCredentials, MinUsernameLen, MaxUsernameLen)
	}
	if n := len(password); n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("%w: 密码长度须在%d到%d之间", ErrInvalidCredentials, MinPasswordLen, MaxPasswordLen)
	}
	return nil
}

// HashPassword 生成密码哈希
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("生成密码哈希失败: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 校验密码
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
