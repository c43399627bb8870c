package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/RhodesGacha-Server/config"
)

var (
	// RedisClient 全局Redis客户端实例，未启用Redis时为nil
	RedisClient *redis.Client
)

// NewRedisClient 创建Redis客户端并测试连接
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	return client, nil
}

// InitRedis 初始化Redis连接
func InitRedis(ctx context.Context) error {
	redisConfig := config.GlobalConfig.Redis
	if !redisConfig.Enabled {
		log.Println("Redis未启用，跳过初始化")
		return nil
	}

	client, err := NewRedisClient(ctx, redisConfig)
	if err != nil {
		return err
	}

	RedisClient = client
	log.Println("成功连接到Redis服务器")
	return nil
}

// CloseRedis 关闭Redis连接
func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			log.Printf("关闭Redis连接时发生错误: %v", err)
			return
		}
		log.Println("Redis连接已关闭")
	}
}
