package storage

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
)

// 排行榜Redis键名
const (
	LadderKey      = "arena:ladder"
	LadderNamesKey = "arena:ladder:names"

	// LadderCacheTTL 排行榜缓存时间
	LadderCacheTTL = 10 * time.Minute
)

// LadderCache 以Redis有序集合缓存积分榜，未命中时回源数据库
type LadderCache struct {
	client *redis.Client
	users  *UserRepo
}

// NewLadderCache 创建排行榜缓存，client为nil时直接查询数据库
func NewLadderCache(client *redis.Client, users *UserRepo) *LadderCache {
	return &LadderCache{client: client, users: users}
}

// UpdateElo 更新玩家积分
func (lc *LadderCache) UpdateElo(ctx context.Context, userID int64, username string, elo int) error {
	if lc.client == nil {
		return nil
	}
	member := strconv.FormatInt(userID, 10)
	pipe := lc.client.TxPipeline()
	pipe.ZAdd(ctx, LadderKey, &redis.Z{Score: float64(elo), Member: member})
	pipe.HSet(ctx, LadderNamesKey, member, username)
	pipe.Expire(ctx, LadderKey, LadderCacheTTL)
	pipe.Expire(ctx, LadderNamesKey, LadderCacheTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Top 获取前limit名
func (lc *LadderCache) Top(ctx context.Context, limit int) ([]models.LadderEntry, error) {
	if limit <= 0 {
		return []models.LadderEntry{}, nil
	}
	if lc.client == nil {
		return lc.users.Top(ctx, limit)
	}

	entries, err := lc.fromCache(ctx, limit)
	if err != nil {
		log.Printf("读取排行榜缓存失败，回源数据库: %v", err)
		return lc.users.Top(ctx, limit)
	}
	if len(entries) > 0 {
		return entries, nil
	}

	if err := lc.Refresh(ctx, limit); err != nil {
		log.Printf("刷新排行榜缓存失败: %v", err)
	}
	return lc.users.Top(ctx, limit)
}

func (lc *LadderCache) fromCache(ctx context.Context, limit int) ([]models.LadderEntry, error) {
	members, err := lc.client.ZRevRangeWithScores(ctx, LadderKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.Member.(string))
	}
	names, err := lc.client.HMGet(ctx, LadderNamesKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.LadderEntry, 0, len(members))
	for i, m := range members {
		id, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			continue
		}
		name, _ := names[i].(string)
		entries = append(entries, models.LadderEntry{
			Rank:     len(entries) + 1,
			UserID:   id,
			Username: name,
			Elo:      int(m.Score),
		})
	}
	return entries, nil
}

// Refresh 从数据库重新加载排行榜
func (lc *LadderCache) Refresh(ctx context.Context, limit int) error {
	if lc.client == nil {
		return nil
	}
	entries, err := lc.users.Top(ctx, limit)
	if err != nil {
		return err
	}

	pipe := lc.client.TxPipeline()
	pipe.Del(ctx, LadderKey, LadderNamesKey)
	for _, e := range entries {
		member := strconv.FormatInt(e.UserID, 10)
		pipe.ZAdd(ctx, LadderKey, &redis.Z{Score: float64(e.Elo), Member: member})
		pipe.HSet(ctx, LadderNamesKey, member, e.Username)
	}
	pipe.Expire(ctx, LadderKey, LadderCacheTTL)
	pipe.Expire(ctx, LadderNamesKey, LadderCacheTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Rank 获取玩家名次，不在榜上返回-1
func (lc *LadderCache) Rank(ctx context.Context, userID int64) (int, error) {
	if lc.client == nil {
		return -1, nil
	}
	rank, err := lc.client.ZRevRank(ctx, LadderKey, strconv.FormatInt(userID, 10)).Result()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return int(rank) + 1, nil
}
