package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/clock"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/idgen"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/rng"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
	"github.com/jacl-coder/RhodesGacha-Server/internal/storage"
	"github.com/jacl-coder/RhodesGacha-Server/pkg/db"
)

// redisSaveTTL Redis存档过期时间
const redisSaveTTL = 30 * 24 * time.Hour

// app 各服务共享的依赖
type app struct {
	cfg     *config.Config
	users   *storage.UserRepo
	teams   *storage.TeamRepo
	ladder  *storage.LadderCache
	saves   state.Persistence
	tokens  *auth.TokenService
	catalog *catalog.Catalog
	clock   clock.Clock
}

// openApp 连接数据库和Redis，执行迁移并构建存储层
func openApp(ctx context.Context) (*app, error) {
	cfg := &config.GlobalConfig

	if err := db.InitDatabase(ctx); err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, db.DB, db.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	if err := db.InitRedis(ctx); err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		users:   storage.NewUserRepo(db.DB, db.Driver, cfg.Arena.DefaultElo),
		teams:   storage.NewTeamRepo(db.DB, db.Driver),
		catalog: catalog.Default(),
		clock:   clock.New(),
	}
	a.ladder = storage.NewLadderCache(db.RedisClient, a.users)

	switch cfg.Game.SaveBackend {
	case "redis":
		a.saves = storage.NewRedisSaveStore(db.RedisClient, redisSaveTTL)
	case "memory":
		a.saves = storage.NewMemorySaveStore()
	default:
		a.saves = storage.NewSQLSaveStore(db.DB, db.Driver)
	}
	log.Printf("存档后端: %s", cfg.Game.SaveBackend)

	var revoker auth.Revoker
	if db.RedisClient != nil {
		revoker = storage.NewRedisRevocationList(db.RedisClient)
	} else {
		revoker = storage.NewMemoryRevocationList()
	}
	a.tokens = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, revoker)

	return a, nil
}

// close 关闭连接
func (a *app) close() {
	db.CloseRedis()
	db.Close()
}

// source 配置了种子时使用固定随机源
func (a *app) source() rng.Source {
	return rng.NewSeeded(a.cfg.Game.Seed)
}

// stateEnv 游戏状态依赖
func (a *app) stateEnv() state.Env {
	return state.Env{
		Catalog: a.catalog,
		Rand:    a.source(),
		Clock:   a.clock,
		IDs:     idgen.NewUUID(""),
	}
}
