package game

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/arena"
	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/models"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
)

// ArenaAPI 游戏服务依赖的竞技场接口
type ArenaAPI interface {
	Teams(ctx context.Context, token string) ([]models.ArenaTeam, error)
	Opponents(ctx context.Context, token string) ([]models.Opponent, error)
	Opponent(ctx context.Context, token string, opponentID int64) (*models.Opponent, error)
	Ladder(ctx context.Context, token string) ([]models.LadderEntry, error)
	SaveTeam(ctx context.Context, token string, team arena.SaveTeamRequest) error
	ReportResult(ctx context.Context, token string, result models.MatchResult) (models.EloUpdate, error)
}

// GameServer 游戏服务器，每个存档键对应一个Store，同一玩家的多个连接共享
type GameServer struct {
	config  *config.Config
	env     state.Env
	persist state.Persistence
	tokens  *auth.TokenService
	arena   ArenaAPI

	hubs       map[string]*playerHub
	hubsMutex  sync.Mutex
	httpServer *http.Server
}

// playerHub 同一存档的Store及其连接
type playerHub struct {
	store  *state.Store
	conns  map[string]*PlayerConnection
	cancel context.CancelFunc
}

// NewGameServer 创建新的游戏服务器
func NewGameServer(cfg *config.Config, env state.Env, persist state.Persistence, tokens *auth.TokenService, arenaAPI ArenaAPI) *GameServer {
	return &GameServer{
		config:  cfg,
		env:     env,
		persist: persist,
		tokens:  tokens,
		arena:   arenaAPI,
		hubs:    make(map[string]*playerHub),
	}
}

// Handler HTTP路由
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket 连接端点
	mux.HandleFunc("/ws", s.handleWSConnection)
	mux.Handle("/game/state", s.tokens.Middleware(func(w http.ResponseWriter, err error) {
		protocol.SendError(w, "未授权", http.StatusUnauthorized)
	})(http.HandlerFunc(s.handleState)))

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// Run 启动游戏服务器直到ctx结束
func (s *GameServer) Run(ctx context.Context) error {
	port := s.config.Server.GamePort
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("游戏服务器启动，监听端口: %d", port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP服务器错误: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return s.Stop()
}

// Stop 停止游戏服务器
func (s *GameServer) Stop() error {
	s.hubsMutex.Lock()
	for key, hub := range s.hubs {
		hub.cancel()
		for _, conn := range hub.conns {
			conn.close()
		}
		delete(s.hubs, key)
	}
	s.hubsMutex.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("HTTP服务器关闭错误: %w", err)
		}
	}

	log.Println("游戏服务器已停止")
	return nil
}

// attach 将连接加入存档对应的hub，首个连接时加载存档并启动被动收入
func (s *GameServer) attach(ctx context.Context, conn *PlayerConnection) (*state.Store, error) {
	s.hubsMutex.Lock()
	defer s.hubsMutex.Unlock()

	if hub, ok := s.hubs[conn.SaveKey]; ok {
		hub.conns[conn.ID] = conn
		return hub.store, nil
	}

	store, err := state.Open(ctx, conn.SaveKey, s.persist, s.env)
	if err != nil {
		return nil, err
	}

	key := conn.SaveKey
	store.OnChange(func(st *models.PlayerState) {
		s.pushState(key, st)
	})

	incomeCtx, cancel := context.WithCancel(context.Background())
	go store.RunPassiveIncome(incomeCtx, s.tickInterval())

	s.hubs[key] = &playerHub{
		store:  store,
		conns:  map[string]*PlayerConnection{conn.ID: conn},
		cancel: cancel,
	}
	log.Printf("加载存档: %s", key)
	return store, nil
}

// detach 移除连接，最后一个连接离开时停止被动收入
func (s *GameServer) detach(conn *PlayerConnection) {
	s.hubsMutex.Lock()
	defer s.hubsMutex.Unlock()

	hub, ok := s.hubs[conn.SaveKey]
	if !ok {
		return
	}
	delete(hub.conns, conn.ID)
	if len(hub.conns) == 0 {
		hub.cancel()
		delete(s.hubs, conn.SaveKey)
		log.Printf("卸载存档: %s", conn.SaveKey)
	}
}

func (s *GameServer) tickInterval() time.Duration {
	if s.config.Game.TickInterval > 0 {
		return s.config.Game.TickInterval
	}
	return time.Second
}

// pushState 向存档的所有连接推送最新状态
func (s *GameServer) pushState(key string, st *models.PlayerState) {
	data, err := protocol.NewMessage(protocol.MsgState, "", state.NewView(st, s.env.Clock.Now()))
	if err != nil {
		log.Printf("序列化状态失败: %v", err)
		return
	}

	s.hubsMutex.Lock()
	hub, ok := s.hubs[key]
	var conns []*PlayerConnection
	if ok {
		conns = make([]*PlayerConnection, 0, len(hub.conns))
		for _, c := range hub.conns {
			conns = append(conns, c)
		}
	}
	s.hubsMutex.Unlock()

	for _, c := range conns {
		c.send(data)
	}
}

// OnlineCount 当前加载的存档数
func (s *GameServer) OnlineCount() int {
	s.hubsMutex.Lock()
	defer s.hubsMutex.Unlock()
	return len(s.hubs)
}

// handleState 只读查询存档
func (s *GameServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}
	id, _ := auth.FromContext(r.Context())

	var st *models.PlayerState
	s.hubsMutex.Lock()
	if hub, ok := s.hubs[id.SaveKey()]; ok {
		st = hub.store.State()
	}
	s.hubsMutex.Unlock()

	if st == nil {
		store, err := state.Open(r.Context(), id.SaveKey(), s.persist, s.env)
		if err != nil {
			log.Printf("读取存档失败: %v", err)
			protocol.SendError(w, "读取存档失败", http.StatusInternalServerError)
			return
		}
		st = store.State()
	}
	protocol.SendSuccess(w, "查询成功", state.NewView(st, s.env.Clock.Now()))
}
