package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/config"
	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/catalog"
	"github.com/jacl-coder/RhodesGacha-Server/internal/pkg/clock"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
)

// ServiceType 服务类型
type ServiceType string

const (
	// ServiceGame 游戏服务
	ServiceGame ServiceType = "game"
	// ServiceArena 竞技场服务
	ServiceArena ServiceType = "arena"
)

// ServiceInstance 服务实例
type ServiceInstance struct {
	ID        string      `json:"id"`
	Type      ServiceType `json:"type"`
	URL       *url.URL    `json:"-"`
	Address   string      `json:"address"`
	Health    bool        `json:"health"`
	LastCheck time.Time   `json:"last_check"`

	proxy *httputil.ReverseProxy
}

// Deps 网关依赖
type Deps struct {
	Users   UserStore
	Tokens  *auth.TokenService
	Saves   state.Persistence
	Catalog *catalog.Catalog
	Clock   clock.Clock
}

// Gateway API网关
type Gateway struct {
	config   *config.Config
	deps     Deps
	services map[ServiceType][]*ServiceInstance
	mutex    sync.RWMutex
	next     uint64

	rateLimiter *RateLimiter
	cache       *CacheMiddleware
	httpClient  *http.Client
	httpServer  *http.Server
}

// NewGateway 创建新的网关
func NewGateway(cfg *config.Config, deps Deps) *Gateway {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	return &Gateway{
		config:      cfg,
		deps:        deps,
		services:    make(map[ServiceType][]*ServiceInstance),
		rateLimiter: NewRateLimiter(600),
		cache:       NewCacheMiddleware(),
		httpClient:  &http.Client{Timeout: 2 * time.Second},
	}
}

// Run 启动网关直到ctx结束
func (g *Gateway) Run(ctx context.Context) error {
	g.registerInternalServices()

	g.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", g.config.Server.GatewayPort),
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go g.maintenance(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API网关启动，监听端口: %d", g.config.Server.GatewayPort)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP服务器错误: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP服务器关闭错误: %w", err)
	}
	log.Println("API网关已停止")
	return nil
}

// RegisterService 注册服务
func (g *Gateway) RegisterService(serviceType ServiceType, serviceURL string) error {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil || parsedURL.Host == "" {
		return fmt.Errorf("无效的服务URL: %s", serviceURL)
	}

	instance := &ServiceInstance{
		ID:        fmt.Sprintf("%s-%d", serviceType, time.Now().UnixNano()),
		Type:      serviceType,
		URL:       parsedURL,
		Address:   parsedURL.String(),
		Health:    true,
		LastCheck: time.Now(),
		proxy:     httputil.NewSingleHostReverseProxy(parsedURL),
	}
	instance.proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("转发到 %s 失败: %v", instance.ID, err)
		protocol.SendError(w, "服务不可用", http.StatusBadGateway)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.services[serviceType] = append(g.services[serviceType], instance)
	log.Printf("注册服务: %s, URL: %s", serviceType, serviceURL)
	return nil
}

// Handler 网关路由及中间件
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	NewAuthHandler(g.deps.Users, g.deps.Tokens, g.config.Auth.BcryptCost).RegisterHandlers(mux)
	NewSaveHandler(g.deps.Saves, g.deps.Clock, g.deps.Tokens).RegisterHandlers(mux)
	NewStatsHandler(g.deps.Saves, g.deps.Clock, g.deps.Tokens).RegisterHandlers(mux)
	NewCatalogHandler(g.deps.Catalog).RegisterHandlers(mux)

	// 转发到后端服务
	mux.Handle("/arena/", requireAuth(g.deps.Tokens, g.forward(ServiceArena)))
	mux.Handle("/game/", g.forward(ServiceGame))
	mux.Handle("/ws", g.forward(ServiceGame))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/services", g.handleServiceDiscovery)

	return g.applyMiddleware(mux)
}

// applyMiddleware 按顺序应用中间件（从外到内）
func (g *Gateway) applyMiddleware(handler http.Handler) http.Handler {
	handler = g.cache.Middleware(handler)
	handler = g.rateLimiter.Middleware(handler)
	handler = NewCORSMiddleware().Middleware(handler)
	handler = SecurityMiddleware(handler)
	handler = NewLoggingMiddleware(g.config.Server.AccessLogMinStatus(), g.config.Server.Verbose())(handler)
	return handler
}

// forward 转发请求到指定服务
func (g *Gateway) forward(serviceType ServiceType) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		instance := g.getServiceInstance(serviceType)
		if instance == nil {
			protocol.SendError(w, "服务不可用", http.StatusServiceUnavailable)
			return
		}

		r.Header.Set("X-Forwarded-Host", r.Host)
		r.Host = instance.URL.Host
		instance.proxy.ServeHTTP(w, r)
	})
}

// handleServiceDiscovery 列出已注册的服务实例
func (g *Gateway) handleServiceDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		protocol.SendError(w, "仅支持GET方法", http.StatusMethodNotAllowed)
		return
	}

	g.mutex.RLock()
	out := make(map[ServiceType][]ServiceInstance, len(g.services))
	for t, instances := range g.services {
		for _, inst := range instances {
			out[t] = append(out[t], *inst)
		}
	}
	g.mutex.RUnlock()

	protocol.SendSuccess(w, "查询成功", out)
}

// getServiceInstance 在健康实例中轮询选择
func (g *Gateway) getServiceInstance(serviceType ServiceType) *ServiceInstance {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var healthy []*ServiceInstance
	for _, instance := range g.services[serviceType] {
		if instance.Health {
			healthy = append(healthy, instance)
		}
	}
	if len(healthy) == 0 {
		return nil
	}

	n := atomic.AddUint64(&g.next, 1)
	return healthy[n%uint64(len(healthy))]
}

// registerInternalServices 注册本机的游戏和竞技场服务
func (g *Gateway) registerInternalServices() {
	gameURL := fmt.Sprintf("http://localhost:%d", g.config.Server.GamePort)
	if err := g.RegisterService(ServiceGame, gameURL); err != nil {
		log.Printf("注册服务失败: %v", err)
	}
	if err := g.RegisterService(ServiceArena, g.config.Server.GetArenaURL()); err != nil {
		log.Printf("注册服务失败: %v", err)
	}
}

// maintenance 定期健康检查并清理限流和缓存
func (g *Gateway) maintenance(ctx context.Context) {
	healthTicker := time.NewTicker(10 * time.Second)
	cleanupTicker := time.NewTicker(g.rateLimiter.CleanupInterval)
	defer healthTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-healthTicker.C:
			g.checkServicesHealth(ctx)
		case <-cleanupTicker.C:
			g.rateLimiter.Cleanup()
			g.cache.cache.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// checkServicesHealth 检查服务健康状态
func (g *Gateway) checkServicesHealth(ctx context.Context) {
	g.mutex.RLock()
	var instances []*ServiceInstance
	for _, list := range g.services {
		instances = append(instances, list...)
	}
	g.mutex.RUnlock()

	for _, instance := range instances {
		healthURL := *instance.URL
		healthURL.Path = strings.TrimRight(healthURL.Path, "/") + "/health"
		healthy := g.pingInstance(ctx, healthURL.String())

		g.mutex.Lock()
		instance.LastCheck = time.Now()
		if healthy != instance.Health {
			if healthy {
				log.Printf("服务恢复健康: %s, ID: %s", instance.Type, instance.ID)
			} else {
				log.Printf("服务不健康: %s, ID: %s", instance.Type, instance.ID)
			}
			instance.Health = healthy
		}
		g.mutex.Unlock()
	}
}

func (g *Gateway) pingInstance(ctx context.Context, target string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
