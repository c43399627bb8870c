package gateway

import (
	"crypto/md5"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// CacheEntry 缓存条目
type CacheEntry struct {
	Data      []byte
	Headers   map[string]string
	ExpiresAt time.Time
	ETag      string
}

// MemoryCache 内存缓存
type MemoryCache struct {
	entries map[string]*CacheEntry
	mutex   sync.RWMutex
	now     func() time.Time

	// 配置
	DefaultTTL time.Duration
	MaxEntries int
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*CacheEntry),
		now:        time.Now,
		DefaultTTL: 5 * time.Minute,
		MaxEntries: 1000,
	}
}

// CacheMiddleware 缓存中间件，只缓存图鉴这类只读数据
type CacheMiddleware struct {
	cache *MemoryCache

	// 可缓存的路径前缀
	CacheablePaths []string
	// 缓存时间配置
	CacheTTL map[string]time.Duration
}

// NewCacheMiddleware 创建缓存中间件
func NewCacheMiddleware() *CacheMiddleware {
	return &CacheMiddleware{
		cache:          NewMemoryCache(),
		CacheablePaths: []string{"/catalog/"},
		CacheTTL: map[string]time.Duration{
			"/catalog/": 10 * time.Minute,
		},
	}
}

// Middleware 缓存中间件
func (cm *CacheMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !cm.shouldCache(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cacheKey := cm.generateCacheKey(r)
		if entry := cm.cache.Get(cacheKey); entry != nil {
			if r.Header.Get("If-None-Match") == entry.ETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			cm.writeCachedResponse(w, entry)
			return
		}

		recorder := &cacheResponseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			headers:        make(map[string]string),
		}
		// 先缓冲响应，确定ETag后再写出
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && len(recorder.body) > 0 {
			ttl := cm.getTTL(r.URL.Path)
			etag := cm.generateETag(recorder.body)
			cm.cache.Set(cacheKey, &CacheEntry{
				Data:      recorder.body,
				Headers:   recorder.headers,
				ExpiresAt: cm.cache.now().Add(ttl),
				ETag:      etag,
			})
			w.Header().Set("ETag", etag)
			w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(ttl.Seconds())))
			w.Header().Set("X-Cache", "MISS")
		}
		w.WriteHeader(recorder.statusCode)
		w.Write(recorder.body)
	})
}

// shouldCache 检查是否应该缓存
func (cm *CacheMiddleware) shouldCache(path string) bool {
	for _, prefix := range cm.CacheablePaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// generateCacheKey 生成缓存键
func (cm *CacheMiddleware) generateCacheKey(r *http.Request) string {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	return key
}

// getTTL 获取缓存时间
func (cm *CacheMiddleware) getTTL(path string) time.Duration {
	for prefix, ttl := range cm.CacheTTL {
		if strings.HasPrefix(path, prefix) {
			return ttl
		}
	}
	return cm.cache.DefaultTTL
}

// generateETag 生成ETag
func (cm *CacheMiddleware) generateETag(data []byte) string {
	return fmt.Sprintf(`"%x"`, md5.Sum(data))
}

// writeCachedResponse 写入缓存的响应
func (cm *CacheMiddleware) writeCachedResponse(w http.ResponseWriter, entry *CacheEntry) {
	for key, value := range entry.Headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("ETag", entry.ETag)
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(http.StatusOK)
	w.Write(entry.Data)
}

// Get 获取未过期的缓存条目
func (mc *MemoryCache) Get(key string) *CacheEntry {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	entry, exists := mc.entries[key]
	if !exists || mc.now().After(entry.ExpiresAt) {
		return nil
	}
	return entry
}

// Set 设置缓存条目
func (mc *MemoryCache) Set(key string, entry *CacheEntry) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if len(mc.entries) >= mc.MaxEntries {
		mc.evictExpired()
		// 如果还是太多，删除最早过期的条目
		if len(mc.entries) >= mc.MaxEntries {
			mc.evictOldest()
		}
	}
	mc.entries[key] = entry
}

// Len 条目数
func (mc *MemoryCache) Len() int {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return len(mc.entries)
}

// Cleanup 清理过期条目
func (mc *MemoryCache) Cleanup() {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.evictExpired()
}

func (mc *MemoryCache) evictExpired() {
	now := mc.now()
	for key, entry := range mc.entries {
		if now.After(entry.ExpiresAt) {
			delete(mc.entries, key)
		}
	}
}

func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range mc.entries {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.ExpiresAt
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

// cacheResponseRecorder 缓冲下游响应
type cacheResponseRecorder struct {
	http.ResponseWriter
	statusCode int
	headers    map[string]string
	body       []byte
}

// WriteHeader 记录状态码，由中间件统一写出
func (crr *cacheResponseRecorder) WriteHeader(code int) {
	crr.statusCode = code
}

// Write 记录响应体
func (crr *cacheResponseRecorder) Write(data []byte) (int, error) {
	crr.body = append(crr.body, data...)
	if contentType := crr.ResponseWriter.Header().Get("Content-Type"); contentType != "" {
		crr.headers["Content-Type"] = contentType
	}
	return len(data), nil
}
