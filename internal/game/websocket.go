// websocket.go

package game

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
	"github.com/jacl-coder/RhodesGacha-Server/internal/protocol"
	"github.com/jacl-coder/RhodesGacha-Server/internal/state"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second

	// 读取超时时间
	pongWait = 60 * time.Second

	// 发送 ping 的间隔时间
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PlayerConnection 玩家连接
type PlayerConnection struct {
	ID       string
	Identity auth.Identity
	Token    string
	SaveKey  string
	Store    *state.Store

	Send   chan []byte
	mu     sync.Mutex
	closed bool
}

// Guest 是否为游客连接
func (c *PlayerConnection) Guest() bool {
	return c.Token == ""
}

// send 非阻塞发送，通道已满时断开连接
func (c *PlayerConnection) send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		log.Printf("连接 %s 发送队列已满，断开连接", c.ID)
		c.closed = true
		close(c.Send)
	}
}

func (c *PlayerConnection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// authenticate 校验令牌，未携带令牌时按配置使用游客存档
func (s *GameServer) authenticate(r *http.Request) (*PlayerConnection, error) {
	token := auth.BearerToken(r)
	conn := &PlayerConnection{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
	}

	if token == "" {
		if s.config.Game.GuestKey == "" {
			return nil, auth.ErrInvalidToken
		}
		conn.SaveKey = s.config.Game.GuestKey
		return conn, nil
	}

	id, err := s.tokens.Verify(r.Context(), token)
	if err != nil {
		return nil, err
	}
	conn.Identity = id
	conn.Token = token
	conn.SaveKey = id.SaveKey()
	return conn, nil
}

// handleWSConnection 处理WebSocket连接
func (s *GameServer) handleWSConnection(w http.ResponseWriter, r *http.Request) {
	player, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "未授权", http.StatusUnauthorized)
		return
	}

	store, err := s.attach(r.Context(), player)
	if err != nil {
		log.Printf("加载存档 %s 失败: %v", player.SaveKey, err)
		http.Error(w, "加载存档失败", http.StatusInternalServerError)
		return
	}
	player.Store = store

	// 升级HTTP连接为WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		s.detach(player)
		return
	}

	log.Printf("玩家 %s 已连接 (%s)", player.SaveKey, player.ID)

	s.sendMessage(player, protocol.MsgState, "", state.NewView(store.State(), s.env.Clock.Now()))

	// 启动读写协程
	go s.writePump(conn, player)
	go s.readPump(conn, player)
}

// readPump 从WebSocket读取数据
func (s *GameServer) readPump(conn *websocket.Conn, player *PlayerConnection) {
	defer func() {
		s.closeConnection(player)
		conn.Close()
	}()

	// 设置读取参数
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket错误: %v", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		// 处理接收到的消息
		s.handleMessage(context.Background(), player, message)
	}
}

// writePump 向WebSocket写入数据，每条消息单独一帧
func (s *GameServer) writePump(conn *websocket.Conn, player *PlayerConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-player.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通道已关闭
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConnection 关闭玩家连接
func (s *GameServer) closeConnection(player *PlayerConnection) {
	s.detach(player)
	player.close()
	log.Printf("玩家 %s 已断开连接 (%s)", player.SaveKey, player.ID)
}

// sendMessage 向玩家发送消息
func (s *GameServer) sendMessage(player *PlayerConnection, t protocol.MessageType, id string, payload interface{}) {
	data, err := protocol.NewMessage(t, id, payload)
	if err != nil {
		log.Printf("序列化消息失败: %v", err)
		return
	}
	player.send(data)
}

// sendError 向玩家发送错误
func (s *GameServer) sendError(player *PlayerConnection, id string, err error) {
	s.sendMessage(player, protocol.MsgError, id, protocol.ErrorPayload{Message: err.Error()})
}
