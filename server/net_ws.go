package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConn 负责发送（写）数据到 WebSocket 客户端的轻量包装
type ClientConn struct {
	ws        *websocket.Conn
	send      chan []byte // 创建后不再改写，writePump 无锁读取
	closeOnce sync.Once
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
	}
}

// Close 关闭发送队列，可重复调用；调用方需保证之后不再 Enqueue
func (c *ClientConn) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// writePump 独立协程，负责从 send 队列写出到 WS（二进制帧）
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return
		}
	}
}

// readPump 每个二进制帧即一个协议包，注入入站队列
func (t *NetTransport) readPump(c *ClientConn, ep Endpoint) {
	defer t.dropPeer(ep, c)
	c.ws.SetReadLimit(maxDatagram)
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		mt, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		if mt != websocket.BinaryMessage {
			continue
		}
		t.offer(Datagram{Data: payload, From: ep})
	}
}

// dropPeer 连接断开后不再经 WS 发送；会话本身保留（核心无断线处理）
func (t *NetTransport) dropPeer(ep Endpoint, c *ClientConn) {
	t.mu.Lock()
	if cur, ok := t.peers[ep]; ok && cur == c {
		delete(t.peers, ep)
		c.Close()
	}
	t.mu.Unlock()
	_ = c.ws.Close()
	Log.Debugw("ws peer closed", "endpoint", ep.String())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 网关：连接的远端地址即 Endpoint，与 UDP 客户端同等对待
func (t *NetTransport) HandleWS(w http.ResponseWriter, r *http.Request) {
	host, portStr, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		http.Error(w, "bad remote address", http.StatusBadRequest)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		http.Error(w, "bad remote port", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("ws upgrade failed", "err", err)
		return
	}

	ep := Endpoint{Address: host, Port: port}
	client := NewClientConn(ws)
	t.mu.Lock()
	if old, ok := t.peers[ep]; ok {
		old.Close()
	}
	t.peers[ep] = client
	t.mu.Unlock()
	Log.Debugw("ws peer connected", "endpoint", ep.String())

	go client.writePump()
	go t.readPump(client, ep)
}
