package server

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownSession 引用了不存在的会话（Tick 内部逻辑错误）
var ErrUnknownSession = errors.New("unknown session")

// Endpoint 客户端的传输层来源（地址 + 端口），是区分客户端的唯一依据
type Endpoint struct {
	Address string
	Port    int
}

func (e Endpoint) String() string {
	return e.Address + ":" + strconv.Itoa(e.Port)
}

// SessionID 服务端分配，从 1 开始单调递增，不回收
type SessionID uint32

// Session 一个已加入的客户端
type Session struct {
	ID       SessionID
	Endpoint Endpoint
	AvatarID ObjectID // 0 表示尚未绑定化身
	JoinedAt uint64   // 加入时的服务端 Tick
}

// SessionRegistry 按 Endpoint 管理会话；仅由 Tick 线程修改，无需加锁
type SessionRegistry struct {
	byEndpoint map[Endpoint]*Session
	byID       map[SessionID]*Session
	order      []*Session
	nextID     SessionID
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byEndpoint: make(map[Endpoint]*Session),
		byID:       make(map[SessionID]*Session),
		nextID:     1,
	}
}

// FindOrCreate 同一 Endpoint 重复调用返回同一会话，isNew=false
func (r *SessionRegistry) FindOrCreate(ep Endpoint, now uint64) (Session, bool) {
	if s, ok := r.byEndpoint[ep]; ok {
		return *s, false
	}
	s := &Session{ID: r.nextID, Endpoint: ep, JoinedAt: now}
	r.nextID++
	r.byEndpoint[ep] = s
	r.byID[s.ID] = s
	r.order = append(r.order, s)
	return *s, true
}

func (r *SessionRegistry) ByEndpoint(ep Endpoint) (Session, bool) {
	s, ok := r.byEndpoint[ep]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (r *SessionRegistry) BySessionID(id SessionID) (Session, bool) {
	s, ok := r.byID[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// AttachAvatar 记录会话与化身的归属关系
func (r *SessionRegistry) AttachAvatar(id SessionID, avatar ObjectID) error {
	s, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("attach avatar %d: %w: %d", avatar, ErrUnknownSession, id)
	}
	s.AvatarID = avatar
	return nil
}

// All 按创建顺序返回会话副本（广播扇出使用）
func (r *SessionRegistry) All() []Session {
	out := make([]Session, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, *s)
	}
	return out
}

func (r *SessionRegistry) Len() int { return len(r.order) }
