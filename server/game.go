package server

import (
	"fmt"
	"sync/atomic"
	"time"

	"tickarena/protocol"
)

// Violation 一次被拒绝的客户端命令（用于审计）
type Violation struct {
	Tick      uint64
	SessionID SessionID
	Endpoint  Endpoint
	ObjectID  uint32 // 客户端请求的目标对象
	Reason    RejectReason
	Requested uint8 // 客户端请求的速度
}

// ViolationSink 接收反作弊拒绝记录；实现必须非阻塞
type ViolationSink interface {
	Record(v Violation)
}

// ConfigUpdate 运行期可热更新的字段，nil 表示不修改
type ConfigUpdate struct {
	MaxMagnitude     *int `json:"maxMagnitude,omitempty"`
	KeyframeInterval *int `json:"keyframeInterval,omitempty"`
}

// GameServer 权威服务端：会话、世界、策略与 Tick 计数，单线程推进
type GameServer struct {
	transport Transport
	sessions  *SessionRegistry
	world     *World
	policy    *Policy
	metrics   *Metrics
	audit     ViolationSink

	now              uint64
	tickRate         int
	spawn            Vec2
	keyframeInterval int

	// 帧内状态，每个 Tick 开始时重置
	welcomed map[SessionID]bool
	outbox   map[SessionID][][]byte

	updates  chan ConfigUpdate
	snapshot atomic.Pointer[Snapshot]
}

// NewGameServer 创建服务端；metrics 与 audit 可为 nil
func NewGameServer(t Transport, cfg Config, metrics *Metrics, audit ViolationSink) *GameServer {
	if metrics == nil {
		metrics = &Metrics{}
	}
	world := NewWorld(cfg.WorldWidth, cfg.WorldHeight)
	s := &GameServer{
		transport:        t,
		sessions:         NewSessionRegistry(),
		world:            world,
		policy:           NewPolicy(world, uint8(cfg.MaxMagnitude)),
		metrics:          metrics,
		audit:            audit,
		tickRate:         cfg.TickRate,
		spawn:            Vec2{X: cfg.SpawnX, Y: cfg.SpawnY},
		keyframeInterval: cfg.KeyframeInterval,
		welcomed:         make(map[SessionID]bool),
		outbox:           make(map[SessionID][][]byte),
		updates:          make(chan ConfigUpdate, 16),
	}
	s.publish()
	return s
}

// Now 当前服务端 Tick，从 0 开始，每完成一次 SingleStep 加一
func (s *GameServer) Now() uint64 { return s.now }

func (s *GameServer) NumClients() int { return s.sessions.Len() }

func (s *GameServer) NumGameObjects() int { return s.world.Len() }

func (s *GameServer) Metrics() *Metrics { return s.metrics }

// SingleStep 推进一个 Tick：处理输入 → 广播结果 → 推进时间。
// 单个数据包的失败只影响该包；只有内部不变量被破坏时才返回错误。
func (s *GameServer) SingleStep() error {
	start := time.Now()
	s.beginTick()
	if err := s.processInputs(); err != nil {
		return err
	}
	s.broadcastDelta()
	s.now++
	s.publish()
	s.metrics.AddTick(time.Since(start).Nanoseconds())
	return nil
}

// RequestConfig 由其他协程提交配置更新，在下一个 Tick 开始时生效
func (s *GameServer) RequestConfig(u ConfigUpdate) bool {
	select {
	case s.updates <- u:
		return true
	default:
		return false
	}
}

// beginTick 应用配置更新并重置帧内状态
func (s *GameServer) beginTick() {
	for {
		select {
		case u := <-s.updates:
			s.applyConfig(u)
		default:
			clear(s.welcomed)
			clear(s.outbox)
			return
		}
	}
}

func (s *GameServer) applyConfig(u ConfigUpdate) {
	if u.MaxMagnitude != nil && *u.MaxMagnitude >= 0 && *u.MaxMagnitude <= MaxMagnitude {
		s.policy.SetMaxMagnitude(uint8(*u.MaxMagnitude))
	}
	if u.KeyframeInterval != nil && *u.KeyframeInterval >= 0 {
		s.keyframeInterval = *u.KeyframeInterval
	}
	Log.Infow("config updated", "tick", s.now, "maxMagnitude", s.policy.MaxMagnitude(), "keyframeInterval", s.keyframeInterval)
}

// processInputs 非阻塞 drain 传输层，直到队列为空
func (s *GameServer) processInputs() error {
	for {
		d, ok := s.transport.ReceiveNext()
		if !ok {
			return nil
		}
		s.metrics.IncPacketsIn()
		if err := s.dispatch(d); err != nil {
			return err
		}
	}
}

func (s *GameServer) dispatch(d Datagram) error {
	pkt, err := protocol.Decode(d.Data)
	if err != nil {
		s.metrics.IncMalformed()
		Log.Debugw("drop malformed packet", "from", d.From.String(), "len", len(d.Data), "err", err)
		return nil
	}
	switch p := pkt.(type) {
	case protocol.Join:
		return s.onJoin(d.From)
	case protocol.Move:
		return s.onMove(d.From, p)
	default:
		s.metrics.IncUnexpected()
		Log.Debugw("drop unexpected packet", "from", d.From.String(), "kind", pkt.Kind().String())
		return nil
	}
}

// onJoin 新端点：创建会话与化身并回复 Welcome；已知端点：幂等忽略
func (s *GameServer) onJoin(ep Endpoint) error {
	sess, isNew := s.sessions.FindOrCreate(ep, s.now)
	if !isNew {
		s.metrics.IncDuplicateJoins()
		return nil
	}
	avatar := s.world.Spawn(sess.ID, s.spawn)
	if err := s.sessions.AttachAvatar(sess.ID, avatar); err != nil {
		return err
	}
	obj, ok := s.world.Get(avatar)
	if !ok {
		return fmt.Errorf("welcome session %d: %w: %d", sess.ID, ErrUnknownObject, avatar)
	}

	s.welcomed[sess.ID] = true
	s.enqueue(sess.ID, protocol.EncodeWelcome(protocol.Welcome{
		SessionID: uint32(sess.ID),
		AvatarID:  uint32(avatar),
		SpawnX:    float32(obj.Position.X),
		SpawnY:    float32(obj.Position.Y),
		TickRate:  uint32(s.tickRate),
		Tick:      uint32(s.now),
	}))
	s.metrics.IncJoins()
	Log.Infow("session joined", "session", sess.ID, "avatar", avatar, "endpoint", ep.String(), "tick", s.now)
	return nil
}

// onMove 未加入的端点直接丢弃；越权或非法输入静默丢弃，不回复攻击者
func (s *GameServer) onMove(ep Endpoint, req protocol.Move) error {
	sess, ok := s.sessions.ByEndpoint(ep)
	if !ok {
		s.metrics.IncUnjoined()
		return nil
	}
	d := s.policy.AuthorizeMove(sess, req)
	if !d.Authorized() {
		s.metrics.IncRejected(d.Reason)
		Log.Debugw("move rejected", "session", sess.ID, "target", req.ObjectID, "reason", d.Reason.String())
		if s.audit != nil {
			s.audit.Record(Violation{
				Tick:      s.now,
				SessionID: sess.ID,
				Endpoint:  ep,
				ObjectID:  req.ObjectID,
				Reason:    d.Reason,
				Requested: req.Magnitude,
			})
		}
		return nil
	}
	if d.Move.Magnitude < req.Magnitude {
		s.metrics.IncClamped()
	}
	if err := s.world.ApplyMovement(d.Move.ObjectID, d.Move.Delta(), d.Move.Magnitude); err != nil {
		return err
	}
	s.metrics.IncMovesApplied()
	return nil
}

// broadcastDelta 只广播本帧变化的对象。有新会话加入的 Tick，已有会话收到全量，
// 新会话收到除自身化身外的全量；关键帧 Tick 则向所有会话全量广播。
// 最后按会话创建顺序统一发送。
func (s *GameServer) broadcastDelta() {
	full := s.isKeyframe() || len(s.welcomed) > 0
	sessions := s.sessions.All()
	objects := s.world.All()

	updates := make([][]byte, len(objects))
	for i, o := range objects {
		updates[i] = protocol.EncodeStateUpdate(protocol.Move{
			Seq:       uint32(s.now),
			ObjectID:  uint32(o.ID),
			X:         float32(o.Position.X),
			Y:         float32(o.Position.Y),
			Magnitude: o.Magnitude,
		})
	}

	for _, sess := range sessions {
		fresh := s.welcomed[sess.ID]
		for i, o := range objects {
			// Welcome 已携带自身出生点
			if fresh && o.Owner == sess.ID {
				continue
			}
			if o.Dirty || full {
				s.enqueue(sess.ID, updates[i])
			}
		}
	}
	s.world.EndTick()

	for _, sess := range sessions {
		for _, b := range s.outbox[sess.ID] {
			s.transport.Send(b, sess.Endpoint)
			s.metrics.IncPacketsOut()
		}
	}
}

func (s *GameServer) isKeyframe() bool {
	return s.keyframeInterval > 0 && s.now > 0 && s.now%uint64(s.keyframeInterval) == 0
}

func (s *GameServer) enqueue(id SessionID, b []byte) {
	s.outbox[id] = append(s.outbox[id], b)
}
