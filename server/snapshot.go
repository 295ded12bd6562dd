package server

// Snapshot 每个 Tick 结束时发布的只读视图，供管理接口跨协程读取
type Snapshot struct {
	Tick             uint64        `json:"tick"`
	TickRate         int           `json:"tickRate"`
	MaxMagnitude     int           `json:"maxMagnitude"`
	KeyframeInterval int           `json:"keyframeInterval"`
	Sessions         []SessionView `json:"sessions"`
}

// SessionView 会话及其化身的当前状态
type SessionView struct {
	SessionID SessionID `json:"sessionId"`
	Endpoint  string    `json:"endpoint"`
	AvatarID  ObjectID  `json:"avatarId"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Magnitude uint8     `json:"magnitude"`
	JoinedAt  uint64    `json:"joinedAt"`
}

// Snapshot 返回最近一次发布的视图（并发安全）
func (s *GameServer) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *GameServer) publish() {
	snap := &Snapshot{
		Tick:             s.now,
		TickRate:         s.tickRate,
		MaxMagnitude:     int(s.policy.MaxMagnitude()),
		KeyframeInterval: s.keyframeInterval,
		Sessions:         make([]SessionView, 0, s.sessions.Len()),
	}
	for _, sess := range s.sessions.All() {
		v := SessionView{
			SessionID: sess.ID,
			Endpoint:  sess.Endpoint.String(),
			AvatarID:  sess.AvatarID,
			JoinedAt:  sess.JoinedAt,
		}
		if o, ok := s.world.Get(sess.AvatarID); ok {
			v.X, v.Y, v.Magnitude = o.Position.X, o.Position.Y, o.Magnitude
		}
		snap.Sessions = append(snap.Sessions, v)
	}
	s.snapshot.Store(snap)
}
