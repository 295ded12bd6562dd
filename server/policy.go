package server

import (
	"math"

	"tickarena/protocol"
)

// MaxMagnitude 每 Tick 允许的最大移动速度（协议约定值，含边界）
const MaxMagnitude = 10

// RejectReason 反作弊拒绝原因；RejectNone 表示通过
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectNoAvatar
	RejectNotOwner
	RejectBadInput
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectNoAvatar:
		return "no_avatar"
	case RejectNotOwner:
		return "not_owner"
	case RejectBadInput:
		return "bad_input"
	default:
		return "unknown"
	}
}

// AuthorizedMove 已通过校验、可直接写入世界的移动
type AuthorizedMove struct {
	ObjectID  ObjectID
	Axis      Vec2  // 单位化后的方向，长度 ≤ 1
	Magnitude uint8 // 裁剪后的速度
}

// Delta 本 Tick 的位移
func (m AuthorizedMove) Delta() Vec2 {
	return m.Axis.Scale(float64(m.Magnitude))
}

// Decision 校验结果：Reason == RejectNone 时 Move 有效
type Decision struct {
	Reason RejectReason
	Move   AuthorizedMove
}

func (d Decision) Authorized() bool { return d.Reason == RejectNone }

// objectReader 策略只读访问世界
type objectReader interface {
	Get(id ObjectID) (GameObject, bool)
}

// Policy 客户端所有变更进入世界前的唯一关口
type Policy struct {
	world        objectReader
	maxMagnitude uint8
}

func NewPolicy(world objectReader, maxMagnitude uint8) *Policy {
	return &Policy{world: world, maxMagnitude: maxMagnitude}
}

// SetMaxMagnitude 由 Tick 线程在帧开始时调用（热更新）
func (p *Policy) SetMaxMagnitude(v uint8) { p.maxMagnitude = v }

func (p *Policy) MaxMagnitude() uint8 { return p.maxMagnitude }

// AuthorizeMove 校验归属、清洗方向轴并裁剪速度
func (p *Policy) AuthorizeMove(s Session, req protocol.Move) Decision {
	if s.AvatarID == 0 {
		return Decision{Reason: RejectNoAvatar}
	}
	if ObjectID(req.ObjectID) != s.AvatarID {
		return Decision{Reason: RejectNotOwner}
	}
	if _, ok := p.world.Get(s.AvatarID); !ok {
		return Decision{Reason: RejectNoAvatar}
	}

	axis, ok := sanitizeAxis(float64(req.X), float64(req.Y))
	if !ok {
		return Decision{Reason: RejectBadInput}
	}

	mag := req.Magnitude
	if mag > p.maxMagnitude {
		mag = p.maxMagnitude
	}
	return Decision{Move: AuthorizedMove{ObjectID: s.AvatarID, Axis: axis, Magnitude: mag}}
}

// sanitizeAxis 拒绝 NaN/Inf；分量裁剪到 [-1,1]，长度超过 1 时归一化
func sanitizeAxis(x, y float64) (Vec2, bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return Vec2{}, false
	}
	x = math.Max(-1, math.Min(1, x))
	y = math.Max(-1, math.Min(1, y))
	if l := math.Hypot(x, y); l > 1 {
		x /= l
		y /= l
	}
	return Vec2{X: x, Y: y}, true
}
