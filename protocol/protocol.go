package protocol

import "errors"

// Kind 数据包类型（首字节）
type Kind uint8

const (
	KindJoin    Kind = 0 // 客户端 → 服务端：加入
	KindWelcome Kind = 1 // 服务端 → 客户端：分配会话与化身
	KindMove    Kind = 3 // 双向：移动请求 / 状态更新
)

// 各类型的固定长度（字节）
const (
	JoinLen    = 1
	WelcomeLen = 25
	MoveLen    = 21
)

// Move / StateUpdate 布局中的关键偏移
const (
	offType      = 0
	offSeq       = 1
	offObjectID  = 5
	offX         = 9
	offY         = 13
	offMagnitude = 17
)

// Welcome 布局中的偏移（0..8 与 Move 共用 type / id 位置）
const (
	offSessionID = 1
	offAvatarID  = 5
	offSpawnX    = 9
	offSpawnY    = 13
	offTickRate  = 17
	offTick      = 21
)

// ErrMalformedPacket 长度不足或类型未知
var ErrMalformedPacket = errors.New("malformed packet")

// Packet 解码后的数据包
type Packet interface {
	Kind() Kind
}

// Join 加入请求，无负载
type Join struct{}

// Welcome 服务端对新会话的应答
type Welcome struct {
	SessionID uint32
	AvatarID  uint32
	SpawnX    float32
	SpawnY    float32
	TickRate  uint32 // 服务端 Tick 频率（Hz）
	Tick      uint32 // 发送时的服务端 Tick
}

// Move 客户端移动请求；服务端复用同一布局作为状态更新
//   - 入站：Seq 为客户端序列号，X/Y 为方向轴，Magnitude 为请求的速度
//   - 出站：Seq 为服务端 Tick，X/Y 为位置，Magnitude 为裁剪后实际生效的速度
type Move struct {
	Seq       uint32
	ObjectID  uint32
	X         float32
	Y         float32
	Magnitude uint8
}

func (Join) Kind() Kind    { return KindJoin }
func (Welcome) Kind() Kind { return KindWelcome }
func (Move) Kind() Kind    { return KindMove }

func (k Kind) String() string {
	switch k {
	case KindJoin:
		return "join"
	case KindWelcome:
		return "welcome"
	case KindMove:
		return "move"
	default:
		return "unknown"
	}
}
