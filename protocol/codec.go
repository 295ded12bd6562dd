package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// 所有多字节字段统一使用小端序
var le = binary.LittleEndian

// Decode 按首字节解析数据包；长度不足或类型未知时返回 ErrMalformedPacket。
// 超出固定长度的尾部字节被忽略。
func Decode(b []byte) (Packet, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrMalformedPacket)
	}
	k := Kind(b[offType])
	switch k {
	case KindJoin:
		return Join{}, nil
	case KindWelcome:
		if len(b) < WelcomeLen {
			return nil, fmt.Errorf("%w: welcome needs %d bytes, got %d", ErrMalformedPacket, WelcomeLen, len(b))
		}
		return Welcome{
			SessionID: le.Uint32(b[offSessionID:]),
			AvatarID:  le.Uint32(b[offAvatarID:]),
			SpawnX:    getFloat(b[offSpawnX:]),
			SpawnY:    getFloat(b[offSpawnY:]),
			TickRate:  le.Uint32(b[offTickRate:]),
			Tick:      le.Uint32(b[offTick:]),
		}, nil
	case KindMove:
		if len(b) < MoveLen {
			return nil, fmt.Errorf("%w: move needs %d bytes, got %d", ErrMalformedPacket, MoveLen, len(b))
		}
		return Move{
			Seq:       le.Uint32(b[offSeq:]),
			ObjectID:  le.Uint32(b[offObjectID:]),
			X:         getFloat(b[offX:]),
			Y:         getFloat(b[offY:]),
			Magnitude: b[offMagnitude],
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %d", ErrMalformedPacket, b[offType])
	}
}

// EncodeJoin 仅包含类型字节
func EncodeJoin() []byte {
	return []byte{byte(KindJoin)}
}

// EncodeWelcome 固定 25 字节
func EncodeWelcome(w Welcome) []byte {
	b := make([]byte, WelcomeLen)
	b[offType] = byte(KindWelcome)
	le.PutUint32(b[offSessionID:], w.SessionID)
	le.PutUint32(b[offAvatarID:], w.AvatarID)
	putFloat(b[offSpawnX:], w.SpawnX)
	putFloat(b[offSpawnY:], w.SpawnY)
	le.PutUint32(b[offTickRate:], w.TickRate)
	le.PutUint32(b[offTick:], w.Tick)
	return b
}

// EncodeMove 固定 21 字节，18..20 保留为 0
func EncodeMove(m Move) []byte {
	b := make([]byte, MoveLen)
	b[offType] = byte(KindMove)
	le.PutUint32(b[offSeq:], m.Seq)
	le.PutUint32(b[offObjectID:], m.ObjectID)
	putFloat(b[offX:], m.X)
	putFloat(b[offY:], m.Y)
	b[offMagnitude] = m.Magnitude
	return b
}

// EncodeStateUpdate 服务端状态更新，与 Move 布局一致，便于同一解码器解析双向数据
func EncodeStateUpdate(m Move) []byte {
	return EncodeMove(m)
}

func putFloat(b []byte, v float32) { le.PutUint32(b, math.Float32bits(v)) }

func getFloat(b []byte) float32 { return math.Float32frombits(le.Uint32(b)) }
