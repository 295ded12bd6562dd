package server

import (
	"sync/atomic"
)

// Metrics 记录服务端运行期的关键指标（用于监控与调试）
// Tick 线程与网络协程都会写入，统一使用原子操作
type Metrics struct {
	TickCount      int64 // 统计的 Tick 次数
	PacketsIn      int64 // 从传输层取出的数据包
	PacketsOut     int64 // 发出的数据包
	Malformed      int64 // 解码失败被丢弃
	Joins          int64 // 新建会话
	DuplicateJoins int64 // 重复 Join（幂等忽略）
	MovesApplied   int64 // 通过校验并生效的移动
	NotOwner       int64 // 因越权被拒绝
	BadInput       int64 // 因非法方向轴被拒绝
	NoAvatar       int64 // 会话无化身被拒绝
	Clamped        int64 // 速度被裁剪的移动
	Unjoined       int64 // 未加入即发送移动
	Unexpected     int64 // 客户端发送了服务端专用类型
	InboxFull      int64 // 因入站队列满被丢弃
	RateLimited    int64 // 因单端点限流被丢弃
	SendFailed     int64 // 发送失败
	TotalTickNs    int64 // Tick 累计耗时（纳秒）
}

func (m *Metrics) IncPacketsIn()      { atomic.AddInt64(&m.PacketsIn, 1) }
func (m *Metrics) IncPacketsOut()     { atomic.AddInt64(&m.PacketsOut, 1) }
func (m *Metrics) IncMalformed()      { atomic.AddInt64(&m.Malformed, 1) }
func (m *Metrics) IncJoins()          { atomic.AddInt64(&m.Joins, 1) }
func (m *Metrics) IncDuplicateJoins() { atomic.AddInt64(&m.DuplicateJoins, 1) }
func (m *Metrics) IncMovesApplied()   { atomic.AddInt64(&m.MovesApplied, 1) }
func (m *Metrics) IncClamped()        { atomic.AddInt64(&m.Clamped, 1) }
func (m *Metrics) IncUnjoined()       { atomic.AddInt64(&m.Unjoined, 1) }
func (m *Metrics) IncUnexpected()     { atomic.AddInt64(&m.Unexpected, 1) }
func (m *Metrics) IncInboxFull()      { atomic.AddInt64(&m.InboxFull, 1) }
func (m *Metrics) IncRateLimited()    { atomic.AddInt64(&m.RateLimited, 1) }
func (m *Metrics) IncSendFailed()     { atomic.AddInt64(&m.SendFailed, 1) }

// IncRejected 按拒绝原因计数
func (m *Metrics) IncRejected(r RejectReason) {
	switch r {
	case RejectNotOwner:
		atomic.AddInt64(&m.NotOwner, 1)
	case RejectBadInput:
		atomic.AddInt64(&m.BadInput, 1)
	case RejectNoAvatar:
		atomic.AddInt64(&m.NoAvatar, 1)
	}
}

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":      tick,
		"packets_in":      atomic.LoadInt64(&m.PacketsIn),
		"packets_out":     atomic.LoadInt64(&m.PacketsOut),
		"malformed":       atomic.LoadInt64(&m.Malformed),
		"joins":           atomic.LoadInt64(&m.Joins),
		"duplicate_joins": atomic.LoadInt64(&m.DuplicateJoins),
		"moves_applied":   atomic.LoadInt64(&m.MovesApplied),
		"rejected_owner":  atomic.LoadInt64(&m.NotOwner),
		"rejected_input":  atomic.LoadInt64(&m.BadInput),
		"rejected_avatar": atomic.LoadInt64(&m.NoAvatar),
		"clamped":         atomic.LoadInt64(&m.Clamped),
		"unjoined":        atomic.LoadInt64(&m.Unjoined),
		"unexpected":      atomic.LoadInt64(&m.Unexpected),
		"inbox_full":      atomic.LoadInt64(&m.InboxFull),
		"rate_limited":    atomic.LoadInt64(&m.RateLimited),
		"send_failed":     atomic.LoadInt64(&m.SendFailed),
		"avg_tick_ms":     avgMs,
	}
}
