package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// maxDatagram 单个 UDP 包的读缓冲；协议包最长 25 字节
const maxDatagram = 2048

// maxLimiters 限流器表上限，超过后整表重建，避免伪造源地址撑爆内存
const maxLimiters = 10000

// NetTransport 生产环境传输层：UDP 套接字 + WebSocket 网关共用一个入站队列。
// 出站时若目标端点是 WebSocket 连接则走 WS，否则走 UDP。
type NetTransport struct {
	inbox   *Inbox
	metrics *Metrics

	udp *net.UDPConn

	mu    sync.RWMutex
	peers map[Endpoint]*ClientConn

	limMu    sync.Mutex
	limiters map[Endpoint]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewNetTransport(cfg Config, m *Metrics) *NetTransport {
	if m == nil {
		m = &Metrics{}
	}
	limit := rate.Limit(cfg.InboundRate)
	if cfg.InboundRate <= 0 {
		limit = rate.Inf
	}
	return &NetTransport{
		inbox:    NewInbox(cfg.InboxSize, m),
		metrics:  m,
		peers:    make(map[Endpoint]*ClientConn),
		limiters: make(map[Endpoint]*rate.Limiter),
		limit:    limit,
		burst:    cfg.InboundBurst,
	}
}

// ListenUDP 绑定 UDP 地址；返回实际地址（addr 端口为 0 时有用）
func (t *NetTransport) ListenUDP(addr string) (*net.UDPAddr, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	t.udp = conn
	return conn.LocalAddr().(*net.UDPAddr), nil
}

// ServeUDP 读循环：每个数据报即一个协议包，直到 ctx 取消
func (t *NetTransport) ServeUDP(ctx context.Context) error {
	if t.udp == nil {
		return errors.New("udp: not listening")
	}
	go func() {
		<-ctx.Done()
		_ = t.udp.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := t.udp.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Log.Warnw("udp read failed", "err", err)
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		t.offer(Datagram{Data: data, From: Endpoint{Address: from.IP.String(), Port: from.Port}})
	}
}

// ReceiveNext 实现 Transport
func (t *NetTransport) ReceiveNext() (Datagram, bool) {
	return t.inbox.ReceiveNext()
}

// Send 实现 Transport：即发即忘，失败只计数
func (t *NetTransport) Send(b []byte, to Endpoint) {
	t.mu.RLock()
	peer, ok := t.peers[to]
	if ok {
		peer.Enqueue(b)
	}
	t.mu.RUnlock()
	if ok || t.udp == nil {
		return
	}

	ip := net.ParseIP(to.Address)
	if ip == nil {
		t.metrics.IncSendFailed()
		return
	}
	if _, err := t.udp.WriteToUDP(b, &net.UDPAddr{IP: ip, Port: to.Port}); err != nil {
		t.metrics.IncSendFailed()
		Log.Debugw("udp send failed", "to", to.String(), "err", err)
	}
}

// offer 单端点限流后压入入站队列
func (t *NetTransport) offer(d Datagram) {
	if !t.limiter(d.From).Allow() {
		t.metrics.IncRateLimited()
		return
	}
	t.inbox.Offer(d)
}

func (t *NetTransport) limiter(ep Endpoint) *rate.Limiter {
	t.limMu.Lock()
	defer t.limMu.Unlock()
	l, ok := t.limiters[ep]
	if !ok {
		if len(t.limiters) >= maxLimiters {
			t.limiters = make(map[Endpoint]*rate.Limiter)
		}
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[ep] = l
	}
	return l
}
