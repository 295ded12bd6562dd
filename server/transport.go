package server

// Datagram 一个入站数据包及其来源
type Datagram struct {
	Data []byte
	From Endpoint
}

// Transport 核心对传输层的全部依赖：非阻塞接收 + 即发即忘发送
type Transport interface {
	ReceiveNext() (Datagram, bool)
	Send(b []byte, to Endpoint)
}

// Inbox 入站队列：网络协程并发写入，Tick 线程非阻塞 drain
type Inbox struct {
	ch      chan Datagram
	metrics *Metrics
}

func NewInbox(size int, m *Metrics) *Inbox {
	if m == nil {
		m = &Metrics{}
	}
	return &Inbox{ch: make(chan Datagram, size), metrics: m}
}

// Offer 压入队列（非阻塞，满则丢弃），保证网络读不会拖慢 Tick
func (in *Inbox) Offer(d Datagram) bool {
	select {
	case in.ch <- d:
		return true
	default:
		in.metrics.IncInboxFull()
		return false
	}
}

// ReceiveNext 队列为空时立即返回 false，从不等待
func (in *Inbox) ReceiveNext() (Datagram, bool) {
	select {
	case d := <-in.ch:
		return d, true
	default:
		return Datagram{}, false
	}
}

func (in *Inbox) Len() int { return len(in.ch) }
