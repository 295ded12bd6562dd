package server

import "testing"

// fakeData 客户端视角收到的一个数据包
type fakeData struct {
	data     []byte
	endPoint Endpoint
}

// fakeTransport 内存传输：测试扮演客户端向服务端入队，并从出站队列取包
type fakeTransport struct {
	in  []Datagram
	out []fakeData
}

func (f *fakeTransport) ClientEnqueue(b []byte, address string, port int) {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.in = append(f.in, Datagram{Data: cp, From: Endpoint{Address: address, Port: port}})
}

func (f *fakeTransport) ClientDequeue(t *testing.T) fakeData {
	t.Helper()
	if len(f.out) == 0 {
		t.Fatalf("client queue is empty")
	}
	d := f.out[0]
	f.out = f.out[1:]
	return d
}

func (f *fakeTransport) ClientQueueCount() int { return len(f.out) }

// drain 取出全部出站包
func (f *fakeTransport) drain() []fakeData {
	out := f.out
	f.out = nil
	return out
}

func (f *fakeTransport) ReceiveNext() (Datagram, bool) {
	if len(f.in) == 0 {
		return Datagram{}, false
	}
	d := f.in[0]
	f.in = f.in[1:]
	return d, true
}

func (f *fakeTransport) Send(b []byte, to Endpoint) {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.out = append(f.out, fakeData{data: cp, endPoint: to})
}

type recordingSink struct {
	got []Violation
}

func (r *recordingSink) Record(v Violation) { r.got = append(r.got, v) }
