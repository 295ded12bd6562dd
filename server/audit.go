package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS violations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT    NOT NULL,
	tick       INTEGER NOT NULL,
	session_id INTEGER NOT NULL,
	address    TEXT    NOT NULL,
	port       INTEGER NOT NULL,
	object_id  INTEGER NOT NULL,
	reason     TEXT    NOT NULL,
	requested  INTEGER NOT NULL,
	created_at TEXT    NOT NULL
)`

// AuditLog 将反作弊拒绝异步写入 sqlite。
// Record 在 Tick 线程调用，只做非阻塞入队；写库在独立协程完成。
type AuditLog struct {
	db    *sql.DB
	runID string
	ch    chan Violation
	done  chan struct{}
}

// AuditRecord 查询结果
type AuditRecord struct {
	RunID     string `json:"runId"`
	Tick      uint64 `json:"tick"`
	SessionID uint32 `json:"sessionId"`
	Endpoint  string `json:"endpoint"`
	ObjectID  uint32 `json:"objectId"`
	Reason    string `json:"reason"`
	Requested uint8  `json:"requested"`
	CreatedAt string `json:"createdAt"`
}

// OpenAuditLog 打开（或创建）审计库并启动写协程
func OpenAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(auditSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	a := &AuditLog{
		db:    db,
		runID: uuid.NewString(),
		ch:    make(chan Violation, 256),
		done:  make(chan struct{}),
	}
	go a.writeLoop()
	return a, nil
}

func (a *AuditLog) RunID() string { return a.runID }

// Record 实现 ViolationSink（非阻塞，满则丢弃）
func (a *AuditLog) Record(v Violation) {
	select {
	case a.ch <- v:
	default:
		Log.Debugw("audit queue full, violation dropped", "session", v.SessionID)
	}
}

func (a *AuditLog) writeLoop() {
	defer close(a.done)
	for v := range a.ch {
		_, err := a.db.Exec(
			`INSERT INTO violations (run_id, tick, session_id, address, port, object_id, reason, requested, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.runID, int64(v.Tick), int64(v.SessionID), v.Endpoint.Address, v.Endpoint.Port,
			int64(v.ObjectID), v.Reason.String(), int(v.Requested), time.Now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			Log.Warnw("audit insert failed", "err", err)
		}
	}
}

// Recent 按写入倒序返回最近的记录
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]AuditRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT run_id, tick, session_id, address, port, object_id, reason, requested, created_at
		 FROM violations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			r    AuditRecord
			addr string
			port int
		)
		if err := rows.Scan(&r.RunID, &r.Tick, &r.SessionID, &addr, &port, &r.ObjectID, &r.Reason, &r.Requested, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		r.Endpoint = Endpoint{Address: addr, Port: port}.String()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close 写完队列中剩余记录后关闭数据库；调用前 Tick 循环必须已停止
func (a *AuditLog) Close() error {
	close(a.ch)
	<-a.done
	return a.db.Close()
}
