package server

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Admin 管理与监控接口；只读取 Tick 发布的快照，修改通过队列交给 Tick 线程
type Admin struct {
	game  *GameServer
	audit *AuditLog // 可为 nil
}

func NewAdmin(game *GameServer, audit *AuditLog) *Admin {
	return &Admin{game: game, audit: audit}
}

// HandleConfig 提供运行期配置的读取与更新（热更新，下一 Tick 生效）
// GET /admin/config  返回当前配置
// POST /admin/config 以 JSON 载荷更新部分字段
func (a *Admin) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snap := a.game.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"tickRate":         snap.TickRate,
			"maxMagnitude":     snap.MaxMagnitude,
			"keyframeInterval": snap.KeyframeInterval,
		})
	case http.MethodPost:
		var body ConfigUpdate
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxMagnitude != nil && (*body.MaxMagnitude < 0 || *body.MaxMagnitude > MaxMagnitude) {
			http.Error(w, "maxMagnitude out of range", http.StatusBadRequest)
			return
		}
		if body.KeyframeInterval != nil && *body.KeyframeInterval < 0 {
			http.Error(w, "keyframeInterval out of range", http.StatusBadRequest)
			return
		}
		if !a.game.RequestConfig(body) {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (a *Admin) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := a.game.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":    snap.Tick,
		"clients": len(snap.Sessions),
		"metrics": a.game.Metrics().Snapshot(),
	})
}

// HandleSessions GET /admin/sessions
func (a *Admin) HandleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.game.Snapshot())
}

// HandleViolations GET /admin/violations?limit=50
func (a *Admin) HandleViolations(w http.ResponseWriter, r *http.Request) {
	if a.audit == nil {
		http.Error(w, "audit disabled", http.StatusNotFound)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := a.audit.Recent(r.Context(), limit)
	if err != nil {
		Log.Warnw("query violations failed", "err", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": a.audit.RunID(), "violations": recs})
}

// Routes 注册全部管理路由
func (a *Admin) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/config", a.HandleConfig)
	mux.HandleFunc("/admin/sessions", a.HandleSessions)
	mux.HandleFunc("/admin/violations", a.HandleViolations)
	mux.HandleFunc("/metrics", a.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
