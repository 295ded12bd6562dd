package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickarena/server"
)

// tickarena 入口：加载配置，启动 UDP + WebSocket 传输、管理接口与 Tick 循环
func main() {
	var envFile, httpAddr, udpAddr string
	flag.StringVar(&envFile, "env", ".env", "optional .env file with TICKARENA_* settings")
	flag.StringVar(&httpAddr, "addr", "", "http listen address (ws gateway + admin), overrides TICKARENA_HTTP_ADDR")
	flag.StringVar(&udpAddr, "udp", "", "udp listen address, overrides TICKARENA_UDP_ADDR")
	flag.Parse()

	cfg, err := server.LoadConfig(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if udpAddr != "" {
		cfg.UDPAddr = udpAddr
	}

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer server.SyncLogger()

	if err := run(cfg); err != nil {
		server.Log.Errorf("server stopped: %v", err)
		server.SyncLogger()
		os.Exit(1)
	}
}

func run(cfg server.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := &server.Metrics{}
	transport := server.NewNetTransport(cfg, metrics)
	udpAddr, err := transport.ListenUDP(cfg.UDPAddr)
	if err != nil {
		return err
	}

	var audit *server.AuditLog
	var sink server.ViolationSink
	if cfg.AuditDB != "" {
		audit, err = server.OpenAuditLog(cfg.AuditDB)
		if err != nil {
			return err
		}
		sink = audit
		server.Log.Infow("audit log enabled", "path", cfg.AuditDB, "run", audit.RunID())
	}

	game := server.NewGameServer(transport, cfg, metrics, sink)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", transport.HandleWS)
	server.NewAdmin(game, audit).Routes(mux)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		server.Log.Infof("http listening on %s (ws: /ws, admin: /admin/*)", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Errorf("http listen: %v", err)
			stop()
		}
	}()
	go func() {
		server.Log.Infof("udp listening on %s", udpAddr)
		if err := transport.ServeUDP(ctx); err != nil {
			server.Log.Errorf("udp: %v", err)
			stop()
		}
	}()

	// Tick 循环在主协程运行，直到收到退出信号
	tickErr := game.Run(ctx)
	stop()

	server.Log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if audit != nil {
		if err := audit.Close(); err != nil {
			server.Log.Warnw("close audit log", "err", err)
		}
	}
	return tickErr
}
