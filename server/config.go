package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig 配置值不合法
var ErrInvalidConfig = errors.New("invalid config")

// Config 服务端启动配置；可由 .env 文件与 TICKARENA_* 环境变量覆盖默认值
type Config struct {
	UDPAddr  string // UDP 监听地址
	HTTPAddr string // WebSocket 网关 + 管理接口

	TickRate         int     // 每秒 Tick 次数
	MaxMagnitude     int     // 每 Tick 最大速度
	WorldWidth       float64 // 世界边界
	WorldHeight      float64
	SpawnX           float64 // 出生点
	SpawnY           float64
	KeyframeInterval int // 每隔多少 Tick 全量广播一次，0 关闭

	InboxSize    int     // 入站队列容量
	InboundRate  float64 // 单端点每秒允许的数据包
	InboundBurst int

	LogFile  string
	LogLevel string
	AuditDB  string // 为空则不记录违规
}

// DefaultConfig 与协议约定值一致的默认配置
func DefaultConfig() Config {
	return Config{
		UDPAddr:          ":7777",
		HTTPAddr:         ":8080",
		TickRate:         TicksPerSecond,
		MaxMagnitude:     MaxMagnitude,
		WorldWidth:       100,
		WorldHeight:      100,
		SpawnX:           50,
		SpawnY:           50,
		KeyframeInterval: 100,
		InboxSize:        1024,
		InboundRate:      120,
		InboundBurst:     60,
		LogFile:          "app.log",
		LogLevel:         "info",
	}
}

// LoadConfig 先加载 .env（文件不存在时忽略），再读取环境变量并校验
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	var err error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, perr)
				return
			}
			*dst = n
		}
	}
	flt := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && err == nil {
			f, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, perr)
				return
			}
			*dst = f
		}
	}

	str("TICKARENA_UDP_ADDR", &cfg.UDPAddr)
	str("TICKARENA_HTTP_ADDR", &cfg.HTTPAddr)
	num("TICKARENA_TICK_RATE", &cfg.TickRate)
	num("TICKARENA_MAX_MAGNITUDE", &cfg.MaxMagnitude)
	flt("TICKARENA_WORLD_WIDTH", &cfg.WorldWidth)
	flt("TICKARENA_WORLD_HEIGHT", &cfg.WorldHeight)
	flt("TICKARENA_SPAWN_X", &cfg.SpawnX)
	flt("TICKARENA_SPAWN_Y", &cfg.SpawnY)
	num("TICKARENA_KEYFRAME_INTERVAL", &cfg.KeyframeInterval)
	num("TICKARENA_INBOX_SIZE", &cfg.InboxSize)
	flt("TICKARENA_INBOUND_RATE", &cfg.InboundRate)
	num("TICKARENA_INBOUND_BURST", &cfg.InboundBurst)
	str("TICKARENA_LOG_FILE", &cfg.LogFile)
	str("TICKARENA_LOG_LEVEL", &cfg.LogLevel)
	str("TICKARENA_AUDIT_DB", &cfg.AuditDB)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate 检查取值范围
func (c Config) Validate() error {
	switch {
	case c.TickRate <= 0 || c.TickRate > 1000:
		return fmt.Errorf("%w: tick rate %d out of range (1..1000)", ErrInvalidConfig, c.TickRate)
	case c.MaxMagnitude < 0 || c.MaxMagnitude > MaxMagnitude:
		return fmt.Errorf("%w: max magnitude %d out of range (0..%d)", ErrInvalidConfig, c.MaxMagnitude, MaxMagnitude)
	case c.WorldWidth <= 0 || c.WorldHeight <= 0:
		return fmt.Errorf("%w: world size %.1fx%.1f", ErrInvalidConfig, c.WorldWidth, c.WorldHeight)
	case c.SpawnX < 0 || c.SpawnX > c.WorldWidth || c.SpawnY < 0 || c.SpawnY > c.WorldHeight:
		return fmt.Errorf("%w: spawn (%.1f,%.1f) outside world", ErrInvalidConfig, c.SpawnX, c.SpawnY)
	case c.KeyframeInterval < 0:
		return fmt.Errorf("%w: keyframe interval %d", ErrInvalidConfig, c.KeyframeInterval)
	case c.InboxSize <= 0:
		return fmt.Errorf("%w: inbox size %d", ErrInvalidConfig, c.InboxSize)
	case c.InboundRate < 0 || c.InboundBurst < 0:
		return fmt.Errorf("%w: inbound rate %.1f burst %d", ErrInvalidConfig, c.InboundRate, c.InboundBurst)
	}
	return nil
}
