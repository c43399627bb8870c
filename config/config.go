// config.go

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Game     GameConfig     `mapstructure:"game"`
	Arena    ArenaConfig    `mapstructure:"arena"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	GamePort    int    `mapstructure:"game_port"`
	ArenaPort   int    `mapstructure:"arena_port"`
	GatewayPort int    `mapstructure:"gateway_port"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	// ArenaURL 游戏服务访问竞技场服务的地址，为空时使用本机端口
	ArenaURL string `mapstructure:"arena_url"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path sqlite数据库文件路径
	Path string `mapstructure:"path"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// GameConfig 游戏服务配置
type GameConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// SaveBackend 存档后端: sql, redis, memory
	SaveBackend string `mapstructure:"save_backend"`
	GuestKey    string `mapstructure:"guest_key"`
	Seed        int64  `mapstructure:"seed"`
}

// ArenaConfig 竞技场配置
type ArenaConfig struct {
	KFactor       float64       `mapstructure:"k_factor"`
	DefaultElo    int           `mapstructure:"default_elo"`
	LadderSize    int           `mapstructure:"ladder_size"`
	OpponentCount int           `mapstructure:"opponent_count"`
	MatchWindow   int           `mapstructure:"match_window"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

const (
	// DriverPostgres PostgreSQL驱动
	DriverPostgres = "postgres"
	// DriverSQLite SQLite驱动
	DriverSQLite = "sqlite"
)

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.game_port", 8081)
	v.SetDefault("server.arena_port", 8082)
	v.SetDefault("server.gateway_port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "rhodes")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "data/rhodes.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("game.tick_interval", time.Second)
	v.SetDefault("game.save_backend", "sql")
	v.SetDefault("game.guest_key", "guest")

	v.SetDefault("arena.k_factor", 32)
	v.SetDefault("arena.default_elo", 1000)
	v.SetDefault("arena.ladder_size", 50)
	v.SetDefault("arena.opponent_count", 5)
	v.SetDefault("arena.match_window", 200)
	v.SetDefault("arena.timeout", 5*time.Second)
}

// Load 读取配置文件，路径为空时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RHODES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfig 从文件加载配置到GlobalConfig
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	GlobalConfig = *cfg
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}

	switch c.Game.SaveBackend {
	case "sql", "memory":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("存档后端为redis时必须启用redis")
		}
	default:
		return fmt.Errorf("不支持的存档后端: %s", c.Game.SaveBackend)
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("不支持的日志级别: %s", c.Server.LogLevel)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("jwt_secret不能为空")
	}
	if c.Game.TickInterval <= 0 {
		return errors.New("tick_interval必须大于0")
	}
	if c.Arena.OpponentCount <= 0 || c.Arena.LadderSize <= 0 {
		return errors.New("竞技场对手数量和排行榜大小必须大于0")
	}

	return nil
}

// Verbose debug模式下访问日志附带客户端和缓存信息
func (c *ServerConfig) Verbose() bool {
	return c.Debug || strings.EqualFold(c.LogLevel, "debug")
}

// AccessLogMinStatus 按日志级别返回需要记录访问日志的最低状态码
func (c *ServerConfig) AccessLogMinStatus() int {
	switch strings.ToLower(c.LogLevel) {
	case "warn":
		return 400
	case "error":
		return 500
	default:
		return 0
	}
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == DriverSQLite {
		return c.Path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetArenaURL 获取竞技场服务地址
func (c *ServerConfig) GetArenaURL() string {
	if c.ArenaURL != "" {
		return strings.TrimRight(c.ArenaURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.ArenaPort)
}
