package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Gossip   GossipConfig   `mapstructure:"gossip"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode      string          `mapstructure:"mode"`
	Address   string          `mapstructure:"address"`
	Cors      CorsConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig 定义了按IP限流的配额，只在Redis可用时生效。
// 配额不大于0表示该类接口不限流。
type RateLimitConfig struct {
	Window      time.Duration `mapstructure:"window"`
	AuthMax     int           `mapstructure:"authMax"`
	GenerateMax int           `mapstructure:"generateMax"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	// Driver 可选 "sqlite" 或 "postgres"
	Driver   string         `mapstructure:"driver"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// SqliteConfig 定义了SQLite的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig 定义了PostgreSQL的配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 定义了登录令牌相关的配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwtSecret"`
	TokenTTL  time.Duration `mapstructure:"tokenTTL"`
}

// GossipConfig 汇总了八卦生成流水线的所有可调参数。
type GossipConfig struct {
	// MinTotalChoices 是用户被纳入一次生成的最低累计选择数
	MinTotalChoices  int             `mapstructure:"minTotalChoices"`
	Workers          int             `mapstructure:"workers"`
	TemplatesPath    string          `mapstructure:"templatesPath"`
	FallbackSignals  []string        `mapstructure:"fallbackSignals"`
	Aliases          AliasConfig     `mapstructure:"aliases"`
	Rules            RuleConfig      `mapstructure:"rules"`
	Retention        RetentionConfig `mapstructure:"retention"`
	Schedule         ScheduleConfig  `mapstructure:"schedule"`
	ListDefaultLimit int             `mapstructure:"listDefaultLimit"`
	ListMaxLimit     int             `mapstructure:"listMaxLimit"`
	CacheTTL         time.Duration   `mapstructure:"cacheTTL"`
}

// AliasConfig 为三个抽象的特质槽位各自列出可识别的字段名。
// 不同故事对同一槽位使用的字段名并不统一。
type AliasConfig struct {
	Slot1 []string `mapstructure:"slot1"`
	Slot2 []string `mapstructure:"slot2"`
	Slot3 []string `mapstructure:"slot3"`
}

// RuleConfig 是行为分类规则的阈值表。
type RuleConfig struct {
	NewPlayerMaxChoices    int `mapstructure:"newPlayerMaxChoices"`
	ActivePlayerMinChoices int `mapstructure:"activePlayerMinChoices"`
	AchievementMinEndings  int `mapstructure:"achievementMinEndings"`
	BingeMinFinished       int `mapstructure:"bingeMinFinished"`
	SpeedRunnerMinChoices  int `mapstructure:"speedRunnerMinChoices"`
	SpeedRunnerMaxFinished int `mapstructure:"speedRunnerMaxFinished"`
	IndecisiveMinStarted   int `mapstructure:"indecisiveMinStarted"`
	IndecisiveMaxFinished  int `mapstructure:"indecisiveMaxFinished"`
	StrangerMinStarted     int `mapstructure:"strangerMinStarted"`
	StrangerMinChoices     int `mapstructure:"strangerMinChoices"`
	TraitMinChoices        int `mapstructure:"traitMinChoices"`
	TraitMinSamples        int `mapstructure:"traitMinSamples"`

	BetrayalMaxLoyalty       float64 `mapstructure:"betrayalMaxLoyalty"`
	CompassionMaxLow         float64 `mapstructure:"compassionMaxLow"`
	SurvivalMinHigh          float64 `mapstructure:"survivalMinHigh"`
	HeroismMinLoyalty        float64 `mapstructure:"heroismMinLoyalty"`
	HeroismMinCompassion     float64 `mapstructure:"heroismMinCompassion"`
	ManipulatorMinSurvival   float64 `mapstructure:"manipulatorMinSurvival"`
	ManipulatorMaxCompassion float64 `mapstructure:"manipulatorMaxCompassion"`
	VirtuousMinCompassion    float64 `mapstructure:"virtuousMinCompassion"`
	DarkPathMaxLoyalty       float64 `mapstructure:"darkPathMaxLoyalty"`
	DarkPathMaxCompassion    float64 `mapstructure:"darkPathMaxCompassion"`
	RuleBreakerMaxLoyalty    float64 `mapstructure:"ruleBreakerMaxLoyalty"`
	RuleBreakerMinSurvival   float64 `mapstructure:"ruleBreakerMinSurvival"`
	ConformistBandLow        float64 `mapstructure:"conformistBandLow"`
	ConformistBandHigh       float64 `mapstructure:"conformistBandHigh"`

	ReturningMinGap   time.Duration `mapstructure:"returningMinGap"`
	ReturningMaxSince time.Duration `mapstructure:"returningMaxSince"`
}

// RetentionConfig 选择八卦的留存策略。
type RetentionConfig struct {
	// Policy 为 "prune"（追加后裁剪）或 "replace"（清空后整体替换）
	Policy     string `mapstructure:"policy"`
	MaxItems   int    `mapstructure:"maxItems"`
	BatchLimit int    `mapstructure:"batchLimit"`
	Shuffle    bool   `mapstructure:"shuffle"`
}

// ScheduleConfig 控制后台定时生成。
type ScheduleConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// setDefaults 为所有配置项注册默认值，使得没有配置文件时也能启动
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.rateLimit.window", time.Hour)
	v.SetDefault("server.rateLimit.authMax", 30)
	v.SetDefault("server.rateLimit.generateMax", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "chronicles.db")
	v.SetDefault("database.redis.enabled", false)
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", 7*24*time.Hour)

	v.SetDefault("gossip.minTotalChoices", 6)
	v.SetDefault("gossip.workers", 4)
	v.SetDefault("gossip.templatesPath", "")
	v.SetDefault("gossip.fallbackSignals", []string{"quietSeason", "societyWhispers"})
	v.SetDefault("gossip.aliases.slot1", []string{"loyalty", "duty", "honor", "statName1"})
	v.SetDefault("gossip.aliases.slot2", []string{"compassion", "humanity", "morality", "statName2"})
	v.SetDefault("gossip.aliases.slot3", []string{"survival", "selfInterest", "cunning", "statName3"})

	v.SetDefault("gossip.rules.newPlayerMaxChoices", 10)
	v.SetDefault("gossip.rules.activePlayerMinChoices", 100)
	v.SetDefault("gossip.rules.achievementMinEndings", 5)
	v.SetDefault("gossip.rules.bingeMinFinished", 3)
	v.SetDefault("gossip.rules.speedRunnerMinChoices", 51)
	v.SetDefault("gossip.rules.speedRunnerMaxFinished", 1)
	v.SetDefault("gossip.rules.indecisiveMinStarted", 6)
	v.SetDefault("gossip.rules.indecisiveMaxFinished", 1)
	v.SetDefault("gossip.rules.strangerMinStarted", 3)
	v.SetDefault("gossip.rules.strangerMinChoices", 20)
	v.SetDefault("gossip.rules.traitMinChoices", 11)
	v.SetDefault("gossip.rules.traitMinSamples", 3)
	v.SetDefault("gossip.rules.betrayalMaxLoyalty", 30.0)
	v.SetDefault("gossip.rules.compassionMaxLow", 25.0)
	v.SetDefault("gossip.rules.survivalMinHigh", 70.0)
	v.SetDefault("gossip.rules.heroismMinLoyalty", 70.0)
	v.SetDefault("gossip.rules.heroismMinCompassion", 70.0)
	v.SetDefault("gossip.rules.manipulatorMinSurvival", 65.0)
	v.SetDefault("gossip.rules.manipulatorMaxCompassion", 40.0)
	v.SetDefault("gossip.rules.virtuousMinCompassion", 75.0)
	v.SetDefault("gossip.rules.darkPathMaxLoyalty", 35.0)
	v.SetDefault("gossip.rules.darkPathMaxCompassion", 35.0)
	v.SetDefault("gossip.rules.ruleBreakerMaxLoyalty", 40.0)
	v.SetDefault("gossip.rules.ruleBreakerMinSurvival", 60.0)
	v.SetDefault("gossip.rules.conformistBandLow", 40.0)
	v.SetDefault("gossip.rules.conformistBandHigh", 60.0)
	v.SetDefault("gossip.rules.returningMinGap", 30*24*time.Hour)
	v.SetDefault("gossip.rules.returningMaxSince", 90*24*time.Hour)

	v.SetDefault("gossip.retention.policy", "prune")
	v.SetDefault("gossip.retention.maxItems", 50)
	v.SetDefault("gossip.retention.batchLimit", 10)
	v.SetDefault("gossip.retention.shuffle", true)

	v.SetDefault("gossip.schedule.enabled", false)
	v.SetDefault("gossip.schedule.interval", 24*time.Hour)

	v.SetDefault("gossip.listDefaultLimit", 20)
	v.SetDefault("gossip.listMaxLimit", 100)
	v.SetDefault("gossip.cacheTTL", time.Minute)
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// 1. 设置配置文件名和类型
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 2. 添加配置文件搜索路径
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 3. 允许通过环境变量覆盖配置，例如 AUTH_JWTSECRET=xxx
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. 读取配置文件，找不到文件时使用默认值
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// 5. 将配置反序列化到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	Cfg = &cfg
	return Cfg, nil
}

// Defaults 返回只包含默认值的配置，不读取配置文件和环境变量，也不修改 Cfg。
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
