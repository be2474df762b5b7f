package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/stockcast-backend/internal/forecast"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Forecast     ForecastConfig
	Cache        CacheConfig
	Worker       WorkerConfig
	RateLimit    RateLimitConfig
	Retention    RetentionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !(cfg.Forecast.TrendWeight > 0) {
		return nil, fmt.Errorf("%s must be positive, set %s to drop the trend", EnvForecastTrendWeight, EnvForecastDisableTrend)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = defaultSQLiteDSN
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKCAST_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKCAST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKCAST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKCAST_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"STOCKCAST_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKCAST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKCAST_DB_DSN"`
	Driver string `envconfig:"STOCKCAST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKCAST_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKCAST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKCAST_DB_USER"`
	LegacyPassword string `envconfig:"STOCKCAST_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKCAST_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKCAST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKCAST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKCAST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKCAST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKCAST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKCAST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKCAST_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKCAST_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKCAST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKCAST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKCAST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKCAST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKCAST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKCAST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOCKCAST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOCKCAST_AUTO_MIGRATE" default:"false"`
}

// ForecastConfig tunes the demand engine and the service around it.
type ForecastConfig struct {
	WindowSize     int     `envconfig:"STOCKCAST_FORECAST_WINDOW_SIZE" default:"30"`
	TrendWeight    float64 `envconfig:"STOCKCAST_FORECAST_TREND_WEIGHT" default:"0.3"`
	DisableTrend   bool    `envconfig:"STOCKCAST_FORECAST_DISABLE_TREND" default:"false"`
	MinHistoryDays int     `envconfig:"STOCKCAST_FORECAST_MIN_HISTORY_DAYS" default:"14"`
	LookbackDays   int     `envconfig:"STOCKCAST_FORECAST_LOOKBACK_DAYS" default:"365"`
	HorizonDays    int     `envconfig:"STOCKCAST_FORECAST_HORIZON_DAYS" default:"30"`
	BacktestWindow int     `envconfig:"STOCKCAST_FORECAST_BACKTEST_WINDOW" default:"30"`
}

// EngineConfig returns the engine settings; out-of-range values are defaulted by
// the engine itself.
func (f ForecastConfig) EngineConfig() forecast.Config {
	return forecast.Config{
		WindowSize:     f.WindowSize,
		TrendWeight:    f.TrendWeight,
		MinHistoryDays: f.MinHistoryDays,
		DisableTrend:   f.DisableTrend,
	}
}

type CacheConfig struct {
	SummaryTTL time.Duration `envconfig:"STOCKCAST_CACHE_SUMMARY_TTL" default:"1h"`
	LocalSize  int           `envconfig:"STOCKCAST_CACHE_LOCAL_SIZE" default:"1024"`
	LocalTTL   time.Duration `envconfig:"STOCKCAST_CACHE_LOCAL_TTL" default:"5m"`

	RedisBreakerFailures uint32        `envconfig:"STOCKCAST_CACHE_REDIS_BREAKER_FAILURES" default:"5"`
	RedisBreakerCooldown time.Duration `envconfig:"STOCKCAST_CACHE_REDIS_BREAKER_COOLDOWN" default:"30s"`
}

type WorkerConfig struct {
	RefreshInterval    time.Duration `envconfig:"STOCKCAST_WORKER_REFRESH_INTERVAL" default:"1h"`
	Concurrency        int           `envconfig:"STOCKCAST_WORKER_CONCURRENCY" default:"8"`
	ActiveLookbackDays int           `envconfig:"STOCKCAST_WORKER_ACTIVE_LOOKBACK_DAYS" default:"30"`
	RefreshRate        float64       `envconfig:"STOCKCAST_WORKER_REFRESH_RATE" default:"50"`
}

type RateLimitConfig struct {
	Window    time.Duration `envconfig:"STOCKCAST_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit   int           `envconfig:"STOCKCAST_RATE_LIMIT_IP_LIMIT" default:"120"`
	ShopLimit int           `envconfig:"STOCKCAST_RATE_LIMIT_SHOP_LIMIT" default:"600"`
}

type RetentionConfig struct {
	SalesDays int `envconfig:"STOCKCAST_RETENTION_SALES_DAYS" default:"730"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
