package server

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"taskhub/internal/domain/errors"
)

type Config struct {
	Addr            string
	Port            int
	DBStr           string
	MigratePath     string
	JWTSecret       string
	JWTTTLDays      int
	CORSOrigin      string
	RateLimitWindow time.Duration
	RateLimitMax    int
}

const (
	defaultAddr        = "0.0.0.0"
	defaultPort        = 8080
	defaultDBStr       = "postgresql://shouldbeinVaultuser:shouldbeinVaultpassword@db:5432/taskhub?sslmode=disable"
	defaultMigratePath = "migrations"
	defaultJWTSecret   = "shouldbeinVaultsecret"
	defaultJWTTTLDays  = 7
	defaultCORSOrigin  = "http://localhost:3000"
	defaultRateWindow  = 15 * time.Minute
	defaultRateMax     = 100
)

var (
	addr        = flag.String("addr", defaultAddr, "server bind address")
	port        = flag.Int("port", defaultPort, "server port")
	dbstr       = flag.String("dbstr", defaultDBStr, "database connection string")
	dbDsn       = flag.String("dbdsn", "", "database DSN (takes precedence over dbstr)")
	migratePath = flag.String("migratepath", defaultMigratePath, "path to the migrations directory")
	jwtSecret   = flag.String("jwtsecret", "", "token signing secret (overrides JWT_SECRET)")
	configFile  = flag.String("c", "", "path to a JSON configuration file")
	parsed      = false
)

// TokenTTL is the validity window for issued bearer tokens.
func (c *Config) TokenTTL() time.Duration {
	days := c.JWTTTLDays
	if days <= 0 {
		days = defaultJWTTTLDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ReadConfig layers defaults, an optional JSON file, environment variables,
// and command-line flags, in that order of precedence.
func ReadConfig() *Config {
	if !parsed {
		flag.Parse()
		parsed = true
	}

	cfg := defaultConfig()

	if jsonConfig := loadJSONConfig(); jsonConfig != nil {
		cfg = jsonConfig
	}

	cfg = applyEnvOverrides(cfg)
	cfg = applyFlagOverrides(cfg)

	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Addr:            defaultAddr,
		Port:            defaultPort,
		DBStr:           defaultDBStr,
		MigratePath:     defaultMigratePath,
		JWTSecret:       defaultJWTSecret,
		JWTTTLDays:      defaultJWTTTLDays,
		CORSOrigin:      defaultCORSOrigin,
		RateLimitWindow: defaultRateWindow,
		RateLimitMax:    defaultRateMax,
	}
}

func loadJSONConfig() *Config {
	configPath := *configFile
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}

	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Printf("Warning: %s %s: %v\n", errors.ErrConfigFileRead.Error(), configPath, err)
		return nil
	}

	jsonConfig := defaultConfig()
	if err := json.Unmarshal(data, jsonConfig); err != nil {
		fmt.Printf("Warning: %s: %v\n", errors.ErrConfigParse.Error(), err)
		return nil
	}

	fmt.Printf("JSON configuration loaded from: %s\n", configPath)
	return jsonConfig
}

func applyEnvOverrides(cfg *Config) *Config {
	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err != nil {
			fmt.Printf("Warning: invalid PORT value: %s\n", port)
		} else if p < 1 || p > 65535 {
			fmt.Printf("Warning: PORT must be between 1 and 65535: %d\n", p)
		} else {
			cfg.Port = p
		}
	}
	if dbStr := os.Getenv("DB_STR"); dbStr != "" {
		cfg.DBStr = dbStr
	}
	if migratePath := os.Getenv("MIGRATE_PATH"); migratePath != "" {
		cfg.MigratePath = migratePath
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if days := os.Getenv("JWT_TTL_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err != nil || d < 1 {
			fmt.Printf("Warning: invalid JWT_TTL_DAYS value: %s\n", days)
		} else {
			cfg.JWTTTLDays = d
		}
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		cfg.CORSOrigin = origin
	}
	if windowMS := os.Getenv("RATE_LIMIT_WINDOW_MS"); windowMS != "" {
		if ms, err := strconv.Atoi(windowMS); err != nil || ms < 1 {
			fmt.Printf("Warning: invalid RATE_LIMIT_WINDOW_MS value: %s\n", windowMS)
		} else {
			cfg.RateLimitWindow = time.Duration(ms) * time.Millisecond
		}
	}
	if maxReq := os.Getenv("RATE_LIMIT_MAX_REQUESTS"); maxReq != "" {
		if m, err := strconv.Atoi(maxReq); err != nil || m < 1 {
			fmt.Printf("Warning: invalid RATE_LIMIT_MAX_REQUESTS value: %s\n", maxReq)
		} else {
			cfg.RateLimitMax = m
		}
	}

	if cfg.DBStr == defaultDBStr {
		dbUser := os.Getenv("DB_USER")
		dbPassword := os.Getenv("DB_PASSWORD")
		dbName := os.Getenv("DB_NAME")
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		if dbUser != "" && dbPassword != "" && dbName != "" && dbHost != "" && dbPort != "" {
			cfg.DBStr = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
		}
	}

	return cfg
}

func applyFlagOverrides(cfg *Config) *Config {
	if *addr != defaultAddr {
		cfg.Addr = *addr
	}
	if *port != defaultPort {
		cfg.Port = *port
	}
	if *migratePath != defaultMigratePath {
		cfg.MigratePath = *migratePath
	}
	if *jwtSecret != "" {
		cfg.JWTSecret = *jwtSecret
	}

	if *dbDsn != "" {
		cfg.DBStr = *dbDsn
	} else if *dbstr != defaultDBStr {
		cfg.DBStr = *dbstr
	}

	return cfg
}
