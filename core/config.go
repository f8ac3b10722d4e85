package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // memory | postgres
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string // empty: in-memory key-value store
		Password string
		DB       int
	}

	KafkaConfig struct {
		Brokers        []string // empty: events are not published
		Topic          string
		PublishTimeout time.Duration
	}

	EmailConfig struct {
		Backend          string // console | sendgrid | smtp
		DefaultFromName  string
		DefaultFromEmail string
		SendgridAPIKey   string
		SMTPHost         string
		SMTPPort         int
		SMTPUser         string
		SMTPPassword     string
	}

	AdviceConfig struct {
		APIKey    string
		Model     string
		BaseURL   string
		Timeout   time.Duration
		RetryMax  int
		CacheSize int
		CacheTTL  time.Duration
	}

	AccessConfig struct {
		ProfileDeletePolicy string // reject | cascade
	}

	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Kafka    KafkaConfig
		Email    EmailConfig
		Advice   AdviceConfig
		Access   AccessConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.Email.DefaultFromName, Address: c.Email.DefaultFromEmail}
}

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the app configuration from defaults, the `config/.env.<env>` file (if any)
// and the environment. Environment variables are prefixed with the upper-cased env name,
// and nested keys are joined with "_" (e.g. DEV_DATABASE_ENGINE).
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers:        v.GetStringSlice("kafka.brokers"),
			Topic:          v.GetString("kafka.topic"),
			PublishTimeout: v.GetDuration("kafka.publishTimeout"),
		},
		Email: EmailConfig{
			Backend:          v.GetString("email.backend"),
			DefaultFromName:  v.GetString("email.defaultFromName"),
			DefaultFromEmail: v.GetString("email.defaultFromEmail"),
			SendgridAPIKey:   v.GetString("email.sendgridApiKey"),
			SMTPHost:         v.GetString("email.smtpHost"),
			SMTPPort:         v.GetInt("email.smtpPort"),
			SMTPUser:         v.GetString("email.smtpUser"),
			SMTPPassword:     v.GetString("email.smtpPassword"),
		},
		Advice: AdviceConfig{
			APIKey:    v.GetString("advice.apiKey"),
			Model:     v.GetString("advice.model"),
			BaseURL:   v.GetString("advice.baseURL"),
			Timeout:   v.GetDuration("advice.timeout"),
			RetryMax:  v.GetInt("advice.retryMax"),
			CacheSize: v.GetInt("advice.cacheSize"),
			CacheTTL:  v.GetDuration("advice.cacheTTL"),
		},
		Access: AccessConfig{
			ProfileDeletePolicy: v.GetString("access.profileDeletePolicy"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("appName", "EduConnect")
	v.SetDefault("secretKey", "w6z!k3@q-r8+0b$x1m)2nf&t^h9(d_e7p#4yj%c5u*sl=ga")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 15*time.Minute)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "educonnect")
	v.SetDefault("database.user", "educonnect")

	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "educonnect.documents")
	v.SetDefault("kafka.publishTimeout", 2*time.Second)

	v.SetDefault("email.backend", "console")
	v.SetDefault("email.defaultFromName", "EduConnect")
	v.SetDefault("email.defaultFromEmail", "noreply@localhost")
	v.SetDefault("email.smtpPort", 587)

	v.SetDefault("advice.model", "gemini-2.0-flash")
	v.SetDefault("advice.baseURL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("advice.timeout", 10*time.Second)
	v.SetDefault("advice.retryMax", 2)
	v.SetDefault("advice.cacheSize", 256)
	v.SetDefault("advice.cacheTTL", 6*time.Hour)

	v.SetDefault("access.profileDeletePolicy", "reject")
}
