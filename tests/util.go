package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/educonnect/assets"
	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/permission"
	"github.com/trezcool/educonnect/core/profile"
	"github.com/trezcool/educonnect/core/user"
)

// Config returns the configuration used by tests.
func Config() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "EduConnect",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        15 * time.Minute,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
			DisableReqLogs:            true,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		Email: core.EmailConfig{
			Backend:          "console",
			DefaultFromName:  "EduConnect",
			DefaultFromEmail: "noreply@educonnect.test",
		},
		Advice: core.AdviceConfig{
			Timeout:   time.Second,
			CacheSize: 16,
			CacheTTL:  time.Minute,
		},
		Access: core.AccessConfig{ProfileDeletePolicy: "reject"},
	}
}

// EmailTemplates parses the embedded email templates in strict mode.
func EmailTemplates(t *testing.T) *core.EmailTemplates {
	t.Helper()
	tmpls, err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplates, "http://localhost:3000", true)
	if err != nil {
		t.Fatalf("EmailTemplates(): %v", err)
	}
	return tmpls
}

// Logger records the logged messages.
type Logger struct {
	mu       sync.Mutex
	messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s", level, msg))
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

// Messages returns the logged messages, prefixed by their level.
func (l *Logger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func CreateProfile(t *testing.T, repo profile.Repository, name, sector string, perms ...permission.Permission) profile.Profile {
	t.Helper()
	now := time.Now().UTC()
	p, err := repo.CreateProfile(context.Background(), profile.Profile{
		Name:        name,
		Sector:      sector,
		Permissions: permission.Normalize(perms),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateProfile(): %v", err)
	}
	return p
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role, profileID string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		ProfileID: profileID,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}
