package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_HOST", "CORS_ORIGINS", "SESSION_TTL_MINUTES", "REDIS_ADDR", "AMQP_URL", "MOCK_COACH", "CONTENT_PATH"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, want localhost", cfg.DBHost)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"*"}) {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h", cfg.SessionTTL)
	}
	if cfg.RedisAddr != "" || cfg.AMQPURL != "" || cfg.ContentPath != "" {
		t.Errorf("optional backends should default to disabled: %+v", cfg)
	}
	if cfg.MockCoach {
		t.Error("MockCoach should default to false")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SESSION_TTL_MINUTES", "15")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MOCK_COACH", "yes")

	cfg := FromEnv()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.SessionTTL != 15*time.Minute {
		t.Errorf("SessionTTL = %v, want 15m", cfg.SessionTTL)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
	if !cfg.MockCoach {
		t.Error("MockCoach = false, want true")
	}
}

func TestFromEnv_BadIntFallsBack(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "soon")
	if got := FromEnv().SessionTTL; got != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want fallback 2h", got)
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5433", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "require"}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
