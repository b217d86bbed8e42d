package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaicmedia/media-service/internal/config"
)

type fakeCounter struct {
	count int
	err   error
	calls int
}

func (f *fakeCounter) CountUploadsByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	f.calls++
	return f.count, f.err
}

func testConfig() *config.Policy {
	return &config.Policy{
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "video/mp4"},
		RoleMaxSizes: map[string]int64{
			"student":  50 * 1024 * 1024,
			"verified": 100 * 1024 * 1024,
		},
		RoleDailyLimits: map[string]int{
			"student":  3,
			"verified": 20,
		},
		DefaultMaxSize:    10 * 1024 * 1024,
		DefaultDailyLimit: 5,
	}
}

func TestMaxSizeForRole_FallbackChain(t *testing.T) {
	engine := NewEngine(testConfig(), &fakeCounter{})

	// Explicit entry
	if got := engine.MaxSizeForRole("student"); got != 50*1024*1024 {
		t.Fatalf("Expected student ceiling 50MB, got %d", got)
	}

	// No entry falls back to verified
	if got := engine.MaxSizeForRole("organizer"); got != 100*1024*1024 {
		t.Fatalf("Expected verified fallback 100MB, got %d", got)
	}

	// Without a verified entry, falls back to the global default
	cfg := testConfig()
	delete(cfg.RoleMaxSizes, "verified")
	engine = NewEngine(cfg, &fakeCounter{})
	if got := engine.MaxSizeForRole("organizer"); got != 10*1024*1024 {
		t.Fatalf("Expected global fallback 10MB, got %d", got)
	}
}

func TestMaxSizeForRole_RolePrefixStripped(t *testing.T) {
	engine := NewEngine(testConfig(), &fakeCounter{})

	for _, role := range []string{"ROLE_STUDENT", "role_student", "Student", "STUDENT"} {
		if got := engine.MaxSizeForRole(role); got != 50*1024*1024 {
			t.Fatalf("Expected role %q to resolve student ceiling, got %d", role, got)
		}
	}
}

func TestDailyLimitForRole_FallbackChain(t *testing.T) {
	engine := NewEngine(testConfig(), &fakeCounter{})

	if got := engine.DailyLimitForRole("student"); got != 3 {
		t.Fatalf("Expected student limit 3, got %d", got)
	}
	if got := engine.DailyLimitForRole("organizer"); got != 20 {
		t.Fatalf("Expected verified fallback 20, got %d", got)
	}

	cfg := testConfig()
	delete(cfg.RoleDailyLimits, "verified")
	engine = NewEngine(cfg, &fakeCounter{})
	if got := engine.DailyLimitForRole("organizer"); got != 5 {
		t.Fatalf("Expected global fallback 5, got %d", got)
	}
}

func TestValidateContentType(t *testing.T) {
	engine := NewEngine(testConfig(), &fakeCounter{})

	if err := engine.ValidateContentType("image/jpeg"); err != nil {
		t.Fatalf("Unexpected error for allowed type: %v", err)
	}

	err := engine.ValidateContentType("application/x-msdownload")
	if !errors.Is(err, ErrUnsupportedContentType) {
		t.Fatalf("Expected ErrUnsupportedContentType, got %v", err)
	}
}

func TestEnforceDailyLimit_AtLimit(t *testing.T) {
	counter := &fakeCounter{count: 3}
	engine := NewEngine(testConfig(), counter)

	err := engine.EnforceDailyLimit(context.Background(), "user-1", "student")

	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("Expected QuotaExceededError, got %v", err)
	}
	if quotaErr.Limit != 3 || quotaErr.CurrentCount != 3 || quotaErr.Role != "student" {
		t.Fatalf("Unexpected rejection detail: %+v", quotaErr)
	}
}

func TestEnforceDailyLimit_UnderLimit(t *testing.T) {
	counter := &fakeCounter{count: 2}
	engine := NewEngine(testConfig(), counter)

	if err := engine.EnforceDailyLimit(context.Background(), "user-1", "student"); err != nil {
		t.Fatalf("Unexpected error under the limit: %v", err)
	}
	if counter.calls != 1 {
		t.Fatalf("Expected one count query, got %d", counter.calls)
	}
}

func TestEnforceDailyLimit_CounterFailure(t *testing.T) {
	counter := &fakeCounter{err: errors.New("db down")}
	engine := NewEngine(testConfig(), counter)

	err := engine.EnforceDailyLimit(context.Background(), "user-1", "student")
	if err == nil {
		t.Fatal("Expected error when the counter fails")
	}

	var quotaErr *QuotaExceededError
	if errors.As(err, &quotaErr) {
		t.Fatal("A counter failure must not look like a quota rejection")
	}
}
