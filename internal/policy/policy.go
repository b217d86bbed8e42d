// Package policy resolves per-role upload ceilings and enforces the
// content-type allow-list and the daily upload quota.
package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mosaicmedia/media-service/internal/config"
)

// VerifiedRole is the config entry that doubles as the fallback for roles
// with no explicit ceiling of their own.
const VerifiedRole = "verified"

const rolePrefix = "role_"

// UploadCounter counts a user's persisted uploads since a point in time.
type UploadCounter interface {
	CountUploadsByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
}

type Engine struct {
	cfg     *config.Policy
	counter UploadCounter
}

// NewEngine creates a policy engine over the immutable policy config.
func NewEngine(cfg *config.Policy, counter UploadCounter) *Engine {
	return &Engine{
		cfg:     cfg,
		counter: counter,
	}
}

// normalizeRole strips the conventional ROLE_ prefix and lowercases the
// remainder so config keys match regardless of how the token spells it.
func normalizeRole(role string) string {
	if len(role) >= len(rolePrefix) && strings.EqualFold(role[:len(rolePrefix)], rolePrefix) {
		role = role[len(rolePrefix):]
	}
	return strings.ToLower(role)
}

// MaxSizeForRole resolves the per-upload byte ceiling for a role through
// the role -> verified -> global fallback chain. It never fails.
func (e *Engine) MaxSizeForRole(role string) int64 {
	if size, ok := e.cfg.RoleMaxSizes[normalizeRole(role)]; ok {
		return size
	}
	if size, ok := e.cfg.RoleMaxSizes[VerifiedRole]; ok {
		return size
	}
	return e.cfg.DefaultMaxSize
}

// DailyLimitForRole resolves the daily upload count ceiling for a role
// through the same fallback chain as MaxSizeForRole.
func (e *Engine) DailyLimitForRole(role string) int {
	if limit, ok := e.cfg.RoleDailyLimits[normalizeRole(role)]; ok {
		return limit
	}
	if limit, ok := e.cfg.RoleDailyLimits[VerifiedRole]; ok {
		return limit
	}
	return e.cfg.DefaultDailyLimit
}

// ValidateContentType checks the MIME type against the allow-list.
func (e *Engine) ValidateContentType(contentType string) error {
	for _, allowed := range e.cfg.AllowedMimeTypes {
		if contentType == allowed {
			return nil
		}
	}
	return ErrUnsupportedContentType
}

// EnforceDailyLimit counts the user's uploads created since local-day start
// and rejects once the role's resolved limit is reached. The count is
// recomputed from existing records rather than incremented, so two
// concurrent completions near the boundary can both be admitted; that
// approximation is accepted.
func (e *Engine) EnforceDailyLimit(ctx context.Context, userID, role string) error {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	count, err := e.counter.CountUploadsByUserSince(ctx, userID, dayStart)
	if err != nil {
		return fmt.Errorf("failed to count today's uploads: %w", err)
	}

	limit := e.DailyLimitForRole(role)
	if count >= limit {
		return &QuotaExceededError{
			Limit:        limit,
			CurrentCount: count,
			Role:         role,
		}
	}

	return nil
}
