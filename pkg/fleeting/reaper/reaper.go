// Package reaper physically removes posts once their deadline has passed.
// Read paths already hide expired posts, so the sweep only reclaims storage.
package reaper

import (
	"context"
	"time"

	"github.com/fleetingblog/fleeting/pkg/fleeting/logging"
	"github.com/fleetingblog/fleeting/pkg/fleeting/models"
	"github.com/fleetingblog/fleeting/pkg/fleeting/posts"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultInterval is the gap between sweeps when none is configured
const DefaultInterval = 15 * time.Minute

// Reaper deletes expired posts and stale token revocations
type Reaper struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a reaper over db
func New(db *gorm.DB) *Reaper {
	return &Reaper{
		db:     db,
		logger: logging.Component("reaper"),
	}
}

// Reap permanently deletes every post whose expiry is at or before now,
// soft-deleted rows included. Each post is purged in its own transaction; a
// failure is logged and the sweep moves on. It returns the number purged.
func (r *Reaper) Reap(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()

	var ids []uint
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Post{}).
		Where("expires_at <= ?", now).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if err := posts.Purge(ctx, r.db, id); err != nil {
			r.logger.Error().Err(err).Uint("post_id", id).Msg("Failed to purge expired post")
			continue
		}
		purged++
	}

	if pruned, err := r.pruneRevokedTokens(ctx, now); err != nil {
		r.logger.Error().Err(err).Msg("Failed to prune revoked tokens")
	} else if pruned > 0 {
		r.logger.Debug().Int64("tokens", pruned).Msg("Pruned revoked tokens")
	}

	if purged > 0 || len(ids) > 0 {
		r.logger.Info().Int("purged", purged).Int("eligible", len(ids)).Msg("Reaped expired posts")
	}
	return purged, nil
}

func (r *Reaper) pruneRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}

// Runner drives a Reaper on a fixed interval
type Runner struct {
	Reaper   *Reaper
	Interval time.Duration
	Now      func() time.Time
}

// NewRunner creates a runner sweeping every interval
func NewRunner(reaper *Reaper, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{Reaper: reaper, Interval: interval, Now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	r.Reaper.logger.Info().Dur("interval", r.Interval).Msg("Reaper started")

	r.sweep(ctx)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Reaper.logger.Info().Msg("Reaper stopped")
			return nil
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if _, err := r.Reaper.Reap(ctx, now()); err != nil && ctx.Err() == nil {
		r.Reaper.logger.Error().Err(err).Msg("Reap failed")
	}
}
