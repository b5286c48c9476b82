package riot

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Riot development key budget.
const (
	ShortWindowLimit    = 20
	ShortWindowDuration = time.Second
	LongWindowLimit     = 100
	LongWindowDuration  = 120 * time.Second

	// added to every computed wait so the oldest entry has surely expired
	limiterMargin = 50 * time.Millisecond
)

// window is an ordered sequence of request timestamps.
type window struct {
	limit    int
	duration time.Duration
	stamps   []time.Time
}

func (w *window) evict(now time.Time) {
	i := 0
	for i < len(w.stamps) && now.Sub(w.stamps[i]) >= w.duration {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

// wait returns how long until one more request fits, or zero.
func (w *window) wait(now time.Time) time.Duration {
	if len(w.stamps) < w.limit {
		return 0
	}
	return w.stamps[0].Add(w.duration).Sub(now) + limiterMargin
}

// RateLimiter enforces the short and long sliding windows shared by every
// request the process makes to the Riot API.
type RateLimiter struct {
	mu    sync.Mutex
	short window
	long  window

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter with the development key budget.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		short: window{limit: ShortWindowLimit, duration: ShortWindowDuration},
		long:  window{limit: LongWindowLimit, duration: LongWindowDuration},
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Acquire blocks until one more request fits into both windows and records it.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.short.evict(now)
		l.long.evict(now)

		wait := max(l.short.wait(now), l.long.wait(now))
		if wait <= 0 {
			l.short.stamps = append(l.short.stamps, now)
			l.long.stamps = append(l.long.stamps, now)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if wait > time.Second {
			slog.Debug("Rate limit window full, waiting", "wait", wait)
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// LimiterStats is a snapshot of window occupancy.
type LimiterStats struct {
	Short      int `json:"short"`
	ShortLimit int `json:"shortLimit"`
	Long       int `json:"long"`
	LongLimit  int `json:"longLimit"`
}

// Stats reports how many requests each window currently holds.
func (l *RateLimiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.short.evict(now)
	l.long.evict(now)
	return LimiterStats{
		Short:      len(l.short.stamps),
		ShortLimit: l.short.limit,
		Long:       len(l.long.stamps),
		LongLimit:  l.long.limit,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
