package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultPacing is the minimum gap between the end of one request to a
// provider and the start of the next.
const DefaultPacing = 2 * time.Second

// Pacer serializes calls per provider across every concurrent category: at
// most one request per provider is in flight, and the next one starts no
// sooner than the interval after the previous one completed. The zero
// interval disables pacing.
type Pacer struct {
	every time.Duration

	mu    sync.Mutex
	slots map[string]*providerSlot
}

type providerSlot struct {
	sem *semaphore.Weighted
	// lim is only touched by the slot holder.
	lim *rate.Limiter
}

// NewPacer creates a pacer with the given gap between requests to one
// provider.
func NewPacer(every time.Duration) *Pacer {
	return &Pacer{every: every, slots: make(map[string]*providerSlot)}
}

// Acquire blocks until provider is idle and the interval since its last
// request has passed, or ctx is done. The returned release must be called
// once the request completes. The first call to a provider never waits.
func (p *Pacer) Acquire(ctx context.Context, provider string) (release func(), err error) {
	if p == nil || p.every <= 0 {
		return func() {}, ctx.Err()
	}

	s := p.slot(provider)
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if err := s.lim.Wait(ctx); err != nil {
		s.sem.Release(1)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Restart the interval at completion.
			lim := rate.NewLimiter(rate.Every(p.every), 1)
			lim.AllowN(time.Now(), 1)
			s.lim = lim
			s.sem.Release(1)
		})
	}, nil
}

func (p *Pacer) slot(provider string) *providerSlot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[provider]
	if !ok {
		s = &providerSlot{
			sem: semaphore.NewWeighted(1),
			lim: rate.NewLimiter(rate.Every(p.every), 1),
		}
		p.slots[provider] = s
	}
	return s
}
