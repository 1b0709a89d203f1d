package cache

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/containerd/errdefs"
	"github.com/hashicorp/go-multierror"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/tackhq/tackd/internal/classpath"
	"github.com/tackhq/tackd/internal/loader"
)

// Number of live contexts kept when [Options.MaxContexts] is not set.
const DefaultMaxContexts = 64

// Cache configuration.
type Options struct {
	MaxContexts int              // Upper bound on live contexts. Zero uses [DefaultMaxContexts].
	Now         func() time.Time // Clock used for idle tracking. Nil uses time.Now.
}

// Counters describing cache activity since creation.
type Stats struct {
	Live      int    // Contexts currently resolvable.
	Retiring  int    // Retired contexts still held by invocations.
	Hits      uint64 // Resolutions served by a live context.
	Misses    uint64 // Resolutions that had to wait for a load.
	Loads     uint64 // Entry points loaded.
	Evictions uint64 // Contexts retired for any reason.
}

// Registry of execution contexts keyed by build.
//
// The LRU is only touched with mu held, so its eviction callback also runs
// under mu.
type Cache struct {
	loader loader.Loader
	now    func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	live     *lru.Cache[loader.BuildID, *Context]
	retiring map[*Context]struct{}
	flights  map[string]*flight // Callers waiting on a load, by context ID.
	closing  []*Context // Retired and unreferenced, closed after mu is released.
	closed   bool
	stats    Stats
}

// Callers waiting on one load of a key. Guarded by the cache's mutex.
type flight struct {
	waiters int      // Registered callers that have not claimed the outcome.
	done    bool     // Outcome recorded.
	x       *Context // Loaded context, with one reference per waiter.
	err     error    // Load failure.
}

// Creates a cache that loads contexts with l.
func New(l loader.Loader, opts Options) *Cache {
	size := opts.MaxContexts
	if size <= 0 {
		size = DefaultMaxContexts
	}

	c := &Cache{
		loader:   l,
		now:      opts.Now,
		retiring: make(map[*Context]struct{}),
		flights:  make(map[string]*flight),
	}
	if c.now == nil {
		c.now = time.Now
	}

	// Only fails for a non-positive size.
	c.live, _ = lru.NewWithEvict(size, c.onEvict)

	return c
}

// Returns the acquired context for build, loading it if needed.
//
// A live context with an equal classpath is returned as is. A live context
// with a different classpath is retired and replaced. Callers resolving a
// key that is being loaded wait for that load and are handed the loaded
// context with a reference already taken, so it cannot be retired out from
// under them. If ctx is done first they stop waiting and get ctx's error
// while the load carries on for the others. The caller must release the
// returned context.
func (c *Cache) Resolve(ctx context.Context, build loader.BuildID, cp classpath.Spec) (*Context, error) {
	key := string(contextID(build, cp))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if x, ok := c.live.Get(build); ok {
		if x.cp.Equal(cp) {
			c.acquire(x)
			c.stats.Hits++
			c.mu.Unlock()
			return x, nil
		}
		slog.Debug("classpath changed, retiring context",
			"build", build,
			"context", x.id,
			"old", x.cp.String(),
			"new", cp.String(),
		)
		c.live.Remove(build)
	}
	c.stats.Misses++
	f := c.flights[key]
	if f == nil {
		f = &flight{}
		c.flights[key] = f
	}
	f.waiters++
	c.unlock()

	for {
		ch := c.group.DoChan(key, func() (any, error) {
			return c.load(context.WithoutCancel(ctx), key, build, cp)
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			c.abandon(key, f)
			return nil, ctx.Err()
		case res = <-ch:
		}

		c.mu.Lock()
		if f.done {
			x, err := f.x, f.err
			c.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return x, nil
		}
		if res.Err != nil {
			c.leave(key, f)
			c.mu.Unlock()
			return nil, res.Err
		}
		c.mu.Unlock()

		// Joined a load that settled before this caller registered; the next
		// round settles this caller's flight.
	}
}

// Loads and installs a context, then settles the flight of key. Runs at
// most once per key at a time.
func (c *Cache) load(ctx context.Context, key string, build loader.BuildID, cp classpath.Spec) (*Context, error) {
	c.mu.Lock()
	if x, ok := c.live.Peek(build); ok && x.cp.Equal(cp) {
		c.settle(key, x, nil)
		c.mu.Unlock()
		return x, nil
	}
	c.mu.Unlock()

	start := c.now()
	ep, err := c.construct(ctx, build, cp)
	if err != nil {
		slog.Debug("context load failed", "build", build, "classpath", cp.String(), "error", err)
		c.mu.Lock()
		c.settle(key, nil, err)
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.settle(key, nil, ErrClosed)
		c.mu.Unlock()
		ep.Close()
		return nil, ErrClosed
	}
	x := newContext(c, build, cp, ep)
	c.stats.Loads++

	// Add does not evict an existing entry for the key, so retire it first.
	c.live.Remove(build)
	c.live.Add(build, x)
	c.settle(key, x, nil)
	c.unlock()

	slog.Info("context loaded",
		"build", build,
		"classpath", cp.String(),
		"context", x.id,
		"duration", c.now().Sub(start),
	)

	return x, nil
}

// Runs the loader, turning a panic into [ErrLoaderPanic].
func (c *Cache) construct(ctx context.Context, build loader.BuildID, cp classpath.Spec) (ep loader.EntryPoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			ep, err = nil, fmt.Errorf("%w: %w: %v\n\n%s", ErrLoaderPanic, errdefs.ErrInternal, r, debug.Stack())
		}
	}()
	return c.loader.Load(ctx, cp, build)
}

// Hands the outcome of a load to every caller registered on key, taking one
// reference per caller. Called with mu held.
func (c *Cache) settle(key string, x *Context, err error) {
	f, ok := c.flights[key]
	if !ok {
		return
	}
	delete(c.flights, key)

	f.done, f.x, f.err = true, x, err
	if x != nil && f.waiters > 0 {
		x.refs += f.waiters
		x.lastUsed = c.now()
	}
}

// Unregisters a caller that stopped waiting, dropping the reference taken
// for it if its flight already settled.
func (c *Cache) abandon(key string, f *flight) {
	c.mu.Lock()
	if f.done {
		if f.x != nil {
			c.releaseLocked(f.x)
		}
	} else {
		c.leave(key, f)
	}
	c.unlock()
}

// Called with mu held.
func (c *Cache) leave(key string, f *flight) {
	f.waiters--
	if f.waiters == 0 && c.flights[key] == f {
		delete(c.flights, key)
	}
}

// Retires the live context of build. Reports whether there was one.
func (c *Cache) Invalidate(build loader.BuildID) bool {
	c.mu.Lock()
	ok := c.live.Remove(build)
	c.unlock()
	return ok
}

// Retires every context that has no holder and has not been used for longer
// than maxIdle. Returns the number of contexts retired.
func (c *Cache) EvictIdle(maxIdle time.Duration) int {
	c.mu.Lock()
	now := c.now()
	n := 0
	for _, build := range c.live.Keys() {
		x, ok := c.live.Peek(build)
		if !ok || x.refs > 0 || now.Sub(x.lastUsed) <= maxIdle {
			continue
		}
		c.live.Remove(build)
		n++
	}
	c.unlock()
	return n
}

// Returns the number of live contexts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live.Len()
}

// Returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Live = c.live.Len()
	s.Retiring = len(c.retiring)
	return s
}

// Retires every context and rejects further resolutions.
//
// Unreferenced contexts are closed before Close returns and their errors
// aggregated. Contexts still held close when released.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.live.Purge()
	pending := c.closing
	c.closing = nil
	c.mu.Unlock()

	var result *multierror.Error
	for _, x := range pending {
		if err := x.ep.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close context %s: %w", x.build, err))
		}
	}
	return result.ErrorOrNil()
}

// Eviction callback of the LRU. Called with mu held.
func (c *Cache) onEvict(build loader.BuildID, x *Context) {
	x.retired = true
	c.stats.Evictions++
	if x.refs == 0 {
		c.closing = append(c.closing, x)
	} else {
		c.retiring[x] = struct{}{}
	}
	slog.Debug("context retired", "build", build, "context", x.id, "refs", x.refs)
}

// Called with mu held.
func (c *Cache) acquire(x *Context) {
	x.refs++
	x.lastUsed = c.now()
}

func (c *Cache) release(x *Context) {
	c.mu.Lock()
	if x.refs == 0 {
		c.mu.Unlock()
		panic("cache: context released more often than acquired")
	}
	c.releaseLocked(x)
	c.unlock()
}

// Called with mu held.
func (c *Cache) releaseLocked(x *Context) {
	x.refs--
	x.lastUsed = c.now()
	if x.refs == 0 && x.retired {
		delete(c.retiring, x)
		c.closing = append(c.closing, x)
	}
}

// Releases mu, then closes the contexts retired while it was held.
func (c *Cache) unlock() {
	pending := c.closing
	c.closing = nil
	c.mu.Unlock()

	for _, x := range pending {
		if err := x.ep.Close(); err != nil {
			slog.Warn("failed to close context", "build", x.build, "context", x.id, "error", err)
		}
	}
}
