package exec

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/groupcache/singleflight"

	"futura.dev/lru"
	"futura.dev/values"
)

// Config describes how a Resolver picks the executor for a context
// key. The zero value is usable: every lookup falls through to the
// shared default pool.
type Config struct {
	// Default is the executor used when no context key maps to a
	// more specific one. If nil, a process-wide pool sized to
	// runtime.GOMAXPROCS(0) is lazily constructed and shared.
	Default Executor

	// KeyFor maps a caller-supplied context handle to the identity
	// its executor is cached under. Keys must be comparable. A nil
	// KeyFor, or a nil key, selects Default.
	KeyFor func(ctx any) any

	// ExecutorFor resolves the executor for a key produced by
	// KeyFor. Returning nil selects Default. It is called at most
	// once per cached key.
	ExecutorFor func(key any) Executor

	// CacheSize bounds the number of cached key/executor pairs.
	// Zero means 128.
	CacheSize int
}

// A Resolver picks, and caches, the executor that should run the
// asynchronous callbacks of a given calling context.
//
// Lookups for already-resolved keys are contention-free; only the
// first lookup of a key takes the resolver lock, and concurrent first
// lookups of the same key run ExecutorFor once.
type Resolver struct {
	cfg atomic.Pointer[Config]

	fast  sync.Map // map[any]Executor; read-through front of cache
	group singleflight.Group

	mu    sync.Mutex
	cache *lru.Cache[any, Executor]
}

// NewResolver returns a Resolver using cfg.
func NewResolver(cfg Config) *Resolver {
	values.MaybeSet(&cfg.CacheSize, 128)
	r := &Resolver{}
	r.cfg.Store(&cfg)
	return r
}

// Config returns a copy of the current configuration.
func (r *Resolver) Config() Config { return *r.cfg.Load() }

// SetConfig replaces the resolver configuration and drops every cached
// executor. It is meant to be called once during process startup, but
// is safe at any time.
func (r *Resolver) SetConfig(cfg Config) {
	values.MaybeSet(&cfg.CacheSize, 128)
	r.cfg.Store(&cfg)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache != nil {
		r.cache.Clear()
		r.cache = nil
	}
}

// For returns the executor that should run asynchronous callbacks for
// ctx. A nil ctx, or any resolution dead end, yields the configured
// (or shared) default.
func (r *Resolver) For(ctx any) Executor {
	cfg := r.cfg.Load()
	if ctx == nil || cfg.KeyFor == nil || cfg.ExecutorFor == nil {
		return r.fallback(cfg)
	}
	key := cfg.KeyFor(ctx)
	if key == nil {
		return r.fallback(cfg)
	}
	if e, ok := r.fast.Load(key); ok {
		return e.(Executor)
	}

	// TODO: use a generic singleflight to avoid building a string key
	e, err := r.group.Do(fmt.Sprint(key), func() (any, error) {
		return r.resolveSlow(cfg, key), nil
	})
	if err != nil || e == nil {
		return r.fallback(cfg)
	}
	return e.(Executor)
}

func (r *Resolver) resolveSlow(cfg *Config, key any) Executor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		r.cache = lru.New[any, Executor](cfg.CacheSize)
		r.cache.OnEvicted = func(key any, _ Executor) {
			r.fast.Delete(key)
		}
	}
	if e, ok := r.cache.Get(key); ok {
		return e
	}
	e := cfg.ExecutorFor(key)
	if e == nil {
		return nil
	}
	r.cache.Add(key, e)
	r.fast.Store(key, e)
	return e
}

func (r *Resolver) fallback(cfg *Config) Executor {
	if cfg.Default != nil {
		return cfg.Default
	}
	return defaultPool()
}

var defaultResolver atomic.Pointer[Resolver]

// Default returns the process-wide resolver used by futura.dev/future
// for asynchronous callbacks that do not name an executor explicitly.
func Default() *Resolver {
	if r := defaultResolver.Load(); r != nil {
		return r
	}
	r := NewResolver(Config{})
	if defaultResolver.CompareAndSwap(nil, r) {
		return r
	}
	return defaultResolver.Load()
}

// SetDefault replaces the process-wide resolver. Call it during
// startup, before futures begin dispatching asynchronous callbacks.
func SetDefault(r *Resolver) { defaultResolver.Store(r) }
