package icon

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Cache is the memoization seam the service resolves through.
type Cache interface {
	GetOrResolve(ctx context.Context, path string, force bool) IconResult
	Clear()
}

// Update carries one completed resolution back toward the UI thread.
// Delivery order is completion order, not submission order.
type Update struct {
	Gen  uint64
	Path string
	Icon IconResult
}

type task struct {
	gen   uint64
	path  string
	force bool
}

// Service is the asynchronous façade over the pipeline: a bounded
// worker pool resolves entries off the UI thread and delivers results
// on a channel. Each drawer-open bumps a generation; results belonging
// to a stale generation are discarded silently.
type Service struct {
	cache Cache
	log   zerolog.Logger

	gen     atomic.Uint64
	tasks   chan task
	updates chan Update

	closeOnce sync.Once
}

// NewService starts a service with the given pool size; zero or
// negative means one worker per processor, with a floor of two.
func NewService(cache Cache, workers int, logger zerolog.Logger) *Service {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 2 {
		workers = 2
	}

	s := &Service{
		cache:   cache,
		log:     logger,
		tasks:   make(chan task, 256),
		updates: make(chan Update, 256),
	}
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

// OpenDrawer starts resolving a fresh listing and returns its
// generation. Work queued for earlier generations becomes stale and is
// dropped by the workers.
func (s *Service) OpenDrawer(paths []string) uint64 {
	gen := s.gen.Add(1)
	for _, p := range paths {
		s.submit(task{gen: gen, path: p})
	}
	return gen
}

// Refresh re-resolves a single path bypassing the fingerprint check,
// within the current generation.
func (s *Service) Refresh(path string) {
	s.submit(task{gen: s.gen.Load(), path: path, force: true})
}

// Updates returns the channel completed resolutions arrive on.
func (s *Service) Updates() <-chan Update {
	return s.updates
}

// Generation returns the currently active generation.
func (s *Service) Generation() uint64 {
	return s.gen.Load()
}

// Invalidate clears the cache and bumps the generation so in-flight
// results for the old listing are discarded. Called on drawer reload.
func (s *Service) Invalidate() {
	s.gen.Add(1)
	s.cache.Clear()
}

// Close stops the worker pool. Pending tasks are abandoned.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.tasks)
	})
}

func (s *Service) submit(t task) {
	select {
	case s.tasks <- t:
	default:
		// queue full; drop rather than block the caller
		s.log.Debug().Str("path", t.path).Msg("Task queue full, dropping resolution")
	}
}

func (s *Service) worker() {
	for t := range s.tasks {
		if t.gen != s.gen.Load() {
			continue // stale before any work
		}
		res := s.cache.GetOrResolve(context.Background(), t.path, t.force)
		if t.gen != s.gen.Load() {
			continue // drawer changed while resolving
		}
		select {
		case s.updates <- Update{Gen: t.gen, Path: t.path, Icon: res}:
		default:
			s.log.Debug().Str("path", t.path).Msg("Update channel full, dropping result")
		}
	}
}
