package http

import (
	"sync"
	"time"

	"github.com/assetnote/kitehttp/pkg/log"
	"github.com/hashicorp/go-multierror"
)

// Pool indexes idle sessions by their opaque host string. Each host has a FIFO queue, so the session released
// longest ago is handed out first. "a.com" and "a.com:80" are different hosts.
//
// While the pool holds sessions an eviction worker wakes every EvictionTick and drops sessions idle for
// longer than IdleExpiry. The worker exits by itself once the pool is empty and PoolGrace has passed since
// the last Acquire or Release, and is restarted by the next Release. Close stops it for good.
//
// All operations are safe for concurrent use. No lock is held across network I/O
type Pool struct {
	mu              sync.Mutex
	hosts           map[string][]*Session
	lastInteraction time.Time
	closed          bool
	stats           PoolStats

	// eviction worker state, nil when the worker is not running
	shutChan chan struct{}
	doneChan chan struct{}

	config *Config
	now    func() time.Time
}

func NewPool(config *Config) *Pool {
	if config == nil {
		config = NewDefaultConfig()
	}
	return &Pool{
		hosts:           make(map[string][]*Session),
		lastInteraction: time.Now(),
		config:          config,
		now:             time.Now,
	}
}

// Acquire returns the oldest idle session for host, or a new unconnected one when there is none.
// Sessions that expired while waiting in the queue are closed and skipped
func (p *Pool) Acquire(host string) *Session {
	var (
		expired []*Session
		ret     *Session
	)

	p.mu.Lock()
	now := p.now()
	p.lastInteraction = now
	queue := p.hosts[host]
	for len(queue) > 0 {
		s := queue[0]
		queue[0] = nil
		queue = queue[1:]
		if s.IsExpired(now) {
			expired = append(expired, s)
			continue
		}
		ret = s
		break
	}
	if len(queue) == 0 {
		delete(p.hosts, host)
	} else {
		p.hosts[host] = queue
	}
	p.stats.Expired += uint64(len(expired))
	if ret != nil {
		p.stats.Hits++
	} else {
		p.stats.Misses++
	}
	p.mu.Unlock()

	closeSessions(expired)

	if ret != nil {
		log.Trace().Str("host", host).Int("skipped", len(expired)).Msg("pool hit")
		return ret
	}
	log.Trace().Str("host", host).Int("skipped", len(expired)).Msg("pool miss")
	return NewSession(host, p.config)
}

// Release marks the session idle and queues it under its host. The caller must have drained any response
// on it. A closed pool closes the session instead
func (p *Pool) Release(s *Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		s.Close()
		return
	}
	now := p.now()
	p.lastInteraction = now
	s.setIdleAt(now)
	p.hosts[s.Host] = append(p.hosts[s.Host], s)
	queued := len(p.hosts[s.Host])
	p.startEvictor()
	p.mu.Unlock()

	log.Trace().Str("host", s.Host).Int("queued", queued).Msg("session released")
}

// startEvictor must be called with p.mu held
func (p *Pool) startEvictor() {
	if p.shutChan != nil {
		return
	}
	p.shutChan = make(chan struct{})
	p.doneChan = make(chan struct{})
	log.Debug().Dur("tick", p.config.EvictionTick).Msg("starting pool eviction worker")
	go p.evictLoop(p.shutChan, p.doneChan)
}

func (p *Pool) evictLoop(shut chan struct{}, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.config.EvictionTick)
	defer ticker.Stop()
	for {
		select {
		case <-shut:
			return
		case <-ticker.C:
			if p.sweep(shut) {
				log.Debug().Msg("pool eviction worker exiting")
				return
			}
		}
	}
}

// sweep evicts expired sessions and reports whether the worker owning shut should exit
func (p *Pool) sweep(shut chan struct{}) bool {
	p.mu.Lock()
	if p.shutChan != shut {
		// superseded or closed
		p.mu.Unlock()
		return true
	}
	now := p.now()
	evicted := p.removeExpired(now)
	remaining := p.idleLocked()
	p.stats.Expired += uint64(len(evicted))
	stop := len(p.hosts) == 0 && now.Sub(p.lastInteraction) > p.config.PoolGrace
	if stop {
		p.shutChan = nil
		p.doneChan = nil
	}
	p.mu.Unlock()

	if len(evicted) > 0 {
		log.Debug().Int("evicted", len(evicted)).Int("remaining", remaining).Msg("evicted idle sessions")
	}
	closeSessions(evicted)
	return stop
}

// removeExpired drops every session expired at now and returns them. Empty queues are removed.
// Must be called with p.mu held
func (p *Pool) removeExpired(now time.Time) (evicted []*Session) {
	for host, queue := range p.hosts {
		kept := queue[:0]
		for _, s := range queue {
			if s.IsExpired(now) {
				evicted = append(evicted, s)
				continue
			}
			kept = append(kept, s)
		}
		for i := len(kept); i < len(queue); i++ {
			queue[i] = nil
		}
		if len(kept) == 0 {
			delete(p.hosts, host)
			continue
		}
		p.hosts[host] = kept
	}
	return evicted
}

func (p *Pool) idleLocked() int {
	n := 0
	for _, q := range p.hosts {
		n += len(q)
	}
	return n
}

// PoolStats counts how acquires were served. Expired counts sessions dropped for idling past IdleExpiry,
// whether by the eviction worker or by an acquire skipping them
type PoolStats struct {
	Hits    uint64
	Misses  uint64
	Expired uint64
}

// Stats returns the counters accumulated since the pool was created
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Idle returns the number of idle sessions queued for host
func (p *Pool) Idle(host string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.hosts[host])
}

// Len returns the number of idle sessions across all hosts
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleLocked()
}

// evicting reports whether the eviction worker is running
func (p *Pool) evicting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutChan != nil
}

// Close stops the eviction worker and closes every idle session. Sessions released afterwards are closed
// immediately. The returned error aggregates the failed closes
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	shut, done := p.shutChan, p.doneChan
	p.shutChan, p.doneChan = nil, nil

	var sessions []*Session
	for host, queue := range p.hosts {
		sessions = append(sessions, queue...)
		delete(p.hosts, host)
	}
	p.mu.Unlock()

	if shut != nil {
		close(shut)
		<-done
	}
	return closeSessions(sessions)
}

func closeSessions(sessions []*Session) error {
	var merr *multierror.Error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
