package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/five82/tidalbridge/internal/liveness"
	"github.com/five82/tidalbridge/internal/state"
	"github.com/five82/tidalbridge/internal/tidal"
)

const (
	defaultPollInterval     = time.Second
	defaultFailureThreshold = 5
	defaultErrorDelay       = 3 * time.Second
	defaultBackupInterval   = 5 * time.Minute
	// defaultMaxFailures caps the linear backoff at one minute.
	defaultMaxFailures = 20
)

// Phase is the poller's position in its state machine.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseBackoff
	PhaseFallback
)

func (p Phase) String() string {
	switch p {
	case PhaseNormal:
		return "normal"
	case PhaseBackoff:
		return "backoff"
	case PhaseFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// LivenessProbe is the passive recovery detector used during Fallback.
// *liveness.Listener implements it.
type LivenessProbe interface {
	Start(host string, port int) bool
	Stop()
	Status() liveness.Status
}

var _ LivenessProbe = (*liveness.Listener)(nil)

// PollerOptions tune the reconciliation loop. Zero values use defaults,
// except FallbackEnabled.
type PollerOptions struct {
	Interval         time.Duration // tick cadence
	FailureThreshold int           // transport failures before Fallback
	ErrorDelay       time.Duration // backoff step
	BackupInterval   time.Duration // active check interval during Fallback
	MaxFailures      int           // cap on the failure counter
	FallbackEnabled  bool
	ListenHost       string
	ListenPort       int
}

func (o PollerOptions) withDefaults() PollerOptions {
	if o.Interval <= 0 {
		o.Interval = defaultPollInterval
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = defaultFailureThreshold
	}
	if o.ErrorDelay <= 0 {
		o.ErrorDelay = defaultErrorDelay
	}
	if o.BackupInterval <= 0 {
		o.BackupInterval = defaultBackupInterval
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = defaultMaxFailures
	}
	if o.MaxFailures < o.FailureThreshold {
		o.MaxFailures = o.FailureThreshold
	}
	return o
}

// PollerStatus is a point-in-time view of the poller for display.
type PollerStatus struct {
	Phase       Phase
	Failures    int
	RetryIn     time.Duration
	LastError   error
	LastSuccess time.Time
	Listener    liveness.Status
}

// backoff counts in ticks.
type backoff struct {
	remaining int
	failures  int
}

// Poller keeps the store in sync with /now-playing. It is driven by a single
// goroutine; at most one request is in flight at any time.
type Poller struct {
	store    *state.Store
	client   tidal.Fetcher
	listener LivenessProbe
	opts     PollerOptions

	mu          sync.Mutex
	phase       Phase
	backoff     backoff
	lastErr     error
	lastSuccess time.Time
}

// NewPoller builds a Poller. listener may be nil, which disables Fallback.
func NewPoller(store *state.Store, client tidal.Fetcher, listener LivenessProbe, opts PollerOptions) *Poller {
	return &Poller{
		store:    store,
		client:   client,
		listener: listener,
		opts:     opts.withDefaults(),
	}
}

// Start launches Run in a background goroutine. The returned channel is
// closed once the loop has exited and released the listener.
func (p *Poller) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return done
}

// Run ticks until ctx is cancelled. A tick's request completes before the
// next tick is considered; ticks that fire meanwhile are dropped.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	defer func() {
		if p.listener != nil {
			p.listener.Stop()
		}
	}()

	for {
		p.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Status reports the current phase, counters and listener state.
func (p *Poller) Status() PollerStatus {
	p.mu.Lock()
	st := PollerStatus{
		Phase:       p.phase,
		Failures:    p.backoff.failures,
		RetryIn:     time.Duration(p.backoff.remaining) * p.opts.Interval,
		LastError:   p.lastErr,
		LastSuccess: p.lastSuccess,
	}
	p.mu.Unlock()
	if p.listener != nil {
		st.Listener = p.listener.Status()
	}
	return st
}

// tick evaluates one step: either count down the backoff or poll once.
func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	phase := p.phase
	p.mu.Unlock()

	if phase == PhaseFallback {
		st := p.listener.Status()
		switch {
		case st.Errored:
			log.Printf("poller: liveness listener failed, retrying every %s", p.opts.BackupInterval)
			p.mu.Lock()
			p.phase = PhaseBackoff
			p.mu.Unlock()
		case !st.Listening:
			log.Printf("poller: liveness signal received, resuming polling")
			p.mu.Lock()
			p.phase = PhaseNormal
			p.backoff = backoff{}
			p.mu.Unlock()
			p.poll(ctx)
			return
		}
	}

	if p.countdown() {
		return
	}
	p.poll(ctx)
}

// countdown consumes one tick of backoff and reports whether it did.
func (p *Poller) countdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backoff.remaining > 0 {
		p.backoff.remaining--
		return true
	}
	return false
}

func (p *Poller) poll(ctx context.Context) {
	np, err := p.client.NowPlaying(ctx)
	if err == nil {
		err = p.store.ApplySnapshot(np)
	}
	if ctx.Err() != nil {
		return
	}

	switch {
	case err == nil:
		p.onSuccess()
	case tidal.IsTransport(err):
		p.onTransportFailure(err)
	default:
		p.onResponseError(err)
	}
}

func (p *Poller) onSuccess() {
	p.mu.Lock()
	recovered := p.phase != PhaseNormal || p.backoff.failures > 0
	p.phase = PhaseNormal
	p.backoff = backoff{}
	p.lastErr = nil
	p.lastSuccess = time.Now()
	p.mu.Unlock()

	p.stopListener()
	if recovered {
		log.Printf("poller: now-playing reachable again")
	}
}

// onResponseError handles a server that answered but could not be used. It
// is reachable, so Fallback is left, but only a success ends the failure
// streak.
func (p *Poller) onResponseError(err error) {
	p.mu.Lock()
	p.phase = PhaseBackoff
	p.backoff.remaining = p.ticks(p.opts.ErrorDelay)
	p.lastErr = err
	p.mu.Unlock()

	p.stopListener()
	log.Printf("poller: now-playing error: %v, retrying in %s", err, p.opts.ErrorDelay)
}

func (p *Poller) onTransportFailure(err error) {
	p.mu.Lock()
	p.lastErr = err
	if p.backoff.failures < p.opts.MaxFailures {
		p.backoff.failures++
	}
	failures := p.backoff.failures
	wasFallback := p.phase == PhaseFallback
	p.mu.Unlock()

	if failures >= p.opts.FailureThreshold && p.fallbackAvailable() {
		if p.listener.Status().Errored {
			p.setBackoff(PhaseBackoff, p.opts.BackupInterval)
			log.Printf("poller: now-playing unreachable (%d in a row): %v, retrying in %s", failures, err, p.opts.BackupInterval)
			return
		}
		p.enterFallback(failures, wasFallback)
		return
	}

	delay := transportDelay(failures, p.opts.ErrorDelay, p.opts.MaxFailures)
	p.setBackoff(PhaseBackoff, delay)
	log.Printf("poller: now-playing unreachable (%d in a row): %v, retrying in %s", failures, err, delay)
}

func (p *Poller) enterFallback(failures int, wasFallback bool) {
	if !wasFallback {
		log.Printf("poller: %d consecutive failures, endpoint is probably down", failures)
		p.store.MarkStopped()
	}

	if !p.listener.Status().Listening {
		if !p.listener.Start(p.opts.ListenHost, p.opts.ListenPort) {
			log.Printf("poller: liveness listener unavailable, retrying every %s", p.opts.BackupInterval)
			p.setBackoff(PhaseBackoff, p.opts.BackupInterval)
			return
		}
	}
	p.setBackoff(PhaseFallback, p.opts.BackupInterval)
}

func (p *Poller) fallbackAvailable() bool {
	return p.opts.FallbackEnabled && p.listener != nil
}

func (p *Poller) setBackoff(phase Phase, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
	p.backoff.remaining = p.ticks(delay)
}

func (p *Poller) stopListener() {
	if p.listener != nil && p.listener.Status().Listening {
		p.listener.Stop()
	}
}

// ticks converts a delay into a number of ticks, rounding up.
func (p *Poller) ticks(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + p.opts.Interval - 1) / p.opts.Interval)
}

// transportDelay grows linearly with the failure streak, capped at
// maxFailures steps.
func transportDelay(failures int, step time.Duration, maxFailures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if failures > maxFailures {
		failures = maxFailures
	}
	return time.Duration(failures) * step
}
