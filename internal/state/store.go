package state

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/five82/tidalbridge/internal/tidal"
)

const (
	// CooldownThreshold is the number of consecutive disagreeing syncs after
	// which a server value replaces a locally written one.
	CooldownThreshold = 2

	// restartThreshold is how far into a track "previous" restarts it
	// instead of skipping back.
	restartThreshold = 3000
)

// Options configure a Store.
type Options struct {
	// PreviousRestartsTrack turns "previous" into a seek to zero once the
	// track has played for more than three seconds.
	PreviousRestartsTrack bool

	// Now overrides the clock. Nil uses time.Now.
	Now func() time.Time
}

// Store is the single source of truth for the current player state.
//
// All reads and writes go through the store's methods. Observers registered
// with Subscribe are called synchronously after every mutation, outside the
// store lock; they must not block.
type Store struct {
	mu               sync.Mutex
	client           tidal.Controller
	now              func() time.Time
	previousRestarts bool

	track     *Track
	playing   bool
	pos       position
	volume    synced[int]
	repeat    synced[tidal.RepeatMode]
	shuffle   synced[bool]
	seeking   bool
	updatedAt time.Time

	observers    []observer
	nextObserver int
}

type observer struct {
	id int
	fn func(PlayerState)
}

// New returns a Store that sends commands through client.
func New(client tidal.Controller, opts Options) *Store {
	return &Store{
		client:           client,
		now:              opts.Now,
		previousRestarts: opts.PreviousRestartsTrack,
	}
}

// position is the (base, capture time) pair behind the effective position.
type position struct {
	baseMs     int64
	capturedAt time.Time
}

func (p position) at(now time.Time, playing bool) int64 {
	if !playing || p.capturedAt.IsZero() {
		return p.baseMs
	}
	elapsed := now.Sub(p.capturedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return p.baseMs + elapsed
}

// synced is a remotely settable field with its reconciliation cooldown.
type synced[T comparable] struct {
	value    T
	set      bool
	cooldown int
}

// reconcile folds one server report into the field. A set value is only
// replaced once the server has disagreed for CooldownThreshold syncs in a row.
func (f *synced[T]) reconcile(server T) {
	if f.set && f.value != server {
		f.cooldown++
	} else {
		f.cooldown = 0
	}
	if !f.set || f.cooldown >= CooldownThreshold {
		f.value = server
		f.set = true
		f.cooldown = 0
	}
}

func (f *synced[T]) write(v T) {
	f.value = v
	f.set = true
	f.cooldown = 0
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// EffectivePosition returns the playback position in milliseconds,
// advanced by wall-clock time while playing.
func (s *Store) EffectivePosition() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos.at(s.clock(), s.playing)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(s.clock())
}

// SetPosition moves the base position to ms and restarts the clock.
func (s *Store) SetPosition(ms int64) {
	s.mutate(func(now time.Time) {
		s.pos = position{baseMs: ms, capturedAt: now}
	})
}

// MarkStopped records that nothing is playing, freezing the position.
func (s *Store) MarkStopped() {
	s.mutate(func(now time.Time) {
		s.setPlayingLocked(now, false)
	})
}

// ApplySnapshot reconciles a /now-playing payload into the store. The payload
// is validated in full first; on error nothing changes and no observer runs.
func (s *Store) ApplySnapshot(np *tidal.NowPlaying) error {
	parsed, err := parseSnapshot(np)
	if err != nil {
		return err
	}
	s.mutate(func(now time.Time) {
		s.track = parsed.track
		s.playing = parsed.playing
		s.pos = position{baseMs: parsed.positionMs, capturedAt: now}
		if parsed.volume != nil {
			s.volume.reconcile(*parsed.volume)
		}
		if parsed.repeat != nil {
			s.repeat.reconcile(*parsed.repeat)
		}
		if parsed.shuffle != nil {
			s.shuffle.reconcile(*parsed.shuffle)
		}
	})
	return nil
}

// Cooldowns reports the current cooldown counters for volume, repeat and
// shuffle, in that order.
func (s *Store) Cooldowns() (volume, repeat, shuffle int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume.cooldown, s.repeat.cooldown, s.shuffle.cooldown
}

// Subscribe registers fn to receive the state after every mutation. The
// returned func removes it.
func (s *Store) Subscribe(fn func(PlayerState)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// mutate applies fn under the lock, then notifies observers once.
func (s *Store) mutate(fn func(now time.Time)) {
	s.mu.Lock()
	now := s.clock()
	fn(now)
	s.updatedAt = now
	snap := s.stateLocked(now)
	observers := make([]observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(snap)
	}
}

func (s *Store) setPlayingLocked(now time.Time, playing bool) {
	if s.playing == playing {
		return
	}
	s.pos = position{baseMs: s.pos.at(now, s.playing), capturedAt: now}
	s.playing = playing
}

func (s *Store) stateLocked(now time.Time) PlayerState {
	st := PlayerState{
		Playing:    s.playing,
		PositionMs: s.pos.at(now, s.playing),
		Volume:     s.volume.value,
		HasVolume:  s.volume.set,
		Repeat:     RepeatUnset,
		Shuffle:    s.shuffle.value,
		HasShuffle: s.shuffle.set,
		Seeking:    s.seeking,
		UpdatedAt:  s.updatedAt,
	}
	if s.repeat.set {
		st.Repeat = s.repeat.value
	}
	if s.track != nil {
		st.Track = s.track.clone()
	}
	return st
}

// RequestSeek seeks the remote player to ms. A call made while another seek
// is in flight is dropped. The pending flag is always released once the
// command settles, whatever its outcome.
func (s *Store) RequestSeek(ctx context.Context, ms int64) {
	if ms < 0 {
		ms = 0
	}
	s.mu.Lock()
	if s.seeking || s.client == nil {
		s.mu.Unlock()
		return
	}
	s.seeking = true
	client := s.client
	s.mu.Unlock()

	err := client.Seek(ctx, ms)

	s.mutate(func(now time.Time) {
		s.seeking = false
		if err == nil {
			s.pos = position{baseMs: ms, capturedAt: now}
		}
	})
	if err != nil {
		log.Printf("store: seek to %dms failed: %v", ms, err)
	}
}

// Play resumes playback.
func (s *Store) Play(ctx context.Context) {
	s.SetPlaying(ctx, true)
}

// Pause pauses playback.
func (s *Store) Pause(ctx context.Context) {
	s.SetPlaying(ctx, false)
}

// SetPlaying sends play or pause and records the new state on success.
func (s *Store) SetPlaying(ctx context.Context, playing bool) {
	name, send := "pause", tidal.Controller.Pause
	if playing {
		name, send = "play", tidal.Controller.Play
	}
	s.command(ctx, name, send, func(now time.Time) {
		s.setPlayingLocked(now, playing)
	})
}

// TogglePlaying flips between play and pause.
func (s *Store) TogglePlaying(ctx context.Context) {
	s.mu.Lock()
	playing := s.playing
	s.mu.Unlock()
	s.SetPlaying(ctx, !playing)
}

// Next skips to the next track. The new track arrives with the next sync.
func (s *Store) Next(ctx context.Context) {
	s.command(ctx, "next", tidal.Controller.Next, nil)
}

// Previous skips back, or restarts the current track when configured to and
// more than three seconds have played.
func (s *Store) Previous(ctx context.Context) {
	if s.previousRestarts && s.EffectivePosition() > restartThreshold {
		s.RequestSeek(ctx, 0)
		return
	}
	s.command(ctx, "previous", tidal.Controller.Previous, nil)
}

// SetVolume sets the volume in percent.
func (s *Store) SetVolume(ctx context.Context, percent int) {
	s.command(ctx, "set volume", func(c tidal.Controller, ctx context.Context) error {
		return c.SetVolume(ctx, percent)
	}, func(time.Time) {
		s.volume.write(percent)
	})
}

// SetRepeat sets the repeat mode.
func (s *Store) SetRepeat(ctx context.Context, mode tidal.RepeatMode) {
	s.command(ctx, "set repeat", func(c tidal.Controller, ctx context.Context) error {
		return c.SetRepeat(ctx, mode)
	}, func(time.Time) {
		s.repeat.write(mode)
	})
}

// SetShuffle toggles shuffle.
func (s *Store) SetShuffle(ctx context.Context, enabled bool) {
	s.command(ctx, "set shuffle", func(c tidal.Controller, ctx context.Context) error {
		return c.SetShuffle(ctx, enabled)
	}, func(time.Time) {
		s.shuffle.write(enabled)
	})
}

// command sends one remote command and, on success only, applies the local
// update and notifies observers. Failures are logged.
func (s *Store) command(ctx context.Context, name string, send func(tidal.Controller, context.Context) error, apply func(now time.Time)) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		log.Printf("store: %s skipped: no client", name)
		return
	}
	if err := send(client, ctx); err != nil {
		log.Printf("store: %s failed: %v", name, err)
		return
	}
	if apply != nil {
		s.mutate(apply)
	}
}
