package liveness

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is the listener lifecycle state.
type State int

const (
	Inactive State = iota
	Listening
	Errored
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Listening:
		return "listening"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of a Listener.
type Status struct {
	State     State
	Listening bool
	// Errored stays true once a bind or serve failure happened, even after
	// Stop moved the listener back to Inactive.
	Errored bool
	Since   time.Time
	Addr    string
	Session string
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 2 * time.Second
)

// Listener is a passive endpoint that reports the first inbound connection
// as a liveness signal and closes itself.
type Listener struct {
	mu         sync.Mutex
	state      State
	errored    bool
	server     *http.Server
	ln         net.Listener
	addr       string
	since      time.Time
	session    string
	generation uint64
	upgrader   websocket.Upgrader
}

// New returns an inactive Listener.
func New() *Listener {
	return &Listener{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: readHeaderTimeout,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
}

// Start binds host:port and waits for a connection. A listener that is
// already running is stopped first. On bind failure the listener becomes
// Errored and Start returns false.
func (l *Listener) Start(host string, port int) bool {
	l.Stop()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		l.mu.Lock()
		l.state = Errored
		l.errored = true
		l.mu.Unlock()
		log.Printf("liveness: listen on %s failed: %v", addr, err)
		return false
	}

	l.mu.Lock()
	l.generation++
	gen := l.generation
	var srv *http.Server
	var once sync.Once
	release := func() { once.Do(func() { go shutdown(srv) }) }
	srv = &http.Server{
		Handler:           http.HandlerFunc(l.handle),
		ReadHeaderTimeout: readHeaderTimeout,
		ConnState: func(_ net.Conn, cs http.ConnState) {
			switch cs {
			case http.StateNew:
				if l.signal(gen) {
					// Raw connections may never send a request.
					time.AfterFunc(readHeaderTimeout, release)
				}
			case http.StateIdle, http.StateHijacked, http.StateClosed:
				// The answer is out; idle keep-alives are closed too.
				release()
			}
		},
	}
	l.server = srv
	l.ln = ln
	l.state = Listening
	l.addr = ln.Addr().String()
	l.since = time.Now()
	l.session = uuid.NewString()
	bound, session := l.addr, l.session
	l.mu.Unlock()

	log.Printf("liveness: listening on %s (session %s)", bound, session)
	go l.serve(gen, srv, ln)
	return true
}

// Stop releases the listening socket and moves to Inactive. It is safe to
// call at any time.
func (l *Listener) Stop() {
	l.mu.Lock()
	srv, ln := l.server, l.ln
	wasListening := l.state == Listening
	l.server, l.ln = nil, nil
	l.state = Inactive
	l.generation++
	session := l.session
	l.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if srv != nil {
		_ = srv.Close()
	}
	if wasListening {
		log.Printf("liveness: stopped (session %s)", session)
	}
}

// Status reports the current state without side effects.
func (l *Listener) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		State:     l.state,
		Listening: l.state == Listening,
		Errored:   l.errored,
		Since:     l.since,
		Addr:      l.addr,
		Session:   l.session,
	}
}

func (l *Listener) serve(gen uint64, srv *http.Server, ln net.Listener) {
	err := srv.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation != gen || l.state != Listening {
		// Closed by signal or Stop.
		return
	}
	l.state = Errored
	l.errored = true
	l.server, l.ln = nil, nil
	log.Printf("liveness: serve on %s failed: %v", l.addr, err)
}

// signal runs from the server's ConnState hook for a new connection. It
// closes the socket so nothing else connects, but leaves the server up so the
// connection that touched us gets its answer. It reports whether this call
// delivered the signal.
func (l *Listener) signal(gen uint64) bool {
	l.mu.Lock()
	if l.generation != gen || l.state != Listening {
		l.mu.Unlock()
		return false
	}
	if l.ln != nil {
		_ = l.ln.Close()
	}
	l.ln = nil
	l.state = Inactive
	session := l.session
	l.mu.Unlock()

	log.Printf("liveness: signal received (session %s)", session)
	return true
}

func shutdown(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); errors.Is(err, context.DeadlineExceeded) {
		_ = srv.Close()
	}
}

// handle answers whatever arrived on the signalling connection. Websocket
// clients get a clean close frame; anything else gets 204.
func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "seen")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

// Notify connects to a listener at addr over websocket, which is all it
// takes to deliver the liveness signal.
func Notify(ctx context.Context, addr string) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/"}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("notify %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	// Drain the close frame so the listener's handshake completes.
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, _ = conn.ReadMessage()
	return nil
}
