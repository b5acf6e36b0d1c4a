package reader

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/logger"
)

const (
	// reconnectDelay is how long to wait before redialing a lost reader.
	reconnectDelay = 500 * time.Millisecond

	// eventBuffer bounds the outgoing queue; a stalled consumer drops
	// events rather than wedging the read loop.
	eventBuffer = 16

	cardPrefix   = "CARD:"
	removedFrame = "REMOVED"
)

// LineSource reads card frames from a TCP-attached reader. It reconnects
// forever until stopped and collapses the reader's repeated per-poll frames
// into single state-change events.
type LineSource struct {
	addr    string
	dialer  net.Dialer
	events  chan Event
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	limiter *rate.Limiter

	mu       sync.Mutex
	lastCard string // card currently on the pad, "" when none
}

// NewLineSource creates a source for the reader at addr (host:port).
func NewLineSource(addr string) *LineSource {
	return NewLineSourceWithContext(context.Background(), addr)
}

// NewLineSourceWithContext creates a source with a parent context.
func NewLineSourceWithContext(ctx context.Context, addr string) *LineSource {
	srcCtx, cancel := context.WithCancel(ctx)
	return &LineSource{
		addr:   addr,
		dialer: net.Dialer{Timeout: 3 * time.Second},
		events: make(chan Event, eventBuffer),
		ctx:    srcCtx,
		cancel: cancel,
		// Readers in a noisy frame loop can spam errors; cap emission
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Events implements Source.
func (s *LineSource) Events() <-chan Event {
	return s.events
}

// Start implements Source.
func (s *LineSource) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Logger.Infow("Card reader source started", "addr", s.addr)
}

// Stop implements Source.
func (s *LineSource) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.events)
	logger.Logger.Infow("Card reader source stopped", "addr", s.addr)
}

func (s *LineSource) run() {
	defer s.wg.Done()

	for {
		if s.ctx.Err() != nil {
			return
		}

		s.emit(Event{Type: EventConnecting})

		conn, err := s.dialer.DialContext(s.ctx, "tcp", s.addr)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.emitError(errors.Wrapf(err, "failed to connect to reader %s", s.addr))
			if !s.sleep(reconnectDelay) {
				return
			}
			continue
		}

		s.serve(conn)

		// Connection dropped; the card state is unknown until we resync
		s.cardRemoved()

		if !s.sleep(reconnectDelay) {
			return
		}
	}
}

// serve consumes frames until the connection breaks or the source stops.
func (s *LineSource) serve(conn net.Conn) {
	defer conn.Close()

	// Unblock the blocking Read when the source stops
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		s.handleFrame(strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil && s.ctx.Err() == nil {
		s.emitError(errors.Wrap(err, "reader connection lost"))
	}
}

func (s *LineSource) handleFrame(frame string) {
	switch {
	case frame == "":
		return
	case frame == removedFrame:
		s.cardRemoved()
	case strings.HasPrefix(frame, cardPrefix):
		s.cardDetected(strings.TrimSpace(strings.TrimPrefix(frame, cardPrefix)))
	default:
		logger.Logger.Debugw("Unrecognized reader frame", "frame", frame)
	}
}

func (s *LineSource) cardDetected(cardID string) {
	if cardID == "" {
		return
	}

	s.mu.Lock()
	same := s.lastCard == cardID
	s.lastCard = cardID
	s.mu.Unlock()

	// The reader repeats the frame every poll cycle; only the first one is
	// a state change
	if same {
		return
	}
	s.emit(Event{Type: EventDetected, CardID: cardID})
}

func (s *LineSource) cardRemoved() {
	s.mu.Lock()
	hadCard := s.lastCard != ""
	s.lastCard = ""
	s.mu.Unlock()

	if !hadCard {
		return
	}
	s.emit(Event{Type: EventRemoved})
}

func (s *LineSource) emitError(err error) {
	if !s.limiter.Allow() {
		return
	}
	logger.Logger.Warnw("Card reader error", "addr", s.addr, "error", err)
	s.emit(Event{Type: EventError, Err: err})
}

func (s *LineSource) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		logger.Logger.Warnw("Reader event queue full, dropping event", "type", ev.Type)
	}
}

func (s *LineSource) sleep(d time.Duration) bool {
	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
