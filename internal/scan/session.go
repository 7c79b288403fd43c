package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a scan session.
type State int32

const (
	StateIdle State = iota
	StatePermissionRequested
	StateStreaming
	StateDetecting
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePermissionRequested:
		return "permission-requested"
	case StateStreaming:
		return "streaming"
	case StateDetecting:
		return "detecting"
	case StateSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// defaultFramePeriod approximates a 30fps paint boundary.
const defaultFramePeriod = 33 * time.Millisecond

// Submitter consumes a detected code exactly once.
type Submitter interface {
	Submit(ctx context.Context, code DetectedCode) error
}

// Notifier surfaces user-visible messages.
type Notifier interface {
	Notify(msg string)
}

// Session is one camera acquisition attempt. The stream and the
// detector handle are co-owned: release tears down both together.
type Session struct {
	ID string

	state    atomic.Int32
	scanning atomic.Bool
	done     chan struct{}

	mu       sync.Mutex
	stream   FrameStream
	detector Detector
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// detectorHandle returns the session's detector, or nil once released.
func (s *Session) detectorHandle() Detector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector
}

// release clears the scanning flag and tears down the camera stream
// and the detector handle together. Only the first call does work;
// every exit path goes through here.
func (s *Session) release() {
	s.scanning.Store(false)
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.detector = nil
	s.mu.Unlock()
	if stream != nil {
		stream.Close()
	}
}

// Controller owns the camera lifecycle and the detection loop. At most
// one live session exists at a time.
type Controller struct {
	source   FrameSource
	detector Detector
	pipeline Submitter
	notifier Notifier
	clock    FrameClock

	// startMu serializes session turnover, so racing Starts cannot
	// both tear down the same predecessor and each install a session,
	// orphaning one camera stream.
	startMu sync.Mutex

	mu      sync.Mutex
	session *Session
}

// NewController creates a Controller paced at the default frame rate.
// A nil detector means the detection capability is absent; Start will
// refuse and route the user to the upload path.
func NewController(source FrameSource, detector Detector, pipeline Submitter, notifier Notifier) *Controller {
	return NewControllerWithClock(source, detector, pipeline, notifier, tickerClock{interval: defaultFramePeriod})
}

// NewControllerWithClock creates a Controller with a custom frame clock
// for testing.
func NewControllerWithClock(source FrameSource, detector Detector, pipeline Submitter, notifier Notifier, clock FrameClock) *Controller {
	return &Controller{
		source:   source,
		detector: detector,
		pipeline: pipeline,
		notifier: notifier,
		clock:    clock,
	}
}

// State reports the live session's state, or StateIdle when none.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StateIdle
	}
	return c.session.State()
}

// Start begins a scan session. A session already live is torn down
// first, and the new stream is only acquired after its loop has fully
// exited.
func (c *Controller) Start(ctx context.Context) error {
	if c.detector == nil {
		c.notifier.Notify("Scanning is not supported here. Use the image upload instead.")
		return ErrNoCapability
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	if prev := c.session; prev != nil {
		prev.release()
		c.mu.Unlock()
		<-prev.done
		c.mu.Lock()
	}
	sess := &Session{ID: uuid.NewString(), done: make(chan struct{})}
	c.session = sess
	c.mu.Unlock()

	sess.setState(StatePermissionRequested)
	stream, err := c.source.Open(ctx)
	if err != nil {
		sess.setState(StateIdle)
		close(sess.done)
		if errors.Is(err, ErrPermissionDenied) {
			c.notifier.Notify("Camera access was denied.")
			return err
		}
		c.notifier.Notify("Could not start the camera.")
		return fmt.Errorf("opening camera stream: %w", err)
	}

	sess.mu.Lock()
	sess.stream = stream
	sess.detector = c.detector
	sess.mu.Unlock()
	sess.scanning.Store(true)

	sess.setState(StateStreaming)
	slog.Info("camera stream acquired", "session", sess.ID)
	sess.setState(StateDetecting)
	go c.detectLoop(ctx, sess, stream)
	return nil
}

// Stop ends the live session cooperatively: no further detection cycle
// is scheduled and the camera is released immediately. A detection
// pass already in flight is not interrupted.
func (c *Controller) Stop() {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return
	}
	sess.release()
}

// Wait blocks until the live session's loop has exited.
func (c *Controller) Wait() {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess != nil {
		<-sess.done
	}
}

// detectLoop runs one detection pass per cycle, then waits for the
// next frame tick. The scanning flag checked at the top of each cycle
// is the sole cancellation mechanism.
func (c *Controller) detectLoop(ctx context.Context, sess *Session, stream FrameStream) {
	defer close(sess.done)

	for sess.scanning.Load() {
		frame, err := stream.Frame(ctx)
		if err != nil {
			if !sess.scanning.Load() || ctx.Err() != nil {
				break
			}
			slog.Warn("frame capture failed", "session", sess.ID, "error", err)
			if err := c.clock.Wait(ctx); err != nil {
				break
			}
			continue
		}

		detector := sess.detectorHandle()
		if detector == nil {
			break
		}
		texts, err := detector.Detect(ctx, frame)
		if err != nil {
			// Transient decode failure: log and keep looping.
			slog.Warn("decode cycle failed", "session", sess.ID, "error", err)
		} else if text := firstNonEmpty(texts); text != "" {
			// Claim the session; a Stop that raced this cycle wins
			// and the result is discarded.
			if !sess.scanning.CompareAndSwap(true, false) {
				break
			}
			// Release before submitting, so the same code cannot be
			// re-detected while the backend call is out and at most
			// one submission happens per session.
			sess.release()
			sess.setState(StateSubmitting)
			code := DetectedCode{RawText: text, AcquiredAt: time.Now(), Origin: OriginCamera}
			if err := c.pipeline.Submit(ctx, code); err != nil {
				slog.Error("scan submission failed", "session", sess.ID, "error", err)
			}
			sess.setState(StateIdle)
			return
		}
		// Empty decodes are rejected here; the loop keeps going.

		if err := c.clock.Wait(ctx); err != nil {
			break
		}
	}

	sess.release()
	sess.setState(StateIdle)
}

func firstNonEmpty(texts []string) string {
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			return t
		}
	}
	return ""
}
