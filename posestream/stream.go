// Package posestream provides in-process pose distribution with latest-value
// semantics: publishers never block and a slow subscriber only ever observes
// the newest pose.
package posestream

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"go.viam.com/teleop/referenceframe"
)

// Typed errors for subscription management.
var (
	ErrStreamClosed      = errors.New("pose stream is closed")
	ErrSubscriberExists  = errors.New("subscriber id already registered")
	ErrUnknownSubscriber = errors.New("unknown subscriber id")
)

// SubscriberStats counts poses delivered to one subscriber. Published is the
// number of poses offered; each one overwrote the previous value, so
// Published minus Read is how many a slow consumer skipped.
type SubscriberStats struct {
	Published uint64
	Read      uint64
}

// Receiver hands a subscriber the newest published pose. Latest never blocks;
// Updated signals that a newer pose than the last read one may be available.
type Receiver struct {
	mu        sync.Mutex
	latest    referenceframe.PoseInFrame
	hasValue  bool
	updated   chan struct{}
	published atomic.Uint64
	read      atomic.Uint64
}

func newReceiver() *Receiver {
	return &Receiver{updated: make(chan struct{}, 1)}
}

// Latest returns the newest pose published so far and whether any pose has
// been published yet.
func (rc *Receiver) Latest() (referenceframe.PoseInFrame, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.hasValue {
		rc.read.Add(1)
	}
	return rc.latest, rc.hasValue
}

// Updated returns a channel that receives a signal when a new pose lands.
// The channel has capacity one; coalesced signals mean intermediate poses
// were superseded, which is the intended latest-value behavior.
func (rc *Receiver) Updated() <-chan struct{} {
	return rc.updated
}

// Stats returns delivery counters for this receiver.
func (rc *Receiver) Stats() SubscriberStats {
	return SubscriberStats{Published: rc.published.Load(), Read: rc.read.Load()}
}

func (rc *Receiver) set(p referenceframe.PoseInFrame) {
	rc.mu.Lock()
	rc.latest = p
	rc.hasValue = true
	rc.mu.Unlock()
	rc.published.Add(1)
	select {
	case rc.updated <- struct{}{}:
	default:
	}
}

// Stream fans published poses out to named subscribers, keeping only the
// newest value per subscriber.
type Stream struct {
	name string

	mu          sync.RWMutex
	subscribers map[string]*Receiver
	closed      bool
}

// New returns an empty stream. The name is informational (topic naming, logs).
func New(name string) *Stream {
	return &Stream{name: name, subscribers: make(map[string]*Receiver)}
}

// Name returns the stream's topic name.
func (s *Stream) Name() string {
	return s.name
}

// Subscribe registers a new named subscriber and returns its receiver.
func (s *Stream) Subscribe(id string) (*Receiver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStreamClosed
	}
	if _, ok := s.subscribers[id]; ok {
		return nil, errors.Wrap(ErrSubscriberExists, id)
	}
	rc := newReceiver()
	s.subscribers[id] = rc
	return rc, nil
}

// Unsubscribe deregisters a subscriber. Its receiver stops updating.
func (s *Stream) Unsubscribe(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[id]; !ok {
		return errors.Wrap(ErrUnknownSubscriber, id)
	}
	delete(s.subscribers, id)
	return nil
}

// Publish offers a pose to every subscriber, replacing any unread value.
// Never blocks; a no-op on a closed stream.
func (s *Stream) Publish(p referenceframe.PoseInFrame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, rc := range s.subscribers {
		rc.set(p)
	}
}

// WritePose lets a Stream serve directly as a relay's pose output.
func (s *Stream) WritePose(p referenceframe.PoseInFrame) {
	s.Publish(p)
}

// Close deregisters all subscribers and rejects future ones.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subscribers = make(map[string]*Receiver)
	return nil
}
