package uploadsession

import (
	"context"
	"io"
	"sync"
	"time"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
)

type State string

const (
	StateInitiated State = "initiated"
	StateReceiving State = "receiving"
	StateVerifying State = "verifying"
	StateCommitted State = "committed"
	StateCancelled State = "cancelled"
)

// Session tracks one in-progress blob upload. All mutations go through its
// lock, so concurrent appends to the same session serialize instead of
// interleaving bytes.
type Session struct {
	manager *Manager
	writer  content.BlobWriter

	mu       sync.Mutex
	state    State
	received int64
	deadline time.Time
}

func (s *Session) ID() string {
	return s.writer.ID()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Received reports how many bytes the session has accepted. The next chunk
// must claim exactly this offset.
func (s *Session) Received() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.received
}

func (s *Session) Deadline() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deadline
}

// checkLive must be called with the lock held.
func (s *Session) checkLive() error {
	switch s.state {
	case StateCommitted, StateCancelled:
		return &content.ErrBlobUploadUnknown{ID: s.ID()}
	}

	if time.Now().After(s.deadline) {
		return &content.ErrBlobUploadExpired{ID: s.ID(), Deadline: s.deadline}
	}

	return nil
}

// Append accepts the next chunk. expectedOffset must equal the bytes
// received so far; on mismatch nothing is consumed and the session remains
// usable at its current offset, so the client can requery and retry.
func (s *Session) Append(ctx context.Context, chunk io.Reader, expectedOffset int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLive(); err != nil {
		return 0, err
	}

	if expectedOffset != s.received {
		return 0, &content.ErrBlobUploadInvalidOffset{
			ID:       s.ID(),
			Offset:   expectedOffset,
			Received: s.received,
		}
	}

	n, err := io.Copy(s.writer, chunk)
	s.received += n
	if err != nil {
		return n, err
	}

	s.state = StateReceiving
	s.deadline = time.Now().Add(s.manager.TTL)

	return n, nil
}

// Finalize verifies the staged content against expected and publishes it.
// The session is terminal afterwards whatever the outcome: on success the
// blob is committed, on verification failure the staged bytes are gone and
// the client must start over.
func (s *Session) Finalize(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLive(); err != nil {
		return nil, err
	}

	s.state = StateVerifying

	d, err := s.writer.Commit(ctx, expected)
	if err != nil {
		s.state = StateCancelled
		s.manager.remove(s.ID())
		return nil, err
	}

	s.state = StateCommitted
	s.manager.remove(s.ID())

	return d, nil
}

// Cancel discards the staged content. Safe to call on a terminal session.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateCommitted, StateCancelled:
		return nil
	}

	s.state = StateCancelled
	s.manager.remove(s.ID())

	return s.writer.Cancel(ctx)
}
