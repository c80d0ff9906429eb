package uploadsession

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/distribution/reference"
	"github.com/go-courier/logr"
	"github.com/octohelm/x/ptr"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/cron"
)

// Manager owns the live upload sessions of one process and expires the
// abandoned ones. Staged bytes live in the blob store; the manager only
// tracks the in-memory state machine around them.
type Manager struct {
	cron.Job

	// TTL is the rolling inactivity deadline. Every accepted chunk pushes
	// the deadline out by this much.
	TTL time.Duration `flag:",omitempty"`

	sessions sync.Map
}

func (m *Manager) SetDefaults() {
	if m.TTL == 0 {
		m.TTL = 30 * time.Minute
	}

	if m.Cron == "" {
		m.Cron = "@every 1m"
	}

	m.Job.SetDefaults()
}

func (m *Manager) Init(ctx context.Context) error {
	m.ApplyAction("expire upload sessions", func(ctx context.Context) {
		m.expire(ctx)
	})

	return m.Job.Init(ctx)
}

func (m *Manager) remove(id string) {
	m.sessions.Delete(id)
}

func (m *Manager) expire(ctx context.Context) {
	now := time.Now()

	for _, v := range m.sessions.Range {
		s := v.(*Session)

		if s.Deadline().Before(now) {
			logr.FromContext(ctx).WithValues(slog.String("upload", s.ID())).Info("expiring")

			if err := s.Cancel(ctx); err != nil {
				logr.FromContext(ctx).Warn(err)
			}
		}
	}
}

// Start opens a fresh session against repo.
func (m *Manager) Start(ctx context.Context, repo content.Repository) (*Session, error) {
	blobs, err := repo.Blobs(ctx)
	if err != nil {
		return nil, err
	}

	w, err := blobs.Writer(ctx)
	if err != nil {
		return nil, err
	}

	return m.track(w), nil
}

// StartOrMount attempts a cross-repository mount of dgst from the source
// repository. On success no session is created and the descriptor of the
// mounted blob is returned. When the source does not hold the blob, it
// falls back to a fresh session, per the push protocol.
func (m *Manager) StartOrMount(ctx context.Context, repo content.Repository, from reference.Named, dgst digest.Digest) (*manifestv1.Descriptor, *Session, error) {
	blobs, err := repo.Blobs(ctx)
	if err != nil {
		return nil, nil, err
	}

	if mounter, ok := blobs.(content.Mounter); ok {
		d, err := mounter.Mount(ctx, from, dgst)
		if err == nil {
			return d, nil, nil
		}
		if !errors.As(err, ptr.Ptr(&content.ErrBlobUnknown{})) {
			return nil, nil, err
		}
	}

	s, err := m.Start(ctx, repo)
	if err != nil {
		return nil, nil, err
	}

	return nil, s, nil
}

// Resume returns the live session with the given id.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	v, ok := m.sessions.Load(id)
	if !ok {
		return nil, &content.ErrBlobUploadUnknown{ID: id}
	}

	s := v.(*Session)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLive(); err != nil {
		return nil, err
	}

	return s, nil
}

func (m *Manager) track(w content.BlobWriter) *Session {
	s := &Session{
		manager:  m,
		writer:   w,
		state:    StateInitiated,
		deadline: time.Now().Add(m.TTL),
	}

	m.sessions.Store(s.ID(), s)

	return s
}
