package memindex

import (
	"context"
	"sort"
	"sync"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	"github.com/ociworks/distkit/pkg/content"
)

// New returns an in-process TagIndex. Bindings live in memory only;
// suitable for tests and single-process setups.
func New() content.TagIndex {
	return &memIndex{
		bindings: map[string]map[string]digest.Digest{},
	}
}

type memIndex struct {
	mu       sync.RWMutex
	bindings map[string]map[string]digest.Digest
}

func (m *memIndex) Lookup(ctx context.Context, named reference.Named, tag string) (digest.Digest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dgst, ok := m.bindings[named.Name()][tag]
	if !ok {
		return "", &content.ErrTagUnknown{Tag: tag}
	}
	return dgst, nil
}

func (m *memIndex) Upsert(ctx context.Context, named reference.Named, tag string, dgst digest.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tags := m.bindings[named.Name()]
	if tags == nil {
		tags = map[string]digest.Digest{}
		m.bindings[named.Name()] = tags
	}
	tags[tag] = dgst
	return nil
}

func (m *memIndex) Delete(ctx context.Context, named reference.Named, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bindings[named.Name()], tag)
	return nil
}

func (m *memIndex) All(ctx context.Context, named reference.Named) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tags := make([]string, 0, len(m.bindings[named.Name()]))
	for tag := range m.bindings[named.Name()] {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}
