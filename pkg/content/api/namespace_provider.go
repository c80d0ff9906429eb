package api

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-courier/logr"
	"github.com/octohelm/unifs/pkg/filesystem"
	"github.com/octohelm/unifs/pkg/filesystem/api"
	"github.com/octohelm/unifs/pkg/strfmt"

	"github.com/ociworks/distkit/pkg/content"
	contentfs "github.com/ociworks/distkit/pkg/content/fs"
	"github.com/ociworks/distkit/pkg/content/fs/driver"
	"github.com/ociworks/distkit/pkg/content/tagindex/redisindex"
)

// NamespaceProvider wires the content namespace from configuration: a
// unifs backend endpoint for content, and optionally an external tag
// index service.
type NamespaceProvider struct {
	Content api.FileSystemBackend

	// Index is a connection string for the external tag index, such as
	// redis://localhost:6379/0. Empty keeps tags in the content tree.
	Index string `flag:",omitempty"`

	// AllowedMediaTypes restricts which manifest media types may be
	// pushed. Empty accepts every type the codec understands.
	AllowedMediaTypes []string `flag:",omitempty"`

	namespace content.Namespace
	driver    driver.Driver
}

func (s *NamespaceProvider) Init(ctx context.Context) error {
	if s.Content.Backend.IsZero() {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		endpoint, _ := strfmt.ParseEndpoint("file://" + filepath.Join(cwd, ".tmp/registry"))
		s.Content.Backend = *endpoint
	}

	if err := s.Content.Init(ctx); err != nil {
		return err
	}

	if err := filesystem.MkdirAll(ctx, s.Content.FileSystem(), "."); err != nil {
		return err
	}

	opts := make([]contentfs.NamespaceOption, 0, 2)

	if s.Index != "" {
		idx, err := redisindex.NewFromURL(s.Index)
		if err != nil {
			return err
		}
		opts = append(opts, contentfs.WithTagIndex(idx))

		logr.FromContext(ctx).
			WithValues(slog.String("index", s.Index)).
			Info("using external tag index")
	}

	if len(s.AllowedMediaTypes) > 0 {
		opts = append(opts, contentfs.WithAllowedMediaTypes(s.AllowedMediaTypes...))
	}

	s.namespace = contentfs.NewNamespace(s.Content.FileSystem(), opts...)
	s.driver = driver.FromFileSystem(s.Content.FileSystem())

	return nil
}

func (s *NamespaceProvider) InjectContext(ctx context.Context) context.Context {
	return driver.InjectContext(
		content.NamespaceInjectContext(ctx, s.namespace),
		s.driver,
	)
}

func (s *NamespaceProvider) Namespace() content.Namespace {
	return s.namespace
}

func (s *NamespaceProvider) Driver() driver.Driver {
	return s.driver
}
