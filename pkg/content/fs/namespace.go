package fs

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path"
	"strings"

	"github.com/distribution/reference"
	"github.com/octohelm/unifs/pkg/filesystem"
	"github.com/opencontainers/go-digest"

	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/fs/layout"
)

type NamespaceOption func(n *namespace)

// WithTagIndex plugs in an external tag index service. The default keeps
// bindings in the repository tree.
func WithTagIndex(idx content.TagIndex) NamespaceOption {
	return func(n *namespace) {
		n.tagIndex = idx
	}
}

// WithAllowedMediaTypes restricts manifest put to the listed media types.
func WithAllowedMediaTypes(mediaTypes ...string) NamespaceOption {
	return func(n *namespace) {
		n.allowedMediaTypes = mediaTypes
	}
}

func NewNamespace(fsys filesystem.FileSystem, opts ...NamespaceOption) content.Namespace {
	n := &namespace{workspace: newWorkspace(fsys, layout.Default)}

	for _, opt := range opts {
		opt(n)
	}

	if n.tagIndex == nil {
		n.tagIndex = &tagIndex{workspace: n.workspace}
	}

	return n
}

type namespace struct {
	workspace *workspace

	tagIndex          content.TagIndex
	allowedMediaTypes []string
}

var _ content.RepositoryNameIterable = &namespace{}
var _ content.DigestIterable = &namespace{}

func (n *namespace) Repository(ctx context.Context, named reference.Named) (content.Repository, error) {
	return &repository{
		named:     named,
		namespace: n,
	}, nil
}

func (n *namespace) Digests(ctx context.Context) iter.Seq2[digest.Digest, error] {
	bs := &blobStore{workspace: n.workspace}
	return bs.Digests(ctx)
}

// RepositoryNames yields every repository under repositories/. A
// directory counts as a repository once it holds a _manifests or _layers
// subtree; everything below those markers is skipped.
func (n *namespace) RepositoryNames(ctx context.Context) iter.Seq2[reference.Named, error] {
	return func(yield func(reference.Named, error) bool) {
		last := ""

		err := n.workspace.WalkDir(ctx, n.workspace.layout.RepositoriesPath(), func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if p == "." || !d.IsDir() {
				return nil
			}

			if strings.HasPrefix(d.Name(), "_") {
				if d.Name() == "_layers" || d.Name() == "_manifests" {
					name := path.Dir(p)
					if name != last {
						last = name

						named, err := reference.WithName(name)
						if err != nil {
							return err
						}
						if !yield(named, nil) {
							return fs.SkipAll
						}
					}
				}
				return fs.SkipDir
			}

			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			yield(nil, err)
		}
	}
}
