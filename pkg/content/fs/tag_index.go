package fs

import (
	"context"
	"io/fs"
	"os"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"

	"github.com/ociworks/distkit/pkg/content"
)

// tagIndex keeps name→digest bindings in the repository tree itself:
// current/link holds the live binding, index/{algorithm}/{hex}/link keeps
// every digest the tag has ever pointed at.
type tagIndex struct {
	workspace *workspace
}

var _ content.TagIndex = &tagIndex{}

func (t *tagIndex) Lookup(ctx context.Context, named reference.Named, tag string) (digest.Digest, error) {
	data, err := t.workspace.GetContent(ctx, t.workspace.layout.RepositoryManifestTagCurrentLinkPath(named, tag))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &content.ErrTagUnknown{Tag: tag}
		}
		return "", err
	}

	return digest.Parse(string(data))
}

func (t *tagIndex) Upsert(ctx context.Context, named reference.Named, tag string, dgst digest.Digest) error {
	// history entry first, then the live link: an interrupted upsert leaves
	// the previous binding intact
	if err := t.workspace.PutContent(ctx,
		t.workspace.layout.RepositoryManifestTagIndexLinkPath(named, tag, dgst),
		[]byte(dgst),
	); err != nil {
		return err
	}

	return t.workspace.PutContent(ctx,
		t.workspace.layout.RepositoryManifestTagCurrentLinkPath(named, tag),
		[]byte(dgst),
	)
}

func (t *tagIndex) Delete(ctx context.Context, named reference.Named, tag string) error {
	return t.workspace.Delete(ctx, t.workspace.layout.RepositoryManifestTagPath(named, tag))
}

func (t *tagIndex) All(ctx context.Context, named reference.Named) ([]string, error) {
	tags := make([]string, 0)

	err := t.workspace.WalkDir(ctx, t.workspace.layout.RepositoryManifestTagsPath(named), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if p == "." {
			return nil
		}

		if d.IsDir() {
			tags = append(tags, d.Name())
			return fs.SkipDir
		}

		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return tags, nil
}
