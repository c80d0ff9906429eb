package garbagecollector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/distribution/reference"
	"github.com/go-courier/logr"
	"github.com/opencontainers/go-digest"

	"github.com/ociworks/distkit/pkg/content/fs/driver"
	"github.com/ociworks/distkit/pkg/content/fs/layout"
)

// Vacuum performs the physical deletes of the sweep phase. The collector
// decides what is garbage; Vacuum only knows how to remove it.
type Vacuum interface {
	RemoveBlob(ctx context.Context, dgst digest.Digest) error
	RemoveLayer(ctx context.Context, named reference.Named, dgst digest.Digest) error
	RemoveManifest(ctx context.Context, named reference.Named, dgst digest.Digest, allTags []string) error
	RemoveRepository(ctx context.Context, named reference.Named) error
}

func NewVacuum(d driver.Driver, dryRun bool) Vacuum {
	return &maybeVacuum{
		vacuum: &vacuum{driver: d, layout: layout.Default},
		dryRun: dryRun,
	}
}

// maybeVacuum logs every removal and, in dry-run mode, stops there.
type maybeVacuum struct {
	vacuum *vacuum
	dryRun bool
}

func (m *maybeVacuum) RemoveBlob(ctx context.Context, dgst digest.Digest) error {
	logr.FromContext(ctx).
		WithValues(slog.String("blob", string(dgst))).
		Info("removing")

	if m.dryRun {
		return nil
	}
	return m.vacuum.RemoveBlob(ctx, dgst)
}

func (m *maybeVacuum) RemoveLayer(ctx context.Context, named reference.Named, dgst digest.Digest) error {
	logr.FromContext(ctx).
		WithValues(
			slog.String("name", named.String()),
			slog.String("layer", string(dgst)),
		).
		Info("removing")

	if m.dryRun {
		return nil
	}
	return m.vacuum.RemoveLayer(ctx, named, dgst)
}

func (m *maybeVacuum) RemoveManifest(ctx context.Context, named reference.Named, dgst digest.Digest, allTags []string) error {
	logr.FromContext(ctx).
		WithValues(
			slog.String("name", named.String()),
			slog.String("manifest", string(dgst)),
		).
		Info("removing")

	if m.dryRun {
		return nil
	}
	return m.vacuum.RemoveManifest(ctx, named, dgst, allTags)
}

func (m *maybeVacuum) RemoveRepository(ctx context.Context, named reference.Named) error {
	logr.FromContext(ctx).
		WithValues(slog.String("repository", named.Name())).
		Info("removing")

	if m.dryRun {
		return nil
	}
	return m.vacuum.RemoveRepository(ctx, named)
}

type vacuum struct {
	driver driver.Driver
	layout layout.Layout
}

func (v *vacuum) RemoveBlob(ctx context.Context, dgst digest.Digest) error {
	if err := dgst.Validate(); err != nil {
		return fmt.Errorf("invalid digest %s: %w", dgst, err)
	}

	// blobs/{algorithm}/{hex[:2]}/{hex}
	return v.driver.Delete(ctx, v.layout.BlobRootPath(dgst))
}

func (v *vacuum) RemoveLayer(ctx context.Context, named reference.Named, dgst digest.Digest) error {
	if err := dgst.Validate(); err != nil {
		return fmt.Errorf("invalid digest %s: %w", dgst, err)
	}

	// repositories/{name}/_layers/{algorithm}/{hex}
	return v.driver.Delete(ctx, path.Dir(v.layout.RepositoryLayerLinkPath(named, dgst)))
}

func (v *vacuum) RemoveManifest(ctx context.Context, named reference.Named, dgst digest.Digest, allTags []string) error {
	if err := dgst.Validate(); err != nil {
		return fmt.Errorf("invalid digest %s: %w", dgst, err)
	}

	for _, tag := range allTags {
		// repositories/{name}/_manifests/tags/{tag}/index/{algorithm}/{hex}
		tagIndexEntryPath := v.layout.RepositoryManifestTagIndexEntryPath(named, tag, dgst)

		if _, err := v.driver.Stat(ctx, tagIndexEntryPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := v.driver.Delete(ctx, tagIndexEntryPath); err != nil {
			return err
		}
	}

	// repositories/{name}/_manifests/revisions/{algorithm}/{hex}
	return v.driver.Delete(ctx, v.layout.RepositoryManifestRevisionPath(named, dgst))
}

func (v *vacuum) RemoveRepository(ctx context.Context, named reference.Named) error {
	return v.driver.Delete(ctx, v.layout.RepositoryPath(named))
}
