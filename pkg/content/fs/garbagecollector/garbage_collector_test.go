package garbagecollector_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/distribution/reference"
	"github.com/octohelm/unifs/pkg/filesystem"
	"github.com/octohelm/unifs/pkg/filesystem/local"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	ocispecs "github.com/opencontainers/image-spec/specs-go"
	specv1 "github.com/opencontainers/image-spec/specs-go/v1"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/collect"
	contentfs "github.com/ociworks/distkit/pkg/content/fs"
	"github.com/ociworks/distkit/pkg/content/fs/driver"
	"github.com/ociworks/distkit/pkg/content/fs/garbagecollector"
)

type fixture struct {
	fsys      filesystem.FileSystem
	ns        content.Namespace
	repo      content.Repository
	blobs     content.BlobStore
	manifests content.ManifestService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	fsys := local.NewFS(t.TempDir())
	ns := contentfs.NewNamespace(fsys)

	named, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))

	repo, err := ns.Repository(ctx, named)
	testingx.Expect(t, err, testingx.Be[error](nil))

	blobs, err := repo.Blobs(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	manifests, err := repo.Manifests(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	return &fixture{fsys: fsys, ns: ns, repo: repo, blobs: blobs, manifests: manifests}
}

func (f *fixture) pushBlob(t *testing.T, ctx context.Context, data string) manifestv1.Descriptor {
	t.Helper()

	w, err := f.blobs.Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	_, _ = io.Copy(w, bytes.NewBufferString(data))

	d, err := w.Commit(ctx, manifestv1.Descriptor{Digest: digest.FromString(data)})
	testingx.Expect(t, err, testingx.Be[error](nil))

	return *d
}

func (f *fixture) pushManifest(t *testing.T, ctx context.Context, config manifestv1.Descriptor, layers ...manifestv1.Descriptor) digest.Digest {
	t.Helper()

	dgst, err := f.manifests.Put(ctx, manifestv1.OciManifest{
		Versioned: ocispecs.Versioned{SchemaVersion: 2},
		MediaType: specv1.MediaTypeImageManifest,
		Config:    config,
		Layers:    layers,
	})
	testingx.Expect(t, err, testingx.Be[error](nil))

	return dgst
}

func TestMarkAndSweep(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)

	// kept: index -> manifest -> {config, layer}, reachable through the tag
	keptConfig := f.pushBlob(t, ctx, `{"os":"linux"}`)
	keptLayer := f.pushBlob(t, ctx, "kept layer bytes")
	keptManifest := f.pushManifest(t, ctx, keptConfig, keptLayer)

	indexDigest, err := f.manifests.Put(ctx, manifestv1.OciIndex{
		Versioned: ocispecs.Versioned{SchemaVersion: 2},
		MediaType: specv1.MediaTypeImageIndex,
		Manifests: []manifestv1.Descriptor{
			{MediaType: specv1.MediaTypeImageManifest, Digest: keptManifest},
		},
	})
	testingx.Expect(t, err, testingx.Be[error](nil))

	tags, err := f.repo.Tags(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))

	err = tags.Tag(ctx, "keep", manifestv1.Descriptor{Digest: indexDigest})
	testingx.Expect(t, err, testingx.Be[error](nil))

	// garbage: a manifest nothing tags, with its own config and layer
	staleConfig := f.pushBlob(t, ctx, `{"os":"linux","stale":true}`)
	staleLayer := f.pushBlob(t, ctx, "stale layer bytes")
	staleManifest := f.pushManifest(t, ctx, staleConfig, staleLayer)

	d := driver.FromFileSystem(f.fsys)

	t.Run("dry run removes nothing", func(t *testing.T) {
		err := garbagecollector.MarkAndSweepExcludeModifiedIn(ctx, f.ns, d, 0, true)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = f.manifests.Info(ctx, staleManifest)
		testingx.Expect(t, err, testingx.Be[error](nil))
	})

	t.Run("recent activity is excluded", func(t *testing.T) {
		err := garbagecollector.MarkAndSweepExcludeModifiedIn(ctx, f.ns, d, time.Hour, false)
		testingx.Expect(t, err, testingx.Be[error](nil))

		// everything was linked moments ago, nothing may be touched
		_, err = f.manifests.Info(ctx, staleManifest)
		testingx.Expect(t, err, testingx.Be[error](nil))
	})

	t.Run("sweep", func(t *testing.T) {
		err := garbagecollector.MarkAndSweepExcludeModifiedIn(ctx, f.ns, d, 0, false)
		testingx.Expect(t, err, testingx.Be[error](nil))

		t.Run("untagged manifest and its blobs are gone", func(t *testing.T) {
			_, err := f.manifests.Info(ctx, staleManifest)
			testingx.Expect(t, errors.As(err, new(*content.ErrManifestUnknownRevision)), testingx.Be(true))

			_, err = f.blobs.Info(ctx, staleLayer.Digest)
			testingx.Expect(t, errors.As(err, new(*content.ErrBlobUnknown)), testingx.Be(true))

			blobs, err := collect.Blobs(ctx, f.ns)
			testingx.Expect(t, err, testingx.Be[error](nil))

			for _, dgst := range blobs {
				testingx.Expect(t, dgst, testingx.Not(testingx.Be(staleLayer.Digest)))
				testingx.Expect(t, dgst, testingx.Not(testingx.Be(staleConfig.Digest)))
				testingx.Expect(t, dgst, testingx.Not(testingx.Be(staleManifest)))
			}
		})

		t.Run("content reachable through the tagged index survives", func(t *testing.T) {
			_, err := f.manifests.Info(ctx, indexDigest)
			testingx.Expect(t, err, testingx.Be[error](nil))

			_, err = f.manifests.Info(ctx, keptManifest)
			testingx.Expect(t, err, testingx.Be[error](nil))

			_, err = f.blobs.Info(ctx, keptLayer.Digest)
			testingx.Expect(t, err, testingx.Be[error](nil))

			_, err = f.blobs.Info(ctx, keptConfig.Digest)
			testingx.Expect(t, err, testingx.Be[error](nil))

			d, err := tags.Get(ctx, "keep")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Digest, testingx.Be(indexDigest))
		})
	})
}
