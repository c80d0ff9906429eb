package memindex_test

import (
	"context"
	"errors"
	"testing"

	"github.com/distribution/reference"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"

	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/tagindex/memindex"
)

func TestMemIndex(t *testing.T) {
	ctx := context.Background()

	idx := memindex.New()

	named, err := reference.WithName("test/app")
	testingx.Expect(t, err, testingx.Be[error](nil))

	other, err := reference.WithName("test/other")
	testingx.Expect(t, err, testingx.Be[error](nil))

	d1 := digest.FromString("manifest-1")
	d2 := digest.FromString("manifest-2")

	t.Run("lookup of unknown tag", func(t *testing.T) {
		_, err := idx.Lookup(ctx, named, "latest")
		testingx.Expect(t, errors.As(err, new(*content.ErrTagUnknown)), testingx.Be(true))
	})

	t.Run("read your writes", func(t *testing.T) {
		err := idx.Upsert(ctx, named, "latest", d1)
		testingx.Expect(t, err, testingx.Be[error](nil))

		got, err := idx.Lookup(ctx, named, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, got, testingx.Be(d1))

		t.Run("repoint is last writer wins", func(t *testing.T) {
			err := idx.Upsert(ctx, named, "latest", d2)
			testingx.Expect(t, err, testingx.Be[error](nil))

			got, err := idx.Lookup(ctx, named, "latest")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, got, testingx.Be(d2))
		})
	})

	t.Run("bindings are scoped per repository", func(t *testing.T) {
		_, err := idx.Lookup(ctx, other, "latest")
		testingx.Expect(t, errors.As(err, new(*content.ErrTagUnknown)), testingx.Be(true))
	})

	t.Run("all is sorted", func(t *testing.T) {
		err := idx.Upsert(ctx, named, "v2", d2)
		testingx.Expect(t, err, testingx.Be[error](nil))
		err = idx.Upsert(ctx, named, "v1", d1)
		testingx.Expect(t, err, testingx.Be[error](nil))

		all, err := idx.All(ctx, named)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, all, testingx.Equal([]string{"latest", "v1", "v2"}))
	})

	t.Run("delete", func(t *testing.T) {
		err := idx.Delete(ctx, named, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = idx.Lookup(ctx, named, "latest")
		testingx.Expect(t, errors.As(err, new(*content.ErrTagUnknown)), testingx.Be(true))
	})
}
