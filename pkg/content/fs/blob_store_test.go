package fs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/octohelm/unifs/pkg/filesystem/local"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
	contentfs "github.com/ociworks/distkit/pkg/content/fs"
)

func TestBlobStore(t *testing.T) {
	fsys := local.NewFS(t.TempDir())

	s := contentfs.NewBlobStore(fsys)

	str := "12345678"

	t.Run("put contents", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, _ = io.Copy(w, bytes.NewBufferString(str))

		d, err := w.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
		testingx.Expect(t, d.Digest, testingx.Be(digest.FromString(str)))

		t.Run("info", func(t *testing.T) {
			d, err := s.Info(ctx, digest.FromString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
		})

		t.Run("open", func(t *testing.T) {
			r, err := s.Open(ctx, digest.FromString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			defer r.Close()

			data, _ := io.ReadAll(r)
			testingx.Expect(t, string(data), testingx.Be(str))
		})

		t.Run("open with seek", func(t *testing.T) {
			r, err := s.Open(ctx, digest.FromString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			defer r.Close()

			_, err = r.Seek(4, io.SeekStart)
			testingx.Expect(t, err, testingx.Be[error](nil))

			data, _ := io.ReadAll(r)
			testingx.Expect(t, string(data), testingx.Be(str[4:]))
		})

		t.Run("put identical contents again", func(t *testing.T) {
			w, err := s.Writer(ctx)
			testingx.Expect(t, err, testingx.Be[error](nil))
			defer w.Close()

			_, _ = io.Copy(w, bytes.NewBufferString(str))

			d, err := w.Commit(ctx, manifestv1.Descriptor{Digest: digest.FromString(str)})
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Digest, testingx.Be(digest.FromString(str)))

			// still exactly one stored copy
			n := 0
			for _, err := range s.(content.DigestIterable).Digests(ctx) {
				testingx.Expect(t, err, testingx.Be[error](nil))
				n++
			}
			testingx.Expect(t, n, testingx.Be(1))
		})
	})

	t.Run("commit with wrong digest leaves nothing behind", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, _ = io.Copy(w, bytes.NewBufferString("not the claimed content"))

		claimed := digest.FromString("something else")

		_, err = w.Commit(ctx, manifestv1.Descriptor{Digest: claimed})
		testingx.Expect(t, errors.As(err, new(*content.ErrBlobInvalidDigest)), testingx.Be(true))

		_, err = s.Info(ctx, digest.FromString("not the claimed content"))
		testingx.Expect(t, errors.As(err, new(*content.ErrBlobUnknown)), testingx.Be(true))
	})

	t.Run("commit with wrong size is rejected", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, _ = io.Copy(w, bytes.NewBufferString("1234"))

		_, err = w.Commit(ctx, manifestv1.Descriptor{Size: 99})
		testingx.Expect(t, errors.As(err, new(*content.ErrBlobInvalidLength)), testingx.Be(true))
	})

	t.Run("resume upload across writers", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = w.Write([]byte("hello, "))
		testingx.Expect(t, err, testingx.Be[error](nil))

		id := w.ID()

		err = w.Close()
		testingx.Expect(t, err, testingx.Be[error](nil))

		resumed, err := s.Resume(ctx, id)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, resumed.Size(ctx), testingx.Be(int64(len("hello, "))))

		_, err = resumed.Write([]byte("world"))
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := resumed.Commit(ctx, manifestv1.Descriptor{Digest: digest.FromString("hello, world")})
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Digest, testingx.Be(digest.FromString("hello, world")))

		r, err := s.Open(ctx, d.Digest)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer r.Close()

		data, _ := io.ReadAll(r)
		testingx.Expect(t, string(data), testingx.Be("hello, world"))
	})

	t.Run("resume after abandoned writer rehashes staged bytes", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		head := bytes.Repeat([]byte("x"), 8192)
		_, err = w.Write(head)
		testingx.Expect(t, err, testingx.Be[error](nil))

		id := w.ID()

		// no Close: the staged bytes are on disk but no hash state
		// covering them was persisted

		resumed, err := s.Resume(ctx, id)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, resumed.Size(ctx), testingx.Be(int64(len(head))))

		_, err = resumed.Write([]byte("tail"))
		testingx.Expect(t, err, testingx.Be[error](nil))

		d, err := resumed.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))

		full := append(append([]byte{}, head...), []byte("tail")...)
		testingx.Expect(t, d.Size, testingx.Be(int64(len(full))))
		testingx.Expect(t, d.Digest, testingx.Be(digest.FromBytes(full)))

		r, err := s.Open(ctx, d.Digest)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer r.Close()

		data, _ := io.ReadAll(r)
		testingx.Expect(t, digest.FromBytes(data), testingx.Be(d.Digest))
	})

	t.Run("resume unknown id", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.Resume(ctx, "no-such-upload")
		testingx.Expect(t, errors.As(err, new(*content.ErrBlobUploadUnknown)), testingx.Be(true))
	})

	t.Run("cancel discards staging", func(t *testing.T) {
		ctx := context.Background()

		w, err := s.Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, _ = w.Write([]byte("abandoned"))

		id := w.ID()

		err = w.Cancel(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = s.Resume(ctx, id)
		testingx.Expect(t, errors.As(err, new(*content.ErrBlobUploadUnknown)), testingx.Be(true))
	})

	t.Run("unknown algorithm is not a not-found", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.Info(ctx, digest.Digest("whirlpool:0123456789abcdef"))
		testingx.Expect(t, errors.As(err, new(*content.ErrDigestAlgorithmUnknown)), testingx.Be(true))
	})
}

func TestBlobStoreConcurrentCommits(t *testing.T) {
	fsys := local.NewFS(t.TempDir())

	s := contentfs.NewBlobStore(fsys)

	ctx := context.Background()

	payload := []byte("shared layer contents")
	want := digest.FromBytes(payload)

	n := 2
	descs := make([]*manifestv1.Descriptor, n)
	errs := make([]error, n)

	wg := &sync.WaitGroup{}
	for i := range descs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			w, err := s.Writer(ctx)
			if err != nil {
				errs[i] = err
				return
			}

			if _, err := w.Write(payload); err != nil {
				errs[i] = err
				return
			}

			descs[i], errs[i] = w.Commit(ctx, manifestv1.Descriptor{})
		}()
	}
	wg.Wait()

	for i := range descs {
		testingx.Expect(t, errs[i], testingx.Be[error](nil))
		testingx.Expect(t, descs[i].Digest, testingx.Be(want))
	}

	// both commits converge on a single stored copy
	stored := 0
	for _, err := range s.(content.DigestIterable).Digests(ctx) {
		testingx.Expect(t, err, testingx.Be[error](nil))
		stored++
	}
	testingx.Expect(t, stored, testingx.Be(1))
}
