package fs

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/ociworks/distkit/pkg/apis/manifest/v1"
	"github.com/ociworks/distkit/pkg/content"
	"github.com/ociworks/distkit/pkg/content/fs/driver"
)

type blobWriter struct {
	ctx context.Context

	id        string
	startedAt time.Time

	digester   digest.Digester
	fileWriter driver.FileWriter
	path       string

	written int64

	workspace *workspace

	resumable bool

	closeOnce sync.Once
	err       error
}

func (bw *blobWriter) ID() string {
	return bw.id
}

func (bw *blobWriter) Write(p []byte) (n int, err error) {
	if err := bw.restoreDigestState(bw.ctx); err != nil {
		return 0, err
	}

	n, err = bw.fileWriter.Write(p)
	bw.digester.Hash().Write(p[:n])
	bw.written += int64(n)

	return n, err
}

func (bw *blobWriter) Digest(ctx context.Context) digest.Digest {
	return bw.digester.Digest()
}

func (bw *blobWriter) Size(ctx context.Context) int64 {
	return bw.fileWriter.Size()
}

func (bw *blobWriter) Cancel(ctx context.Context) error {
	if err := bw.fileWriter.Cancel(ctx); err != nil {
		return err
	}
	return bw.discardStaging(ctx)
}

func (bw *blobWriter) Close() error {
	bw.closeOnce.Do(func() {
		if err := bw.fileWriter.Close(); err != nil {
			bw.err = err
			return
		}

		if err := bw.storeDigestState(bw.ctx); err != nil {
			bw.err = err
			return
		}
	})
	return bw.err
}

func (bw *blobWriter) Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	if expected.Digest != "" && !expected.Digest.Algorithm().Available() {
		return nil, &content.ErrDigestAlgorithmUnknown{Digest: expected.Digest}
	}

	if err := bw.fileWriter.Commit(ctx); err != nil {
		return nil, err
	}

	if err := bw.Close(); err != nil {
		return nil, err
	}

	// staging is discarded on every outcome: published content lives under
	// blobs/, failed content must not survive
	defer func() {
		_ = bw.discardStaging(ctx)
	}()

	desc := &manifestv1.Descriptor{
		Size:      bw.Size(ctx),
		Digest:    bw.Digest(ctx),
		MediaType: expected.MediaType,
	}

	if expected.Size > 0 && expected.Size != desc.Size {
		return nil, &content.ErrBlobInvalidLength{
			Reason: fmt.Sprintf("unexpected commit size %d, expected %d", desc.Size, expected.Size),
		}
	}

	if expected.Digest != "" && expected.Digest != desc.Digest {
		return nil, &content.ErrBlobInvalidDigest{
			Digest: desc.Digest,
			Reason: fmt.Errorf("not match %s", expected.Digest),
		}
	}

	if err := bw.publish(ctx, desc); err != nil {
		return nil, err
	}

	return desc, nil
}

func (bw *blobWriter) discardStaging(ctx context.Context) error {
	return bw.workspace.Delete(ctx, path.Dir(bw.path))
}

// publish makes the staged content addressable under its digest via a
// single rename. When the digest already exists the staged copy is simply
// dropped: concurrent identical uploads converge on one stored blob and
// every caller sees success.
func (bw *blobWriter) publish(ctx context.Context, desc *manifestv1.Descriptor) error {
	blobDataPath := bw.workspace.layout.BlobDataPath(desc.Digest)

	if _, err := bw.workspace.Stat(ctx, blobDataPath); err == nil {
		return nil
	}

	return bw.workspace.Move(ctx, bw.path, blobDataPath)
}
