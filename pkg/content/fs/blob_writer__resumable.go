package fs

import (
	"context"
	"encoding"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"iter"
	"path"
	"strconv"

	"github.com/go-courier/logr"
)

// restoreDigestState brings the digester in sync with the bytes already
// staged. It reloads the serialized hash state closest to the staged size,
// then replays any remaining staged bytes through the hash, so the digest
// computed at commit always covers the full data file.
func (bw *blobWriter) restoreDigestState(ctx context.Context) error {
	if !bw.resumable {
		return nil
	}

	h, ok := bw.digester.Hash().(encoding.BinaryUnmarshaler)
	if !ok {
		return nil
	}

	offset := bw.fileWriter.Size()
	if offset == bw.written {
		return nil
	}

	var match digestStateEntry

	for state, err := range bw.storedDigestStates(ctx) {
		if err != nil {
			return fmt.Errorf("unable to load stored hash states at offset %d: %w", offset, err)
		}

		if state.offset > offset {
			continue
		}

		if state.offset > match.offset {
			match = state
		}

		if state.offset == offset {
			break
		}
	}

	if match.offset == 0 {
		h.(hash.Hash).Reset()
		bw.written = 0
	} else {
		stored, err := bw.workspace.GetContent(ctx, match.path)
		if err != nil {
			return err
		}

		if err := h.UnmarshalBinary(stored); err != nil {
			return err
		}

		bw.written = match.offset
	}

	// a writer abandoned without Close leaves staged bytes with no state
	// covering them
	if bw.written < offset {
		return bw.rehashStagedBytes(ctx, offset)
	}

	return nil
}

// rehashStagedBytes feeds the staged bytes in [bw.written, offset) back
// through the digester.
func (bw *blobWriter) rehashStagedBytes(ctx context.Context, offset int64) error {
	r, err := bw.workspace.Reader(ctx, bw.path)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	if _, err := r.Seek(bw.written, io.SeekStart); err != nil {
		return err
	}

	n, err := io.CopyN(bw.digester.Hash(), r, offset-bw.written)
	bw.written += n
	if err != nil {
		return fmt.Errorf("unable to rehash staged bytes up to offset %d: %w", offset, err)
	}

	return nil
}

type digestStateEntry struct {
	offset int64
	path   string
}

func (bw *blobWriter) storedDigestStates(ctx context.Context) iter.Seq2[digestStateEntry, error] {
	statesDir := path.Dir(bw.workspace.layout.UploadHashStatePath(bw.id, bw.written))

	return func(yield func(digestStateEntry, error) bool) {
		_ = bw.workspace.WalkDir(ctx, statesDir, func(p string, d fs.DirEntry, err error) error {
			if p == "." {
				return nil
			}

			if d.IsDir() {
				return fs.SkipDir
			}

			offset, err := strconv.ParseInt(path.Base(p), 0, 64)
			if err != nil {
				logr.FromContext(ctx).Error(fmt.Errorf("invalid hash state filename %s: %w", p, err))
			}

			if !yield(digestStateEntry{offset: offset, path: bw.workspace.layout.UploadHashStatePath(bw.id, offset)}, err) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

func (bw *blobWriter) storeDigestState(ctx context.Context) error {
	if !bw.resumable {
		return nil
	}

	h, ok := bw.digester.Hash().(encoding.BinaryMarshaler)
	if !ok {
		return nil
	}

	state, err := h.MarshalBinary()
	if err != nil {
		return err
	}

	return bw.workspace.PutContent(ctx, bw.workspace.layout.UploadHashStatePath(bw.id, bw.written), state)
}
