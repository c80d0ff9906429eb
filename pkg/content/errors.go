package content

import (
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/octohelm/courier/pkg/statuserror"
)

type ErrNotImplemented struct {
	statuserror.NotImplemented

	Reason error
}

func (err *ErrNotImplemented) Error() string {
	return fmt.Sprintf("not implemented: %s", err.Reason)
}

type ErrBlobUnknown struct {
	statuserror.NotFound

	Digest digest.Digest
}

func (ErrBlobUnknown) ErrCode() string {
	return "BLOB_UNKNOWN"
}

func (err *ErrBlobUnknown) Error() string {
	return fmt.Sprintf("unknown blob digest=%s", err.Digest)
}

// ErrDigestAlgorithmUnknown is returned when a digest names an algorithm
// the store does not recognize. Distinct from ErrBlobUnknown: the content
// may well exist under a supported algorithm.
type ErrDigestAlgorithmUnknown struct {
	statuserror.BadRequest

	Digest digest.Digest
}

func (ErrDigestAlgorithmUnknown) ErrCode() string {
	return "DIGEST_INVALID"
}

func (err *ErrDigestAlgorithmUnknown) Error() string {
	return fmt.Sprintf("unsupported digest algorithm %q", err.Digest.Algorithm())
}

// ErrBlobInvalidDigest reports a mismatch between a claimed digest and the
// digest computed from received bytes. Staged data is always discarded.
type ErrBlobInvalidDigest struct {
	statuserror.BadRequest

	Digest digest.Digest
	Reason error
}

func (ErrBlobInvalidDigest) ErrCode() string {
	return "DIGEST_INVALID"
}

func (err *ErrBlobInvalidDigest) Error() string {
	return fmt.Sprintf("invalid digest %q: %v", err.Digest, err.Reason)
}

type ErrBlobInvalidLength struct {
	statuserror.RequestedRangeNotSatisfiable

	Reason string
}

func (ErrBlobInvalidLength) ErrCode() string {
	return "SIZE_INVALID"
}

func (err *ErrBlobInvalidLength) Error() string {
	return fmt.Sprintf("blob invalid length: %s", err.Reason)
}

// ErrBlobUploadInvalidOffset rejects a chunk whose claimed offset does not
// equal the bytes received so far. The session stays usable at Received.
type ErrBlobUploadInvalidOffset struct {
	statuserror.RequestedRangeNotSatisfiable

	ID       string
	Offset   int64
	Received int64
}

func (ErrBlobUploadInvalidOffset) ErrCode() string {
	return "BLOB_UPLOAD_INVALID"
}

func (err *ErrBlobUploadInvalidOffset) Error() string {
	return fmt.Sprintf("upload %s: chunk offset %d does not match received length %d", err.ID, err.Offset, err.Received)
}

type ErrBlobUploadUnknown struct {
	statuserror.NotFound

	ID string
}

func (ErrBlobUploadUnknown) ErrCode() string {
	return "BLOB_UPLOAD_UNKNOWN"
}

func (err *ErrBlobUploadUnknown) Error() string {
	return fmt.Sprintf("blob upload unknown id=%s", err.ID)
}

type ErrBlobUploadExpired struct {
	statuserror.NotFound

	ID       string
	Deadline time.Time
}

func (ErrBlobUploadExpired) ErrCode() string {
	return "BLOB_UPLOAD_UNKNOWN"
}

func (err *ErrBlobUploadExpired) Error() string {
	return fmt.Sprintf("blob upload %s expired at %s", err.ID, err.Deadline.Format(time.RFC3339))
}

type ErrTagUnknown struct {
	statuserror.NotFound

	Tag string
}

func (ErrTagUnknown) ErrCode() string {
	return "MANIFEST_UNKNOWN"
}

func (err *ErrTagUnknown) Error() string {
	return fmt.Sprintf("unknown tag=%s", err.Tag)
}

type ErrRepositoryUnknown struct {
	statuserror.NotFound

	Name string
}

func (ErrRepositoryUnknown) ErrCode() string {
	return "NAME_UNKNOWN"
}

func (err *ErrRepositoryUnknown) Error() string {
	return fmt.Sprintf("unknown repository name=%s", err.Name)
}

type ErrRepositoryNameInvalid struct {
	statuserror.BadRequest

	Name   string
	Reason error
}

func (ErrRepositoryNameInvalid) ErrCode() string {
	return "NAME_INVALID"
}

func (err *ErrRepositoryNameInvalid) Error() string {
	return fmt.Sprintf("repository name %q invalid: %v", err.Name, err.Reason)
}

type ErrManifestUnknown struct {
	statuserror.NotFound

	Name string
	Tag  string
}

func (ErrManifestUnknown) ErrCode() string {
	return "MANIFEST_UNKNOWN"
}

func (err *ErrManifestUnknown) Error() string {
	return fmt.Sprintf("unknown manifest name=%s tag=%s", err.Name, err.Tag)
}

type ErrManifestUnknownRevision struct {
	statuserror.NotFound

	Name     string
	Revision digest.Digest
}

func (ErrManifestUnknownRevision) ErrCode() string {
	return "MANIFEST_UNKNOWN"
}

func (err *ErrManifestUnknownRevision) Error() string {
	return fmt.Sprintf("unknown manifest name=%s revision=%s", err.Name, err.Revision)
}

// ErrManifestBlobUnknown is the dangling-reference rejection: the manifest
// points at content that does not exist, so the manifest is not stored.
type ErrManifestBlobUnknown struct {
	statuserror.NotFound

	Digest digest.Digest
}

func (ErrManifestBlobUnknown) ErrCode() string {
	return "MANIFEST_BLOB_UNKNOWN"
}

func (err *ErrManifestBlobUnknown) Error() string {
	return fmt.Sprintf("unknown blob %v on manifest", err.Digest)
}

type ErrManifestMediaTypeUnsupported struct {
	statuserror.BadRequest

	MediaType string
}

func (ErrManifestMediaTypeUnsupported) ErrCode() string {
	return "UNSUPPORTED"
}

func (err *ErrManifestMediaTypeUnsupported) Error() string {
	return fmt.Sprintf("manifest media type %q not allowed", err.MediaType)
}
