package v1

import (
	"iter"

	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

type Descriptor = specv1.Descriptor

const (
	DockerMediaTypeManifest     = "application/vnd.docker.distribution.manifest.v2+json"
	DockerMediaTypeManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
)

// Manifest is a parsed manifest document of any recognized schema.
//
// References yields every descriptor the document points at: the config
// blob and layer blobs for a single-platform manifest, or the child
// manifests for an index.
type Manifest interface {
	Type() string
	References() iter.Seq[Descriptor]
}
