package v1

import (
	"iter"

	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

type OciIndex specv1.Index

var _ Manifest = OciIndex{}

func (OciIndex) Type() string {
	return specv1.MediaTypeImageIndex
}

func (i OciIndex) References() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for _, m := range i.Manifests {
			if !yield(m) {
				return
			}
		}
	}
}

type DockerManifestList specv1.Index

var _ Manifest = DockerManifestList{}

func (DockerManifestList) Type() string {
	return DockerMediaTypeManifestList
}

func (i DockerManifestList) References() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for _, m := range i.Manifests {
			if !yield(m) {
				return
			}
		}
	}
}

// IsIndex reports whether mediaType names a multi-platform index schema.
func IsIndex(mediaType string) bool {
	return mediaType == specv1.MediaTypeImageIndex || mediaType == DockerMediaTypeManifestList
}
