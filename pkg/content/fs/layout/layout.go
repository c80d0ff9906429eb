package layout

import (
	"path"
	"strconv"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// Default follows the docker/registry/v2 on-disk scheme, so an existing
// registry root can be served as-is.
const Default = Layout("docker/registry/v2")

type Layout string

// uploads/{id}
func (b Layout) UploadsPath() string {
	return path.Join(string(b), "uploads")
}

func (b Layout) UploadRootPath(id string) string {
	return path.Join(b.UploadsPath(), id)
}

// uploads/{id}/data, staged bytes, private until commit
func (b Layout) UploadDataPath(id string) string {
	return path.Join(b.UploadRootPath(id), "data")
}

// uploads/{id}/startedat
func (b Layout) UploadStartedAtPath(id string) string {
	return path.Join(b.UploadRootPath(id), "startedat")
}

// uploads/{id}/hashstates/{offset}, serialized digest state for resume
func (b Layout) UploadHashStatePath(id string, offset int64) string {
	return path.Join(b.UploadRootPath(id), "hashstates", strconv.FormatInt(offset, 10))
}

// blobs
func (b Layout) BlobsPath() string {
	return path.Join(string(b), "blobs")
}

// blobs/{algorithm}/{hex[:2]}/{hex}
func (b Layout) BlobRootPath(dgst digest.Digest) string {
	return path.Join(b.BlobsPath(), dgst.Algorithm().String(), dgst.Hex()[0:2], dgst.Hex())
}

// blobs/{algorithm}/{hex[:2]}/{hex}/data
func (b Layout) BlobDataPath(dgst digest.Digest) string {
	return path.Join(b.BlobRootPath(dgst), "data")
}

// repositories
func (b Layout) RepositoriesPath() string {
	return path.Join(string(b), "repositories")
}

// repositories/{name}
func (b Layout) RepositoryPath(name reference.Named) string {
	return path.Join(b.RepositoriesPath(), name.Name())
}

// repositories/{name}/_layers
func (b Layout) RepositoryLayersPath(name reference.Named) string {
	return path.Join(b.RepositoryPath(name), "_layers")
}

// repositories/{name}/_layers/{algorithm}/{hex}/link
func (b Layout) RepositoryLayerLinkPath(name reference.Named, dgst digest.Digest) string {
	return path.Join(b.RepositoryLayersPath(name), dgst.Algorithm().String(), dgst.Hex(), "link")
}

// repositories/{name}/_manifests/revisions
func (b Layout) RepositoryManifestRevisionsPath(name reference.Named) string {
	return path.Join(b.RepositoryPath(name), "_manifests", "revisions")
}

// repositories/{name}/_manifests/revisions/{algorithm}/{hex}
func (b Layout) RepositoryManifestRevisionPath(name reference.Named, dgst digest.Digest) string {
	return path.Join(b.RepositoryManifestRevisionsPath(name), dgst.Algorithm().String(), dgst.Hex())
}

// repositories/{name}/_manifests/revisions/{algorithm}/{hex}/link
func (b Layout) RepositoryManifestRevisionLinkPath(name reference.Named, dgst digest.Digest) string {
	return path.Join(b.RepositoryManifestRevisionPath(name, dgst), "link")
}

// repositories/{name}/_manifests/tags
func (b Layout) RepositoryManifestTagsPath(name reference.Named) string {
	return path.Join(b.RepositoryPath(name), "_manifests", "tags")
}

// repositories/{name}/_manifests/tags/{tag}
func (b Layout) RepositoryManifestTagPath(name reference.Named, tag string) string {
	return path.Join(b.RepositoryManifestTagsPath(name), tag)
}

// repositories/{name}/_manifests/tags/{tag}/current/link
func (b Layout) RepositoryManifestTagCurrentLinkPath(name reference.Named, tag string) string {
	return path.Join(b.RepositoryManifestTagPath(name, tag), "current", "link")
}

// repositories/{name}/_manifests/tags/{tag}/index/{algorithm}/{hex}
func (b Layout) RepositoryManifestTagIndexEntryPath(name reference.Named, tag string, dgst digest.Digest) string {
	return path.Join(b.RepositoryManifestTagPath(name, tag), "index", dgst.Algorithm().String(), dgst.Hex())
}

// repositories/{name}/_manifests/tags/{tag}/index/{algorithm}/{hex}/link
func (b Layout) RepositoryManifestTagIndexLinkPath(name reference.Named, tag string, dgst digest.Digest) string {
	return path.Join(b.RepositoryManifestTagIndexEntryPath(name, tag, dgst), "link")
}
