package v1

import (
	"fmt"

	"github.com/octohelm/courier/pkg/validator"
	"github.com/octohelm/courier/pkg/validator/taggedunion"
	"github.com/opencontainers/go-digest"
	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// Payload couples a parsed Manifest with the exact bytes it was decoded
// from. The digest is always computed from those bytes, never from a
// re-serialized form, so the content address of a stored manifest matches
// what the client pushed byte for byte.
type Payload struct {
	Manifest `json:"-"`

	raw  []byte
	dgst digest.Digest
}

// FromBytes parses raw manifest bytes against the recognized schemas,
// keyed by the declared mediaType.
func FromBytes(raw []byte) (*Payload, error) {
	p := &Payload{}
	if err := p.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return p, nil
}

func From(m Manifest) (*Payload, error) {
	switch x := m.(type) {
	case *Payload:
		return x, nil
	case Payload:
		return &x, nil
	}

	known := (&Payload{}).Mapping()
	if _, ok := known[m.Type()]; ok {
		return &Payload{Manifest: m}, nil
	}

	return nil, fmt.Errorf("unrecognized manifest media type %s", m.Type())
}

func (Payload) Discriminator() string {
	return "mediaType"
}

func (Payload) Mapping() map[string]any {
	return map[string]any{
		specv1.MediaTypeImageManifest: Manifest(&OciManifest{}),
		specv1.MediaTypeImageIndex:    Manifest(&OciIndex{}),
		DockerMediaTypeManifest:       Manifest(&DockerManifest{}),
		DockerMediaTypeManifestList:   Manifest(&DockerManifestList{}),
	}
}

func (p *Payload) SetUnderlying(u any) {
	p.Manifest = u.(Manifest)
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	decoded := Payload{
		raw:  data,
		dgst: digest.FromBytes(data),
	}
	if err := taggedunion.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = decoded
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.raw) != 0 {
		return p.raw[:], nil
	}
	if p.Manifest == nil {
		return []byte("{}"), nil
	}
	return validator.Marshal(p.Manifest)
}

// Payload returns the canonical bytes and their digest.
func (p *Payload) Payload() ([]byte, digest.Digest, error) {
	if p.raw == nil {
		raw, err := p.MarshalJSON()
		if err != nil {
			return nil, "", err
		}
		p.raw = raw
		p.dgst = digest.FromBytes(raw)
	}
	return p.raw, p.dgst, nil
}
