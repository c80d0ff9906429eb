package content

import (
	"errors"

	"github.com/opencontainers/go-digest"
)

type Digest digest.Digest

func (d *Digest) UnmarshalText(t []byte) error {
	dgst, err := digest.Parse(string(t))
	if err != nil {
		return err
	}
	*d = Digest(dgst)
	return nil
}

// Reference is either a tag name or a digest string.
type Reference string

func (r Reference) Digest() (digest.Digest, error) {
	return digest.Parse(string(r))
}

func (r Reference) Tag() (string, error) {
	if _, err := r.Digest(); err != nil {
		return string(r), nil
	}
	return "", errors.New("digest not a tag")
}
