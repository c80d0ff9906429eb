package redisindex

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	"github.com/redis/go-redis/v9"

	"github.com/ociworks/distkit/pkg/content"
)

// New returns a TagIndex backed by Redis. Each repository maps to one
// hash keyed by tag name; Redis's per-connection ordering gives the
// read-your-writes consistency the core expects from the index service.
func New(client redis.UniversalClient) content.TagIndex {
	return &redisIndex{client: client}
}

// NewFromURL dials the index service named by a connection string such as
// redis://localhost:6379. The string is treated as already validated.
func NewFromURL(connStr string) (content.TagIndex, error) {
	opt, err := redis.ParseURL(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid index connection string: %w", err)
	}
	return New(redis.NewClient(opt)), nil
}

type redisIndex struct {
	client redis.UniversalClient
}

func (r *redisIndex) key(named reference.Named) string {
	return "registry::tags::" + named.Name()
}

func (r *redisIndex) Lookup(ctx context.Context, named reference.Named, tag string) (digest.Digest, error) {
	v, err := r.client.HGet(ctx, r.key(named), tag).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", &content.ErrTagUnknown{Tag: tag}
		}
		return "", err
	}
	return digest.Parse(v)
}

func (r *redisIndex) Upsert(ctx context.Context, named reference.Named, tag string, dgst digest.Digest) error {
	return r.client.HSet(ctx, r.key(named), tag, dgst.String()).Err()
}

func (r *redisIndex) Delete(ctx context.Context, named reference.Named, tag string) error {
	return r.client.HDel(ctx, r.key(named), tag).Err()
}

func (r *redisIndex) All(ctx context.Context, named reference.Named) ([]string, error) {
	tags, err := r.client.HKeys(ctx, r.key(named)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(tags)
	return tags, nil
}
