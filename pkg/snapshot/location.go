package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/dd0wney/mspread/pkg/network"
)

// S3Scheme prefixes snapshot locations held in S3.
const S3Scheme = "s3://"

// ParseS3URL splits an s3://bucket/key location. isS3 is false for plain
// file paths; a malformed s3 location returns an error.
func ParseS3URL(loc string) (bucket, key string, isS3 bool, err error) {
	rest, ok := strings.CutPrefix(loc, S3Scheme)
	if !ok {
		return "", "", false, nil
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", loc)
	}
	return bucket, key, true, nil
}

// OpenS3Store returns a store for bucket over client. A nil client is built
// from the default AWS configuration and the MSPREAD_S3_* environment.
func OpenS3Store(ctx context.Context, bucket string, client ObjectAPI) (*S3Store, error) {
	if client != nil {
		return NewS3StoreWithClient(client, bucket, ""), nil
	}
	return NewS3Store(ctx, S3ConfigFromEnv(), bucket, "")
}

// Save writes s to a file path or an s3://bucket/key location.
func Save(ctx context.Context, loc string, s network.Snapshot, client ObjectAPI) error {
	bucket, key, isS3, err := ParseS3URL(loc)
	if err != nil {
		return err
	}
	if !isS3 {
		return WriteFile(loc, s)
	}
	store, err := OpenS3Store(ctx, bucket, client)
	if err != nil {
		return err
	}
	_, err = store.Put(ctx, key, s)
	return err
}

// Load reads the snapshot at a file path or an s3://bucket/key location.
func Load(ctx context.Context, loc string, client ObjectAPI) (network.Snapshot, error) {
	bucket, key, isS3, err := ParseS3URL(loc)
	if err != nil {
		return network.Snapshot{}, err
	}
	if !isS3 {
		return ReadFile(loc)
	}
	store, err := OpenS3Store(ctx, bucket, client)
	if err != nil {
		return network.Snapshot{}, err
	}
	return store.Get(ctx, key)
}

// OpenTopology loads the snapshot at loc and rebuilds the topology.
func OpenTopology(ctx context.Context, loc string, client ObjectAPI, opts ...network.Option) (*network.Topology, error) {
	s, err := Load(ctx, loc, client)
	if err != nil {
		return nil, err
	}
	return network.FromSnapshot(s, opts...)
}
