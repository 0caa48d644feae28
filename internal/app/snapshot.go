package app

import (
	"encoding/json"
	"fmt"

	"degendecks/internal/domain"

	"github.com/ipfs/go-cid"
	mc "github.com/multiformats/go-multicodec"
	mh "github.com/multiformats/go-multihash"
)

var snapshotPrefix = cid.Prefix{
	Version:  1,
	Codec:    uint64(mc.Json),
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

// SnapshotCID returns the content id of the JSON encoding of g.
func SnapshotCID(g *domain.Game) (string, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	c, err := snapshotPrefix.Sum(data)
	if err != nil {
		return "", fmt.Errorf("failed to hash snapshot: %w", err)
	}
	return c.String(), nil
}
