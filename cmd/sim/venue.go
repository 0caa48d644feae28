package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"degendecks/internal/ports"
)

// localVenue hands out in-process venue ids. The simulator drives the
// delegated copy directly, so there is no match to start.
type localVenue struct {
	opened atomic.Int64
	closed atomic.Int64
}

func (v *localVenue) Open(ctx context.Context, ref string) (string, error) {
	n := v.opened.Add(1)
	return fmt.Sprintf("local-%d-%s", n, ref), nil
}

func (v *localVenue) Close(ctx context.Context, venue string) error {
	v.closed.Add(1)
	return nil
}

var _ ports.VenuePort = (*localVenue)(nil)
