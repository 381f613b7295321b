package client

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DispatchAll sends reqs concurrently, at most WithMaxConcurrency at a time,
// and returns the envelopes in input order. The first failure cancels the
// requests still pending and is returned; slots that did not complete are
// nil.
func (c *Client) DispatchAll(ctx context.Context, reqs []Request) ([]*Response, error) {
	out := make([]*Response, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			resp, err := c.Dispatch(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			out[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
