package messaging

import (
	"context"
	"errors"
)

// Sink is anything that accepts published messages.
type Sink interface {
	Publish(ctx context.Context, v interface{}) error
}

// Fanout publishes every message to each sink in order. A failing sink does
// not stop delivery to the rest; their errors are joined.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, v interface{}) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
