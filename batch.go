package pgstac

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

// ItemOutcome is the result for one item of a bulk call.
type ItemOutcome struct {
	// Index is the item's position in the input.
	Index      int
	Collection string
	ID         string
	// Err is nil when the item was written.
	Err error
}

// OK reports whether the item was written.
func (o ItemOutcome) OK() bool {
	return o.Err == nil
}

// BatchResult holds one outcome per input item, in input order.
type BatchResult struct {
	Outcomes []ItemOutcome
}

// Succeeded returns the outcomes of the written items, in input order.
func (r *BatchResult) Succeeded() []ItemOutcome {
	return r.filter(true)
}

// Failed returns the outcomes of the items that were not written, in input order.
func (r *BatchResult) Failed() []ItemOutcome {
	return r.filter(false)
}

func (r *BatchResult) filter(ok bool) []ItemOutcome {
	out := []ItemOutcome{}
	for _, o := range r.Outcomes {
		if o.OK() == ok {
			out = append(out, o)
		}
	}
	return out
}

// AddItems creates items in bulk. See UpsertItems for how outcomes are reported.
func (c *Client) AddItems(ctx context.Context, items []Item) (*BatchResult, error) {
	return c.writeItems(ctx, constants.FnCreateItems, items)
}

// UpsertItems creates or replaces items in bulk.
//
// pgstac writes a batch in a single statement, so the items that reach the
// store are written all together or not at all. Items that fail the client's
// own checks (missing ids, values that cannot be encoded) are not sent and
// are marked failed; if the rest are written the call returns the result with
// an ErrPartialFailure error. If the store rejects the batch, every sent item
// is marked failed with the store's error, which is returned with its own
// Kind. The result is never nil and is also attached to the returned *Error.
// Retrying after a partial failure is the caller's decision.
func (c *Client) UpsertItems(ctx context.Context, items []Item) (*BatchResult, error) {
	return c.writeItems(ctx, constants.FnUpsertItems, items)
}

func (c *Client) writeItems(ctx context.Context, fn string, items []Item) (*BatchResult, error) {
	t := target{op: fn, itemWrite: true}
	result := &BatchResult{Outcomes: make([]ItemOutcome, len(items))}
	if len(items) == 0 {
		return result, nil
	}

	encoded := make([]json.RawMessage, 0, len(items))
	sent := make([]int, 0, len(items))
	for i, item := range items {
		result.Outcomes[i] = ItemOutcome{Index: i, Collection: item.Collection, ID: item.ID}
		it := target{op: fn, collection: item.Collection, id: item.ID, itemWrite: true}
		if err := item.Validate(); err != nil {
			result.Outcomes[i].Err = it.errorf(KindInvalidInput, err)
			continue
		}
		data, err := encode(it, item)
		if err != nil {
			result.Outcomes[i].Err = err
			continue
		}
		encoded = append(encoded, data)
		sent = append(sent, i)
	}

	if len(sent) == 0 {
		e := t.errorf(KindInvalidInput, errors.Join(outcomeErrors(result)...))
		e.Batch = result
		return result, e
	}

	payload, err := encode(t, encoded)
	if err != nil {
		return result, err
	}
	if err := c.void(ctx, t, payload); err != nil {
		var e *Error
		errors.As(err, &e)
		for _, i := range sent {
			result.Outcomes[i].Err = e
		}
		e.Batch = result
		return result, e
	}

	if len(sent) < len(items) {
		// Per-item causes stay on the outcomes so the error matches one Kind only.
		e := t.errorf(KindPartialFailure, fmt.Errorf("%d of %d items not written", len(items)-len(sent), len(items)))
		e.Batch = result
		return result, e
	}
	return result, nil
}

func outcomeErrors(r *BatchResult) []error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, o.Err)
	}
	return errs
}
