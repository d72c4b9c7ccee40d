package pgstac

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/constants"
	"github.com/stac-utils/pgstac-go/pkg/models"
)

type (
	Collection = models.Collection
	Item       = models.Item
	Geometry   = models.Geometry
	Bbox       = models.Bbox
)

// Client is a pgstac client over a borrowed connection.
//
// Not every pgstac function is provided. Each method is one call to one
// pgstac function. A Client adds no synchronisation: only one call may be in
// flight on the underlying handle unless that handle is a pool.
type Client struct {
	conn   connection.Conn
	logger zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger makes the client log each call at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l.With().Str("component", "pgstac").Logger()
	}
}

// New wraps conn. The client never closes conn.
func New(conn connection.Conn, opts ...Option) *Client {
	c := &Client{conn: conn, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Conn returns the handle the client was created with.
func (c *Client) Conn() connection.Conn {
	return c.conn
}

// Version returns the pgstac version.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.text(ctx, target{op: constants.FnGetVersion})
}

// Setting returns the value of a pgstac setting.
func (c *Client) Setting(ctx context.Context, name string) (string, error) {
	return c.text(ctx, target{op: constants.FnGetSetting, id: name}, name)
}

// Collections fetches all collections.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	return list[Collection](ctx, c, target{op: constants.FnAllCollections})
}

// Collection fetches a collection by id. A missing collection is ErrNotFound.
func (c *Client) Collection(ctx context.Context, id string) (*Collection, error) {
	t := target{op: constants.FnGetCollection, collection: id}
	if id == "" {
		return nil, t.errorf(KindInvalidInput, constants.ErrEmptyID)
	}
	return optional[Collection](ctx, c, t, id)
}

// AddCollection creates a collection. An existing id is ErrConflict.
func (c *Client) AddCollection(ctx context.Context, collection Collection) error {
	return c.writeCollection(ctx, constants.FnCreateCollection, collection)
}

// UpsertCollection creates a collection or replaces the stored one.
func (c *Client) UpsertCollection(ctx context.Context, collection Collection) error {
	return c.writeCollection(ctx, constants.FnUpsertCollection, collection)
}

// UpdateCollection replaces a stored collection. A missing id is ErrNotFound.
func (c *Client) UpdateCollection(ctx context.Context, collection Collection) error {
	return c.writeCollection(ctx, constants.FnUpdateCollection, collection)
}

func (c *Client) writeCollection(ctx context.Context, fn string, collection Collection) error {
	t := target{op: fn, collection: collection.ID}
	if collection.ID == "" {
		return t.errorf(KindInvalidInput, constants.ErrEmptyID)
	}
	data, err := encode(t, collection)
	if err != nil {
		return err
	}
	return c.void(ctx, t, data)
}

// DeleteCollection deletes a collection by id. A missing id is ErrNotFound.
// Whether items still in the collection block the delete (ErrConflict) or
// are removed with it is decided by the store.
func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	t := target{op: constants.FnDeleteCollection, collection: id}
	if id == "" {
		return t.errorf(KindInvalidInput, constants.ErrEmptyID)
	}
	return c.void(ctx, t, id)
}

// Item fetches an item. A missing item is ErrNotFound.
func (c *Client) Item(ctx context.Context, collection, id string) (*Item, error) {
	t := target{op: constants.FnGetItem, collection: collection, id: id}
	if id == "" {
		return nil, t.errorf(KindInvalidInput, constants.ErrEmptyID)
	}
	if collection == "" {
		return nil, t.errorf(KindInvalidInput, constants.ErrEmptyCollection)
	}
	return optional[Item](ctx, c, t, id, collection)
}

// AddItem creates an item. An unknown collection or an existing id is ErrConflict.
func (c *Client) AddItem(ctx context.Context, item Item) error {
	return c.writeItem(ctx, constants.FnCreateItem, item)
}

// UpdateItem replaces a stored item. A missing item is ErrNotFound.
func (c *Client) UpdateItem(ctx context.Context, item Item) error {
	return c.writeItem(ctx, constants.FnUpdateItem, item)
}

// UpsertItem creates an item or replaces the stored one. An unknown
// collection is ErrConflict.
func (c *Client) UpsertItem(ctx context.Context, item Item) error {
	return c.writeItem(ctx, constants.FnUpsertItem, item)
}

func (c *Client) writeItem(ctx context.Context, fn string, item Item) error {
	t := target{op: fn, collection: item.Collection, id: item.ID, itemWrite: fn != constants.FnUpdateItem}
	if err := item.Validate(); err != nil {
		return t.errorf(KindInvalidInput, err)
	}
	data, err := encode(t, item)
	if err != nil {
		return err
	}
	return c.void(ctx, t, data)
}

// DeleteItem deletes an item. A missing item is ErrNotFound.
func (c *Client) DeleteItem(ctx context.Context, collection, id string) error {
	t := target{op: constants.FnDeleteItem, collection: collection, id: id}
	if id == "" {
		return t.errorf(KindInvalidInput, constants.ErrEmptyID)
	}
	if collection == "" {
		return t.errorf(KindInvalidInput, constants.ErrEmptyCollection)
	}
	return c.void(ctx, t, id, collection)
}
