package pgstac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

// Search is an item search, encoded as the JSON document pgstac's search
// function takes. A Search is a value: build one per call and derive the
// next page's query with WithToken rather than mutating it.
type Search struct {
	// Limit is the page size. Zero leaves it to the store.
	Limit int `json:"limit,omitempty"`

	// Bbox restricts results to items intersecting the box.
	Bbox Bbox `json:"bbox,omitempty"`

	// Datetime is a single RFC 3339 instant or a "start/end" interval where
	// ".." marks an open end. See DatetimeInterval.
	Datetime string `json:"datetime,omitempty"`

	// Intersects restricts results to items intersecting the geometry.
	// It cannot be combined with Bbox.
	Intersects *Geometry `json:"intersects,omitempty"`

	IDs         []string `json:"ids,omitempty"`
	Collections []string `json:"collections,omitempty"`

	// Query holds property filters, e.g. {"eo:cloud_cover": {"lt": 10}}.
	Query map[string]map[string]any `json:"query,omitempty"`

	// Filter is a CQL2 expression; FilterLang names its encoding.
	Filter     json.RawMessage `json:"filter,omitempty"`
	FilterLang string          `json:"filter-lang,omitempty"`

	SortBy []SortBy `json:"sortby,omitempty"`
	Fields *Fields  `json:"fields,omitempty"`

	// Token is a continuation token from a previous Page.
	Token string `json:"token,omitempty"`

	// Conf overrides pgstac settings for this search only.
	Conf map[string]any `json:"conf,omitempty"`
}

// SortBy orders results by one field. Direction is Ascending or Descending.
type SortBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Sort directions.
const (
	Ascending  = "asc"
	Descending = "desc"
)

// Fields to include or exclude from returned items.
type Fields struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// WithToken returns a copy of s that asks for the page behind token.
func (s Search) WithToken(token string) Search {
	s.Token = token
	return s
}

// DatetimeInterval formats an interval for Search.Datetime. A nil bound is open.
func DatetimeInterval(start, end *time.Time) string {
	format := func(t *time.Time) string {
		if t == nil {
			return ".."
		}
		return t.UTC().Format(time.RFC3339Nano)
	}
	if start != nil && end != nil && start.Equal(*end) {
		return format(start)
	}
	return format(start) + "/" + format(end)
}

// Validate applies the type-level checks made before a search is sent.
func (s Search) Validate() error {
	var errs []error
	if s.Limit < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", constants.ErrInvalidLimit, s.Limit))
	}
	if s.Bbox != nil {
		if err := s.Bbox.Validate(); err != nil {
			errs = append(errs, err)
		}
		if s.Intersects != nil {
			errs = append(errs, errors.New("bbox and intersects are mutually exclusive"))
		}
	}
	if s.Intersects != nil {
		if err := s.Intersects.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, sb := range s.SortBy {
		if sb.Field == "" {
			errs = append(errs, errors.New("sortby field is empty"))
		}
		switch strings.ToLower(sb.Direction) {
		case Ascending, Descending:
		default:
			errs = append(errs, fmt.Errorf("%w: %q", constants.ErrInvalidSort, sb.Direction))
		}
	}
	return errors.Join(errs...)
}

// Search runs one search and returns one page of results.
func (c *Client) Search(ctx context.Context, search Search) (*Page, error) {
	t := target{op: constants.FnSearch}
	if err := search.Validate(); err != nil {
		return nil, t.errorf(KindInvalidInput, err)
	}
	payload, err := encode(t, search)
	if err != nil {
		return nil, err
	}
	data, err := c.raw(ctx, t, payload)
	if err != nil {
		return nil, err
	}
	page, err := decodePage(data)
	if err != nil {
		return nil, t.classify(err)
	}
	return page, nil
}

// SearchPages calls fn with each page of results, following continuation
// tokens until there are no more pages or fn returns an error.
func (c *Client) SearchPages(ctx context.Context, search Search, fn func(*Page) error) error {
	seen := map[string]bool{}
	for {
		page, err := c.Search(ctx, search)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if !page.HasNext() {
			return nil
		}
		next := page.NextToken()
		if seen[next] {
			return target{op: constants.FnSearch}.errorf(KindDecode,
				fmt.Errorf("%w: token %q repeated", constants.ErrInvalidResponse, next))
		}
		seen[next] = true
		search = search.WithToken(next)
	}
}
