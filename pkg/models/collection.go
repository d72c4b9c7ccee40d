package models

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

// ErrNotCollection is returned when decoding a document whose type is not Collection.
var ErrNotCollection = errors.New("document is not a collection")

// Collection groups Items and describes their common metadata. Members the
// struct does not declare, such as "item_assets" or extension fields, are
// kept in AdditionalFields.
type Collection struct {
	Type           string           `json:"type"`
	StacVersion    string           `json:"stac_version"`
	StacExtensions []string         `json:"stac_extensions,omitempty"`
	ID             string           `json:"id"`
	Title          string           `json:"title,omitempty"`
	Description    string           `json:"description"`
	Keywords       []string         `json:"keywords,omitempty"`
	License        string           `json:"license"`
	Providers      []Provider       `json:"providers,omitempty"`
	Extent         Extent           `json:"extent"`
	Summaries      map[string]any   `json:"summaries,omitempty"`
	Links          []Link           `json:"links"`
	Assets         map[string]Asset `json:"assets,omitempty"`

	AdditionalFields Fields `json:"-"`
}

type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

type SpatialExtent struct {
	Bbox []Bbox `json:"bbox"`
}

type TemporalExtent struct {
	Interval []Interval `json:"interval"`
}

// Interval is a [start, end] pair. A nil bound is open-ended and encodes as null.
type Interval [2]*time.Time

func (iv Interval) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, bound := range iv {
		if i > 0 {
			buf = append(buf, ',')
		}
		if bound == nil {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendQuote(buf, bound.UTC().Format(time.RFC3339Nano))
	}
	return append(buf, ']'), nil
}

func (iv *Interval) UnmarshalJSON(data []byte) error {
	var bounds []*string
	if err := json.Unmarshal(data, &bounds); err != nil {
		return err
	}
	if len(bounds) != 2 {
		return fmt.Errorf("temporal interval has %d bounds", len(bounds))
	}
	var out Interval
	for i, s := range bounds {
		if s == nil {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, *s)
		if err != nil {
			return fmt.Errorf("temporal interval: %w", err)
		}
		out[i] = &t
	}
	*iv = out
	return nil
}

// NewCollection returns a Collection covering the whole globe and all time.
func NewCollection(id, description string) Collection {
	return Collection{
		Type:        "Collection",
		StacVersion: StacVersion,
		ID:          id,
		Description: description,
		License:     "proprietary",
		Extent: Extent{
			Spatial:  SpatialExtent{Bbox: []Bbox{{-180, -90, 180, 90}}},
			Temporal: TemporalExtent{Interval: []Interval{{nil, nil}}},
		},
		Links: []Link{},
	}
}

type collectionAlias Collection

var collectionFields = declaredFields(reflect.TypeOf(collectionAlias{}))

func (c Collection) MarshalJSON() ([]byte, error) {
	a := collectionAlias(c)
	if a.Type == "" {
		a.Type = "Collection"
	}
	if a.Links == nil {
		a.Links = []Link{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return mergeFields(data, c.AdditionalFields, collectionFields)
}

func (c *Collection) UnmarshalJSON(data []byte) error {
	var a collectionAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.ID == "" {
		return fmt.Errorf("collection: %w", constants.ErrEmptyID)
	}
	if a.Type != "" && a.Type != "Collection" {
		return fmt.Errorf("%w: %s has type %q", ErrNotCollection, a.ID, a.Type)
	}
	extra, err := splitFields(data, collectionFields)
	if err != nil {
		return err
	}
	a.AdditionalFields = extra
	*c = Collection(a)
	return nil
}
