package models

import (
	"fmt"
	"reflect"
	"time"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

// Item is a STAC Item: a GeoJSON Feature belonging to one Collection.
// Top-level members the struct does not declare are kept in AdditionalFields.
type Item struct {
	Type           string   `json:"type"`
	StacVersion    string   `json:"stac_version,omitempty"`
	StacExtensions []string `json:"stac_extensions,omitempty"`
	ID             string   `json:"id"`
	// Geometry is encoded by MarshalJSON; nil encodes as null.
	Geometry   *Geometry        `json:"-"`
	Bbox       Bbox             `json:"bbox,omitempty"`
	Properties Properties       `json:"properties"`
	Links      []Link           `json:"links"`
	Assets     map[string]Asset `json:"assets"`
	Collection string           `json:"collection,omitempty"`

	AdditionalFields Fields `json:"-"`
}

// NewItem returns an Item with the given id and its datetime set to now.
func NewItem(id string) Item {
	props := Properties{}
	props.SetDatetime(time.Now())
	return Item{
		Type:        "Feature",
		StacVersion: StacVersion,
		ID:          id,
		Properties:  props,
		Links:       []Link{},
		Assets:      map[string]Asset{},
	}
}

// Key identifies an item within the store.
func (i Item) Key() (collection, id string) {
	return i.Collection, i.ID
}

// Validate applies the checks the client makes before sending an item: the
// identifiers must be set and the value must encode. Everything else is left
// to the store.
func (i Item) Validate() error {
	if i.ID == "" {
		return constants.ErrEmptyID
	}
	if i.Collection == "" {
		return constants.ErrEmptyCollection
	}
	if i.Bbox != nil {
		if err := i.Bbox.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type itemAlias Item

var itemFields = func() fieldSet {
	set := declaredFields(reflect.TypeOf(itemAlias{}))
	set["geometry"] = struct{}{}
	return set
}()

func (i Item) MarshalJSON() ([]byte, error) {
	a := itemAlias(i)
	if a.Type == "" {
		a.Type = "Feature"
	}
	if a.Properties == nil {
		a.Properties = Properties{}
	}
	if a.Links == nil {
		a.Links = []Link{}
	}
	if a.Assets == nil {
		a.Assets = map[string]Asset{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	geometry := json.RawMessage("null")
	if i.Geometry != nil {
		if geometry, err = json.Marshal(*i.Geometry); err != nil {
			return nil, err
		}
	}
	if data, err = mergeFields(data, Fields{"geometry": geometry}, nil); err != nil {
		return nil, err
	}
	return mergeFields(data, i.AdditionalFields, itemFields)
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var a itemAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.ID == "" {
		return fmt.Errorf("item: %w", constants.ErrEmptyID)
	}
	if a.Type != "" && a.Type != "Feature" {
		return fmt.Errorf("item %s: unexpected type %q", a.ID, a.Type)
	}
	value, dataType, _, err := jsonparser.Get(data, "geometry")
	switch {
	case dataType == jsonparser.NotExist, dataType == jsonparser.Null:
	case err != nil:
		return fmt.Errorf("item %s: geometry: %w", a.ID, err)
	default:
		var g Geometry
		if err := json.Unmarshal(value, &g); err != nil {
			return fmt.Errorf("item %s: %w", a.ID, err)
		}
		a.Geometry = &g
	}
	extra, err := splitFields(data, itemFields)
	if err != nil {
		return err
	}
	a.AdditionalFields = extra
	*i = Item(a)
	return nil
}
