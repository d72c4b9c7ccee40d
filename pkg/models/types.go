package models

import (
	"fmt"
	"reflect"
	"time"

	"github.com/goccy/go-json"
)

// StacVersion is the STAC version written by the constructors.
const StacVersion = "1.0.0"

// Link is a STAC link object. Members such as "method" or "body" are kept
// in AdditionalFields.
type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`

	AdditionalFields Fields `json:"-"`
}

type linkAlias Link

var linkFields = declaredFields(reflect.TypeOf(linkAlias{}))

func (l Link) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(linkAlias(l))
	if err != nil {
		return nil, err
	}
	return mergeFields(data, l.AdditionalFields, linkFields)
}

func (l *Link) UnmarshalJSON(data []byte) error {
	var a linkAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitFields(data, linkFields)
	if err != nil {
		return err
	}
	a.AdditionalFields = extra
	*l = Link(a)
	return nil
}

// Asset is a STAC asset object. Extension members such as "eo:bands" are
// kept in AdditionalFields.
type Asset struct {
	Href        string   `json:"href"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"`
	Roles       []string `json:"roles,omitempty"`

	AdditionalFields Fields `json:"-"`
}

type assetAlias Asset

var assetFields = declaredFields(reflect.TypeOf(assetAlias{}))

func (a Asset) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(assetAlias(a))
	if err != nil {
		return nil, err
	}
	return mergeFields(data, a.AdditionalFields, assetFields)
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var alias assetAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := splitFields(data, assetFields)
	if err != nil {
		return err
	}
	alias.AdditionalFields = extra
	*a = Asset(alias)
	return nil
}

type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Properties is an Item's property bag. Values hold whatever JSON decoding
// produced, so numbers are float64; use the accessors for the common fields.
type Properties map[string]any

// Datetime returns the "datetime" property. A null datetime is valid in STAC
// when start_datetime and end_datetime are set, and is returned as nil.
func (p Properties) Datetime() (*time.Time, error) {
	return p.timeField("datetime")
}

func (p Properties) StartDatetime() (*time.Time, error) {
	return p.timeField("start_datetime")
}

func (p Properties) EndDatetime() (*time.Time, error) {
	return p.timeField("end_datetime")
}

// SetDatetime stores t as an RFC 3339 string.
func (p Properties) SetDatetime(t time.Time) {
	p["datetime"] = t.UTC().Format(time.RFC3339Nano)
}

func (p Properties) timeField(name string) (*time.Time, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("property %s: expected string, got %T", name, v)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", name, err)
	}
	return &t, nil
}
