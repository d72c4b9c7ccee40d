package pgstac

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/stac-utils/pgstac-go/pkg/constants"
	"github.com/stac-utils/pgstac-go/pkg/models"
)

// Page is one page of search results.
type Page struct {
	// Type is always "FeatureCollection".
	Type string `json:"type"`

	// Features are the matching items. When Fields excluded members, items
	// may not be complete STAC items.
	Features []Item `json:"features"`

	// Next and Prev are the store's paging keys, not tokens; use NextToken
	// and PrevToken to continue.
	Next string `json:"next,omitempty"`
	Prev string `json:"prev,omitempty"`

	Context *Context `json:"context,omitempty"`

	// Links carry the paging tokens when the store reports them as "next"
	// and "prev" links instead of Next and Prev.
	Links []models.Link `json:"links,omitempty"`

	NumberMatched  *int `json:"numberMatched,omitempty"`
	NumberReturned *int `json:"numberReturned,omitempty"`
}

// Context is the search context extension block.
type Context struct {
	Limit    *int `json:"limit,omitempty"`
	Matched  *int `json:"matched,omitempty"`
	Returned int  `json:"returned"`
}

const (
	nextPrefix = "next:"
	prevPrefix = "prev:"
)

// HasNext reports whether more results follow this page.
func (p *Page) HasNext() bool {
	return p.NextToken() != ""
}

// NextToken returns the token for the following page, or "" if there is none.
func (p *Page) NextToken() string {
	if p.Next != "" {
		return token(nextPrefix, p.Next)
	}
	return token(nextPrefix, p.linkToken("next"))
}

// PrevToken returns the token for the preceding page, or "" if there is none.
func (p *Page) PrevToken() string {
	if p.Prev != "" {
		return token(prevPrefix, p.Prev)
	}
	return token(prevPrefix, p.linkToken("prev", "previous"))
}

// linkToken returns the token of the first link with one of rels, read from
// the link's POST body or from the "token" parameter of its href.
func (p *Page) linkToken(rels ...string) string {
	for _, l := range p.Links {
		if !contains(rels, l.Rel) {
			continue
		}
		if body, ok := l.AdditionalFields["body"]; ok {
			if tok, err := jsonparser.GetString(body, "token"); err == nil && tok != "" {
				return tok
			}
		}
		if u, err := url.Parse(l.Href); err == nil {
			if tok := u.Query().Get("token"); tok != "" {
				return tok
			}
		}
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func token(prefix, key string) string {
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, prefix) {
		return key
	}
	return prefix + key
}

// decodePage checks the envelope before decoding so a response that is not a
// feature collection fails as a whole instead of decoding to an empty page.
func decodePage(data []byte) (*Page, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: search returned NULL", constants.ErrInvalidResponse)
	}
	typ, err := jsonparser.GetString(data, "type")
	if err != nil {
		return nil, fmt.Errorf("%w: search result type: %v", constants.ErrInvalidResponse, err)
	}
	if typ != "FeatureCollection" {
		return nil, fmt.Errorf("%w: search result type %q", constants.ErrInvalidResponse, typ)
	}
	_, dataType, _, err := jsonparser.Get(data, "features")
	switch {
	case dataType == jsonparser.Null, dataType == jsonparser.NotExist:
	case err != nil:
		return nil, fmt.Errorf("%w: search features: %v", constants.ErrInvalidResponse, err)
	case dataType != jsonparser.Array:
		return nil, fmt.Errorf("%w: search features is %s", constants.ErrInvalidResponse, dataType)
	}

	var page Page
	if err := decode(data, &page); err != nil {
		return nil, err
	}
	if page.Features == nil {
		page.Features = []Item{}
	}
	return &page, nil
}
