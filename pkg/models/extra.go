package models

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"
)

// Fields holds the members of a JSON object that a model does not declare,
// such as STAC extension fields, as raw JSON keyed by member name.
type Fields map[string]json.RawMessage

type fieldSet map[string]struct{}

// declaredFields returns the JSON member names of a struct type.
func declaredFields(t reflect.Type) fieldSet {
	set := fieldSet{}
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			set[name] = struct{}{}
		}
	}
	return set
}

// splitFields returns the members of the object in data that are not in declared.
func splitFields(data []byte, declared fieldSet) (Fields, error) {
	var extra Fields
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		if _, ok := declared[name]; ok {
			return nil
		}
		raw := make(json.RawMessage, 0, len(value)+2)
		if dataType == jsonparser.String {
			raw = append(raw, '"')
			raw = append(raw, value...)
			raw = append(raw, '"')
		} else {
			raw = append(raw, value...)
		}
		if extra == nil {
			extra = Fields{}
		}
		extra[name] = raw
		return nil
	})
	return extra, err
}

// mergeFields appends extra to the encoded object in data. Names that are
// declared by the model are skipped so they cannot shadow its own members.
func mergeFields(data []byte, extra Fields, declared fieldSet) ([]byte, error) {
	if len(extra) == 0 {
		return data, nil
	}
	names := make([]string, 0, len(extra))
	for name := range extra {
		if _, ok := declared[name]; !ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return data, nil
	}
	sort.Strings(names)

	end := len(data) - 1
	if end < 1 || data[end] != '}' {
		return nil, fmt.Errorf("cannot merge fields into %q", data)
	}
	out := append([]byte(nil), data[:end]...)
	empty := end == 1
	for _, name := range names {
		value := extra[name]
		if !json.Valid(value) {
			return nil, fmt.Errorf("field %s: invalid JSON", name)
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		if !empty {
			out = append(out, ',')
		}
		empty = false
		out = append(out, key...)
		out = append(out, ':')
		out = append(out, value...)
	}
	return append(out, '}'), nil
}
