package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// GeometryType is the GeoJSON "type" member of a geometry object.
type GeometryType string

const (
	GeometryPoint              GeometryType = "Point"
	GeometryMultiPoint         GeometryType = "MultiPoint"
	GeometryLineString         GeometryType = "LineString"
	GeometryMultiLineString    GeometryType = "MultiLineString"
	GeometryPolygon            GeometryType = "Polygon"
	GeometryMultiPolygon       GeometryType = "MultiPolygon"
	GeometryGeometryCollection GeometryType = "GeometryCollection"
)

// ErrInvalidGeometry is wrapped by every geometry validation failure.
var ErrInvalidGeometry = errors.New("invalid geometry")

// depth is how many array levels sit above a single position.
var geometryDepth = map[GeometryType]int{
	GeometryPoint:           0,
	GeometryMultiPoint:      1,
	GeometryLineString:      1,
	GeometryMultiLineString: 2,
	GeometryPolygon:         2,
	GeometryMultiPolygon:    3,
}

// Geometry is a GeoJSON geometry (RFC 7946, section 3.1).
//
// Coordinates are kept as raw JSON so values written by the store come back
// untouched, but both encoding and decoding check that the nesting of
// Coordinates matches Type. A GeometryCollection carries Geometries instead,
// always encoded as an array.
type Geometry struct {
	Type        GeometryType
	Bbox        Bbox
	Coordinates json.RawMessage
	Geometries  []Geometry
}

type geometryJSON struct {
	Type        GeometryType    `json:"type"`
	Bbox        Bbox            `json:"bbox,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []Geometry      `json:"geometries,omitempty"`
}

type geometryCollectionJSON struct {
	Type       GeometryType `json:"type"`
	Bbox       Bbox         `json:"bbox,omitempty"`
	Geometries []Geometry   `json:"geometries"`
}

// NewPoint returns a Point at the given longitude and latitude.
func NewPoint(lon, lat float64) Geometry {
	return Geometry{Type: GeometryPoint, Coordinates: appendPosition(nil, [2]float64{lon, lat})}
}

// NewLineString returns a LineString through the given positions.
func NewLineString(positions ...[2]float64) Geometry {
	return Geometry{Type: GeometryLineString, Coordinates: appendPositions(nil, positions)}
}

// NewPolygon returns a Polygon from linear rings. The first ring is the
// exterior, the others are holes; rings must be closed by the caller.
func NewPolygon(rings ...[][2]float64) Geometry {
	buf := []byte{'['}
	for i, ring := range rings {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendPositions(buf, ring)
	}
	return Geometry{Type: GeometryPolygon, Coordinates: append(buf, ']')}
}

// BboxPolygon returns the polygon covering the 2D extent of b.
func BboxPolygon(b Bbox) (Geometry, error) {
	if err := b.Validate(); err != nil {
		return Geometry{}, err
	}
	minX, minY, maxX, maxY := b.Bounds()
	return NewPolygon([][2]float64{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}), nil
}

func appendPosition(buf []byte, p [2]float64) []byte {
	buf = append(buf, '[')
	buf = strconv.AppendFloat(buf, p[0], 'f', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, p[1], 'f', -1, 64)
	return append(buf, ']')
}

func appendPositions(buf []byte, ps [][2]float64) []byte {
	buf = append(buf, '[')
	for i, p := range ps {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendPosition(buf, p)
	}
	return append(buf, ']')
}

// Validate checks the type tag, the bbox and the coordinate structure.
func (g Geometry) Validate() error {
	if g.Bbox != nil {
		if err := g.Bbox.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
	}
	if g.Type == GeometryGeometryCollection {
		if len(g.Coordinates) > 0 {
			return fmt.Errorf("%w: GeometryCollection has coordinates", ErrInvalidGeometry)
		}
		for i := range g.Geometries {
			if err := g.Geometries[i].Validate(); err != nil {
				return fmt.Errorf("geometries[%d]: %w", i, err)
			}
		}
		return nil
	}

	depth, ok := geometryDepth[g.Type]
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidGeometry, g.Type)
	}
	if len(g.Coordinates) == 0 {
		return fmt.Errorf("%w: %s without coordinates", ErrInvalidGeometry, g.Type)
	}

	var coords any
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return fmt.Errorf("%w: %s coordinates: %v", ErrInvalidGeometry, g.Type, err)
	}
	if err := checkCoordinates(coords, depth); err != nil {
		return fmt.Errorf("%w: %s coordinates: %v", ErrInvalidGeometry, g.Type, err)
	}

	switch g.Type {
	case GeometryLineString:
		if n := len(coords.([]any)); n < 2 {
			return fmt.Errorf("%w: LineString has %d positions", ErrInvalidGeometry, n)
		}
	case GeometryPolygon:
		for i, ring := range coords.([]any) {
			if n := len(ring.([]any)); n < 4 {
				return fmt.Errorf("%w: Polygon ring %d has %d positions", ErrInvalidGeometry, i, n)
			}
		}
	}
	return nil
}

func checkCoordinates(v any, depth int) error {
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("expected array, got %T", v)
	}
	if depth == 0 {
		if len(arr) < 2 {
			return fmt.Errorf("position has %d values", len(arr))
		}
		for _, n := range arr {
			f, ok := n.(float64)
			if !ok {
				return fmt.Errorf("position value %v is not a number", n)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return errors.New("position value is not finite")
			}
		}
		return nil
	}
	for _, child := range arr {
		if err := checkCoordinates(child, depth-1); err != nil {
			return err
		}
	}
	return nil
}

// Position returns the coordinates of a Point.
func (g Geometry) Position() ([]float64, error) {
	if g.Type != GeometryPoint {
		return nil, fmt.Errorf("%w: %s is not a Point", ErrInvalidGeometry, g.Type)
	}
	var p []float64
	if err := json.Unmarshal(g.Coordinates, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	return p, nil
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if g.Type == GeometryGeometryCollection {
		geometries := g.Geometries
		if geometries == nil {
			geometries = []Geometry{}
		}
		return json.Marshal(geometryCollectionJSON{Type: g.Type, Bbox: g.Bbox, Geometries: geometries})
	}
	return json.Marshal(geometryJSON{Type: g.Type, Bbox: g.Bbox, Coordinates: g.Coordinates})
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	var raw geometryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := Geometry{Type: raw.Type, Bbox: raw.Bbox, Coordinates: raw.Coordinates, Geometries: raw.Geometries}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*g = decoded
	return nil
}
