package models

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

// Bbox is a 2D [minx, miny, maxx, maxy] or 3D
// [minx, miny, minz, maxx, maxy, maxz] bounding box.
type Bbox []float64

// Validate reports whether b has a valid arity and finite values.
func (b Bbox) Validate() error {
	if len(b) != 4 && len(b) != 6 {
		return fmt.Errorf("%w: got %d", constants.ErrInvalidBbox, len(b))
	}
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", constants.ErrInvalidBbox)
		}
	}
	return nil
}

// Bounds returns the 2D extent of b. It assumes b is valid.
func (b Bbox) Bounds() (minX, minY, maxX, maxY float64) {
	if len(b) == 6 {
		return b[0], b[1], b[3], b[4]
	}
	return b[0], b[1], b[2], b[3]
}

func (b *Bbox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*b = nil
		return nil
	}
	if err := Bbox(v).Validate(); err != nil {
		return err
	}
	*b = v
	return nil
}
