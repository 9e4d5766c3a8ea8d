package obstacle

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"aerosim/pkg/flight"
)

// Attribute names read from GeoJSON properties and shapefile fields.
const (
	attrID            = "id"
	attrName          = "name"
	attrHeight        = "height"
	attrBaseElevation = "base_elevation"
	attrBaseElevShort = "base_elev" // dBase field names are limited to 10 characters
	attrHalfWidth     = "half_width"
	attrHalfDepth     = "half_depth"
)

// ErrUnsupportedFormat is returned by Load for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported obstacle file format")

// Load reads obstacles from a .geojson/.json or .shp file. Coordinates are planar world meters:
// the first axis is x, the second is z.
func Load(path string) ([]Obstacle, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read obstacle file: %w", err)
		}
		return ParseGeoJSON(data)
	case ".shp":
		return LoadShapefile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ParseGeoJSON converts a FeatureCollection into obstacles. Polygons contribute their bounding box;
// points need half_width and half_depth properties. Features without a positive height are skipped.
func ParseGeoJSON(data []byte) ([]Obstacle, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var out []Obstacle
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		props := f.Properties
		fp := flight.Footprint{
			Height:        props.MustFloat64(attrHeight, 0),
			BaseElevation: props.MustFloat64(attrBaseElevation, 0),
		}

		switch g := f.Geometry.(type) {
		case orb.Point:
			fp.X, fp.Z = g.X(), g.Y()
			fp.HalfWidth = props.MustFloat64(attrHalfWidth, 0)
			fp.HalfDepth = props.MustFloat64(attrHalfDepth, 0)
		case orb.Polygon, orb.MultiPolygon:
			setBounds(&fp, g.Bound())
		default:
			slog.Debug("Skipping unsupported obstacle geometry", "index", i, "type", f.Geometry.GeoJSONType())
			continue
		}

		id := props.MustString(attrID, "")
		if id == "" && f.ID != nil {
			id = fmt.Sprint(f.ID)
		}
		if id == "" {
			id = strconv.Itoa(i)
		}

		o := Obstacle{ID: id, Name: props.MustString(attrName, ""), Footprint: fp}
		if err := validate(&o); err != nil {
			slog.Warn("Skipping invalid obstacle", "id", o.ID, "error", err)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadShapefile reads polygon records. Attributes use the same names as the GeoJSON properties.
func LoadShapefile(path string) ([]Obstacle, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close()

	cols := make(map[string]int)
	for i, f := range r.Fields() {
		cols[strings.ToLower(strings.TrimRight(f.String(), "\x00"))] = i
	}
	attr := func(row int, name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(r.ReadAttribute(row, i))
	}
	num := func(row int, names ...string) float64 {
		for _, name := range names {
			if v, err := strconv.ParseFloat(attr(row, name), 64); err == nil {
				return v
			}
		}
		return 0
	}

	var out []Obstacle
	for r.Next() {
		row, s := r.Shape()
		if _, ok := s.(*shp.Null); ok {
			continue
		}

		fp := flight.Footprint{
			Height:        num(row, attrHeight),
			BaseElevation: num(row, attrBaseElevShort, attrBaseElevation),
		}
		box := s.BBox()
		fp.X = (box.MinX + box.MaxX) / 2
		fp.Z = (box.MinY + box.MaxY) / 2
		fp.HalfWidth = (box.MaxX - box.MinX) / 2
		fp.HalfDepth = (box.MaxY - box.MinY) / 2
		if _, ok := s.(*shp.Point); ok {
			fp.HalfWidth = num(row, attrHalfWidth)
			fp.HalfDepth = num(row, attrHalfDepth)
		}

		id := attr(row, attrID)
		if id == "" {
			id = strconv.Itoa(row)
		}
		o := Obstacle{ID: id, Name: attr(row, attrName), Footprint: fp}
		if err := validate(&o); err != nil {
			slog.Warn("Skipping invalid obstacle", "id", o.ID, "error", err)
			continue
		}
		out = append(out, o)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shapes: %w", err)
	}
	return out, nil
}

func setBounds(fp *flight.Footprint, b orb.Bound) {
	c := b.Center()
	fp.X, fp.Z = c.X(), c.Y()
	fp.HalfWidth = (b.Max.X() - b.Min.X()) / 2
	fp.HalfDepth = (b.Max.Y() - b.Min.Y()) / 2
}

func validate(o *Obstacle) error {
	for _, v := range []float64{o.X, o.Z, o.HalfWidth, o.HalfDepth, o.Height, o.BaseElevation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("non-finite value")
		}
	}
	if o.Height <= 0 {
		return fmt.Errorf("height must be positive (got %v)", o.Height)
	}
	if o.HalfWidth < 0 || o.HalfDepth < 0 {
		return errors.New("negative footprint")
	}
	return nil
}
