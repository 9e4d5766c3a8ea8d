package obstacle

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders obstacles as footprint polygons with the attributes ParseGeoJSON reads,
// so a converted file loads back to the same boxes.
func FeatureCollection(obs []Obstacle) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range obs {
		o := &obs[i]
		minX, maxX := o.X-o.HalfWidth, o.X+o.HalfWidth
		minZ, maxZ := o.Z-o.HalfDepth, o.Z+o.HalfDepth
		ring := orb.Ring{{minX, minZ}, {maxX, minZ}, {maxX, maxZ}, {minX, maxZ}, {minX, minZ}}

		f := geojson.NewFeature(orb.Polygon{ring})
		f.Properties[attrID] = o.ID
		if o.Name != "" {
			f.Properties[attrName] = o.Name
		}
		f.Properties[attrHeight] = o.Height
		if o.BaseElevation != 0 {
			f.Properties[attrBaseElevation] = o.BaseElevation
		}
		fc.Append(f)
	}
	return fc
}
