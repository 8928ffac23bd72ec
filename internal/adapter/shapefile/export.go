// Package shapefile writes the map marker layer as an ESRI point shapefile so
// it can be opened in desktop GIS tools.
package shapefile

import (
	"fmt"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	shp "github.com/jonas-p/go-shp"
)

// DBF attribute columns, in field order. DBF names are limited to ten characters.
const (
	fieldName = iota
	fieldCategory
	fieldTier
)

var fields = []shp.Field{
	shp.StringField("NAME", 80),
	shp.StringField("CATEGORY", 80),
	shp.NumberField("ICON_TIER", 6),
}

// Export writes markers to path (.shp, with .shx and .dbf alongside). Point
// geometry uses X = longitude, Y = latitude.
func Export(path string, markers []domain.Marker) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	defer w.Close()

	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("set shapefile fields: %w", err)
	}

	for _, m := range markers {
		row := int(w.Write(&shp.Point{X: m.Long, Y: m.Lat}))
		if err := w.WriteAttribute(row, fieldName, m.Popup.AssetName); err != nil {
			return fmt.Errorf("write attribute row %d: %w", row, err)
		}
		if err := w.WriteAttribute(row, fieldCategory, m.Popup.BusinessCategory); err != nil {
			return fmt.Errorf("write attribute row %d: %w", row, err)
		}
		if err := w.WriteAttribute(row, fieldTier, m.IconTier); err != nil {
			return fmt.Errorf("write attribute row %d: %w", row, err)
		}
	}
	return nil
}
