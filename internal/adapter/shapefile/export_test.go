package shapefile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clean(s string) string {
	return strings.Trim(s, "\x00 ")
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.shp")
	markers := []domain.Marker{
		{Lat: 44.4, Long: -73.2, IconTier: 11, Popup: domain.Popup{AssetName: "Ball PLC", BusinessCategory: "Energy"}},
		{Lat: 30.1, Long: -90.05, IconTier: 2, Popup: domain.Popup{AssetName: "Ward Group", BusinessCategory: "Retail"}},
	}

	require.NoError(t, Export(path, markers))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	names := make([]string, 0, len(r.Fields()))
	for _, f := range r.Fields() {
		names = append(names, clean(f.String()))
	}
	assert.Equal(t, []string{"NAME", "CATEGORY", "ICON_TIER"}, names)
	assert.Equal(t, 2, r.AttributeCount())

	var got []domain.Marker
	for r.Next() {
		idx, shape := r.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok, "expected point geometry")
		got = append(got, domain.Marker{
			Lat:  p.Y,
			Long: p.X,
			Popup: domain.Popup{
				AssetName:        clean(r.ReadAttribute(idx, fieldName)),
				BusinessCategory: clean(r.ReadAttribute(idx, fieldCategory)),
			},
		})
		if idx == 0 {
			assert.Equal(t, "11", clean(r.ReadAttribute(idx, fieldTier)))
		}
	}

	require.Len(t, got, 2)
	assert.InDelta(t, 44.4, got[0].Lat, 1e-9)
	assert.InDelta(t, -73.2, got[0].Long, 1e-9)
	assert.Equal(t, "Ball PLC", got[0].Popup.AssetName)
	assert.Equal(t, "Retail", got[1].Popup.BusinessCategory)
}

func TestExport_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.shp")
	require.NoError(t, Export(path, nil))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.False(t, r.Next())
}
