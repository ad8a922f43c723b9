package render

import (
	"github.com/kiesman99/geomap/internal/geomap"
	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/paulmach/orb"
)

// Georeference returns the geographic extent of the mapper's screen and the
// matching world file parameters (EPSG:3857).
func Georeference(m *geomap.Mapper) (orb.Bound, tile.WorldFile) {
	cx, cy := m.TileCenter()
	w, h := m.Size()
	z := m.Zoom()

	x1 := cx - float64(w)/2/tile.Size
	y1 := cy - float64(h)/2/tile.Size
	x2 := cx + float64(w)/2/tile.Size
	y2 := cy + float64(h)/2/tile.Size

	minLon, maxLat := tile.TileToLon(x1, z), tile.TileToLat(y1, z)
	maxLon, minLat := tile.TileToLon(x2, z), tile.TileToLat(y2, z)

	bound := orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}

	minX, maxY := tile.ProjectLatLon(maxLat, minLon)
	px := tile.PixelSize(z)
	return bound, tile.WorldFile{PixelSizeX: px, PixelSizeY: px, MinX: minX, MaxY: maxY}
}
