package tile

import "math"

// originShift is half the circumference of the spherical mercator earth, 2 * pi * 6378137 / 2
const originShift = 20037508.342789244

// LonToTile returns the fractional X tile index of a longitude at the given zoom level.
// http://wiki.openstreetmap.org/wiki/Slippy_map_tilenames
func LonToTile(lon float64, zoom int) float64 {
	return ((lon + 180) / 360) * math.Exp2(float64(zoom))
}

// LatToTile returns the fractional Y tile index of a latitude at the given zoom level.
// North maps to smaller indices. The result is undefined outside +/-MaxLatitude.
func LatToTile(lat float64, zoom int) float64 {
	latRad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * math.Exp2(float64(zoom))
}

// TileToLon converts a fractional X tile index back to a longitude.
func TileToLon(x float64, zoom int) float64 {
	return x/math.Exp2(float64(zoom))*360.0 - 180.0
}

// TileToLat converts a fractional Y tile index back to a latitude.
func TileToLat(y float64, zoom int) float64 {
	n := math.Pi * (1 - 2.0*y/math.Exp2(float64(zoom)))
	return math.Atan(math.Sinh(n)) * 180 / math.Pi
}

// ClampLatitude limits lat to the range the projection is defined for.
func ClampLatitude(lat float64) float64 {
	return math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
}

// ProjectLatLon converts lat/lon in WGS84 to XY in Spherical Mercator (EPSG:900913/3857)
func ProjectLatLon(lat, lon float64) (float64, float64) {
	x := lon * originShift / 180.0
	y := math.Log(math.Tan((90+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0

	return x, y
}

// PixelSize returns the ground size of one pixel in EPSG:3857 metres at the given zoom level.
func PixelSize(zoom int) float64 {
	return 2 * originShift / (Size * math.Exp2(float64(zoom)))
}
