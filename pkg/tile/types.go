package tile

import "fmt"

const (
	// Size is the edge length of a raster tile in pixels.
	Size = 256

	// MaxZoom is the deepest zoom level a viewport may request.
	MaxZoom = 18

	// MaxLatitude is the northern limit of the Web Mercator projection.
	MaxLatitude = 85.05112878

	// WorldFileExt is the world file extension paired with PNG output.
	WorldFileExt = ".pgw"
)

// FailedTile represents a grid slot that could not be filled.
// X and Y are signed: slots past the world edge keep their grid indices.
type FailedTile struct {
	Z, X, Y int
	// Outside marks slots beyond the world edge. They are never requested and have no URL.
	Outside    bool
	URL        string
	StatusCode int // 0 when no HTTP response was received
	Error      string
}

// Coord formats the slot as z/x/y.
func (f FailedTile) Coord() string {
	return fmt.Sprintf("%d/%d/%d", f.Z, f.X, f.Y)
}

// StatusError is returned when a tile server answers with a non-200 status.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// WorldFile holds the georeferencing parameters of a rendered image.
type WorldFile struct {
	PixelSizeX float64
	PixelSizeY float64
	MinX       float64 // top left x, EPSG:3857
	MaxY       float64 // top left y, EPSG:3857
}
