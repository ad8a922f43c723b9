package tile

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
)

func TestLonToTile_Edges(t *testing.T) {
	for z := 0; z <= MaxZoom; z++ {
		assert.Equal(t, 0.0, LonToTile(-180, z), "zoom %d", z)
		assert.Equal(t, math.Exp2(float64(z)), LonToTile(180, z), "zoom %d", z)
	}
}

func TestLatToTile_Equator(t *testing.T) {
	assert.Equal(t, 2.0, LatToTile(0, 2))
	assert.Equal(t, 512.0, LatToTile(0, 10))
}

func TestLatToTile_DecreasesNorthwards(t *testing.T) {
	for _, z := range []int{0, 5, 12, 18} {
		prev := LatToTile(-85, z)
		for lat := -84.5; lat < 85; lat += 0.5 {
			cur := LatToTile(lat, z)
			if !assert.Less(t, cur, prev, "lat %.1f zoom %d", lat, z) {
				return
			}
			prev = cur
		}
	}
}

func TestTileRoundTrip(t *testing.T) {
	testCases := []struct {
		lat, lon float64
		zoom     int
	}{
		{37.7749, -122.4194, 12},
		{-33.8688, 151.2093, 7},
		{51.5074, -0.1278, 18},
		{0, 0, 0},
	}

	for _, tc := range testCases {
		x := LonToTile(tc.lon, tc.zoom)
		y := LatToTile(tc.lat, tc.zoom)
		assert.InDelta(t, tc.lon, TileToLon(x, tc.zoom), 1e-9)
		assert.InDelta(t, tc.lat, TileToLat(y, tc.zoom), 1e-9)
	}
}

// The integer part of the fractional index must agree with orb's tile lookup.
func TestTileIndexMatchesMaptile(t *testing.T) {
	pt := orb.Point{-122.4194, 37.7749}
	for _, z := range []int{1, 8, 12, 16} {
		want := maptile.At(pt, maptile.Zoom(z))
		assert.Equal(t, want.X, uint32(math.Floor(LonToTile(pt.Lon(), z))), "x at zoom %d", z)
		assert.Equal(t, want.Y, uint32(math.Floor(LatToTile(pt.Lat(), z))), "y at zoom %d", z)
	}
}

func TestClampLatitude(t *testing.T) {
	assert.Equal(t, MaxLatitude, ClampLatitude(90))
	assert.Equal(t, -MaxLatitude, ClampLatitude(-91))
	assert.Equal(t, 12.5, ClampLatitude(12.5))
	assert.False(t, math.IsNaN(LatToTile(ClampLatitude(90), 4)))
}

func TestProjectLatLon(t *testing.T) {
	x, y := ProjectLatLon(0, 180)
	assert.InDelta(t, originShift, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)

	_, y = ProjectLatLon(MaxLatitude, 0)
	assert.InDelta(t, originShift, y, 1)
}

func TestPixelSize(t *testing.T) {
	assert.InDelta(t, 156543.03392804097, PixelSize(0), 1e-6)
	assert.InDelta(t, PixelSize(0)/1024, PixelSize(10), 1e-9)
}
