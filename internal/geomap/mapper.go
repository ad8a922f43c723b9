// Package geomap renders a geographic viewport from raster map tiles.
//
// A Mapper works out which tiles cover a viewport centered on a lat/lon at a
// zoom level, composites them into an offscreen base canvas and draws that
// canvas and overlay markers onto a screen canvas.
package geomap

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/kiesman99/geomap/internal/canvas"
	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/sirupsen/logrus"
)

// MarkerSize is the diameter of a marker circle in pixels.
const MarkerSize = 7

// TileFetcher loads one tile image. A nil image must come with a non-nil error.
type TileFetcher interface {
	FetchTile(ctx context.Context, url string) (image.Image, error)
}

// Options describes a viewport.
type Options struct {
	Lat, Lon      float64
	Zoom          int
	Width, Height int

	// Server names an entry of the tile server registry.
	Server string
	// URLTemplate overrides Server when set.
	URLTemplate string

	// Workers > 1 fetches tiles concurrently.
	Workers int
	// OnTile is called after each tile fetch with the number of fetches done so far.
	// It may be called from several goroutines when Workers > 1.
	OnTile func(done, total int)
}

// MarkerMeta is optional display metadata for DrawMarker.
type MarkerMeta struct {
	Label string
	Color color.Color
	// Radius overrides the default marker radius when positive.
	Radius int
	// Properties are carried for callers and not drawn.
	Properties map[string]string
}

// Mapper renders one viewport. It is not safe for concurrent use.
type Mapper struct {
	lat, lon float64
	zoom     int
	w, h     int
	url      string

	centerX, centerY float64
	offsetX, offsetY int

	baseMap *canvas.Canvas
	screen  *canvas.Canvas
	fetcher TileFetcher
	log     logrus.FieldLogger

	workers int
	onTile  func(done, total int)
}

// New builds a Mapper for opts. Tiles are fetched with fetcher, and Draw,
// MakeFaded and DrawMarker paint on screen.
//
// An unknown server name is not an error: the default server is used and a
// warning listing the known servers is logged.
func New(opts Options, screen *canvas.Canvas, fetcher TileFetcher, log logrus.FieldLogger) (*Mapper, error) {
	if screen == nil {
		return nil, fmt.Errorf("screen canvas is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("tile fetcher is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	baseMap, err := canvas.New(opts.Width, opts.Height)
	if err != nil {
		return nil, fmt.Errorf("allocate base map: %w", err)
	}

	m := &Mapper{
		lon:     opts.Lon,
		zoom:    opts.Zoom,
		w:       opts.Width,
		h:       opts.Height,
		url:     resolveTemplate(opts, log),
		baseMap: baseMap,
		screen:  screen,
		fetcher: fetcher,
		log:     log,
		workers: opts.Workers,
		onTile:  opts.OnTile,
	}

	if m.zoom > tile.MaxZoom {
		log.Debugf("zoom %d clamped to %d", m.zoom, tile.MaxZoom)
		m.zoom = tile.MaxZoom
	}

	m.lat = tile.ClampLatitude(opts.Lat)
	if m.lat != opts.Lat {
		log.Warnf("latitude %g is outside the mercator range, using %g", opts.Lat, m.lat)
	}

	m.centerX = tile.LonToTile(m.lon, m.zoom)
	m.centerY = tile.LatToTile(m.lat, m.zoom)
	m.offsetX = int(math.Floor((math.Floor(m.centerX) - m.centerX) * tile.Size))
	m.offsetY = int(math.Floor((math.Floor(m.centerY) - m.centerY) * tile.Size))

	return m, nil
}

func resolveTemplate(opts Options, log logrus.FieldLogger) string {
	if opts.URLTemplate != "" {
		return opts.URLTemplate
	}
	if s, ok := tile.LookupServer(opts.Server); ok {
		return s.URL
	}
	log.Warnf("Got %q as a tile server but that didn't exist. Available servers are %s. Falling back to %q.",
		opts.Server, strings.Join(tile.ServerNames(), ", "), tile.DefaultServer)
	s, _ := tile.LookupServer(tile.DefaultServer)
	return s.URL
}

// Zoom returns the effective zoom level.
func (m *Mapper) Zoom() int { return m.zoom }

// Center returns the effective center latitude and longitude.
func (m *Mapper) Center() (lat, lon float64) { return m.lat, m.lon }

// TileCenter returns the fractional tile indices of the viewport center.
func (m *Mapper) TileCenter() (x, y float64) { return m.centerX, m.centerY }

// Offset returns the pixel offset of the first tile, as of the last CreateBaseMap.
func (m *Mapper) Offset() image.Point { return image.Pt(m.offsetX, m.offsetY) }

// Size returns the viewport size in pixels.
func (m *Mapper) Size() (w, h int) { return m.w, m.h }

// URLTemplate returns the tile URL template in use.
func (m *Mapper) URLTemplate() string { return m.url }

// BaseMap returns the offscreen canvas holding the composited tiles.
func (m *Mapper) BaseMap() *canvas.Canvas { return m.baseMap }

// Screen returns the canvas Draw, MakeFaded and DrawMarker paint on.
func (m *Mapper) Screen() *canvas.Canvas { return m.screen }

// MakeGrayscale replaces every base map pixel by its brightness. Alpha is kept.
func (m *Mapper) MakeGrayscale() {
	m.baseMap.Pixels(func(_, _ int, px color.RGBA) color.RGBA {
		b := canvas.Brightness(px)
		return color.RGBA{b, b, b, px.A}
	})
}

// MakeFaded washes the screen out with half transparent white.
// Unlike MakeGrayscale it works on the screen, not on the base map.
func (m *Mapper) MakeFaded() {
	m.screen.Fill(m.screen.Bounds(), color.NRGBA{255, 255, 255, 128})
}

// Draw copies the base map onto the screen at the origin.
func (m *Mapper) Draw() {
	m.baseMap.DrawTo(m.screen, 0, 0)
}

// DrawMarker draws a small circle for lat/lon on the screen. meta may be nil.
func (m *Mapper) DrawMarker(lat, lon float64, meta *MarkerMeta) {
	x := m.LonToX(lon)
	y := m.LatToY(lat)

	var fill color.Color = color.White
	size := MarkerSize
	if meta != nil {
		if meta.Color != nil {
			fill = meta.Color
		}
		if meta.Radius > 0 {
			size = 2 * meta.Radius
		}
	}
	m.screen.Ellipse(float64(x), float64(y), float64(size), float64(size), fill, color.Black)

	if meta != nil && meta.Label != "" {
		m.screen.Text(x+size, y+size/2, meta.Label, color.Black)
	}
}

// LonToX converts a longitude to a screen x coordinate.
func (m *Mapper) LonToX(lon float64) int {
	return int(math.Floor(float64(m.w)/2.0 - tile.Size*(m.centerX-tile.LonToTile(lon, m.zoom))))
}

// LatToY converts a latitude to a screen y coordinate.
// Latitudes beyond the mercator range are clamped first.
func (m *Mapper) LatToY(lat float64) int {
	lat = tile.ClampLatitude(lat)
	return int(math.Floor(float64(m.h)/2.0 - tile.Size*(m.centerY-tile.LatToTile(lat, m.zoom))))
}
