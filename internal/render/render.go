// Package render runs one viewport render end to end: fetch, composite,
// post-process, overlay markers and encode.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/kiesman99/geomap/internal/canvas"
	"github.com/kiesman99/geomap/internal/geomap"
	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// MaxPixels caps width * height of a single render.
const MaxPixels = 10000 * 10000

// Marker is a point drawn over the map.
type Marker struct {
	Lat, Lon float64
	Label    string
	// Color is #RRGGBB or #AARRGGBB. Empty means white.
	Color string
}

// Job describes one render.
type Job struct {
	Lat, Lon      float64
	Zoom          int
	Width, Height int

	Server      string
	URLTemplate string

	Grayscale bool
	Faded     bool
	Markers   []Marker

	Workers   int
	WorldFile bool

	// BestEffort renders a blank map instead of returning a *TileError when no tile was drawn.
	BestEffort bool
}

// Result contains the render result
type Result struct {
	PNG       []byte
	WorldFile []byte
	Width     int
	Height    int

	// Bound is the geographic extent of the image.
	Bound  orb.Bound
	Report *geomap.Report
}

// TileError is returned when no tile could be drawn at all.
type TileError struct {
	Message     string
	FailedTiles []tile.FailedTile
	Drawn       int
	Total       int
}

func (e *TileError) Error() string {
	return e.Message
}

// Renderer turns jobs into images.
type Renderer struct {
	fetcher geomap.TileFetcher
	log     logrus.FieldLogger

	// OnTile, when set, is passed on to every mapper.
	OnTile func(done, total int)
}

// NewRenderer creates a renderer fetching tiles with fetcher.
func NewRenderer(fetcher geomap.TileFetcher, log logrus.FieldLogger) *Renderer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Renderer{fetcher: fetcher, log: log}
}

// Validate checks a job before any tile is fetched.
func (j *Job) Validate() error {
	if j.Zoom < 0 {
		return fmt.Errorf("zoom %d less than 0", j.Zoom)
	}
	if j.Width <= 0 || j.Height <= 0 {
		return fmt.Errorf("width/height must be positive: %d %d", j.Width, j.Height)
	}
	if int64(j.Width)*int64(j.Height) > MaxPixels {
		return fmt.Errorf("requested image size too large: %dx%d", j.Width, j.Height)
	}
	if j.Lat < -90 || j.Lat > 90 {
		return fmt.Errorf("latitude %g out of range", j.Lat)
	}
	if j.Lon < -180 || j.Lon > 180 {
		return fmt.Errorf("longitude %g out of range", j.Lon)
	}
	if j.URLTemplate != "" {
		if err := tile.ValidateTemplate(j.URLTemplate); err != nil {
			return err
		}
	}
	for i, mk := range j.Markers {
		if mk.Color == "" {
			continue
		}
		if _, err := canvas.ParseHexColor(mk.Color); err != nil {
			return fmt.Errorf("marker %d: %w", i, err)
		}
	}
	return nil
}

// Render runs job and returns the encoded image.
// Individual tile failures are tolerated; a *TileError is returned only when nothing was drawn
// and the job is not best effort.
func (r *Renderer) Render(ctx context.Context, job Job) (*Result, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	screen, err := canvas.New(job.Width, job.Height)
	if err != nil {
		return nil, err
	}

	m, err := geomap.New(geomap.Options{
		Lat:         job.Lat,
		Lon:         job.Lon,
		Zoom:        job.Zoom,
		Width:       job.Width,
		Height:      job.Height,
		Server:      job.Server,
		URLTemplate: job.URLTemplate,
		Workers:     job.Workers,
		OnTile:      r.OnTile,
	}, screen, r.fetcher, r.log)
	if err != nil {
		return nil, err
	}

	report := m.CreateBaseMap(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := r.log.WithField("render", report.ID)
	log.WithFields(logrus.Fields{
		"drawn":  report.Drawn(),
		"failed": len(report.Failed),
	}).Infof("composited %d of %d tiles at zoom %d", report.Drawn(), report.Total(), m.Zoom())

	if report.Drawn() == 0 {
		if job.BestEffort {
			log.WithField("failed", len(report.Failed)).Warn("no tile could be loaded, rendering a blank map")
		} else {
			return nil, &TileError{
				Message:     "No tiles could be downloaded successfully",
				FailedTiles: report.Failed,
				Total:       report.Total(),
			}
		}
	}

	if job.Grayscale {
		m.MakeGrayscale()
	}
	m.Draw()
	if job.Faded {
		m.MakeFaded()
	}
	for _, mk := range job.Markers {
		m.DrawMarker(mk.Lat, mk.Lon, markerMeta(mk))
	}

	var buf bytes.Buffer
	if err := screen.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode output image: %w", err)
	}

	bound, wf := Georeference(m)
	result := &Result{
		PNG:    buf.Bytes(),
		Width:  job.Width,
		Height: job.Height,
		Bound:  bound,
		Report: report,
	}
	if job.WorldFile {
		result.WorldFile = tile.GenerateWorldFile(wf)
	}
	return result, nil
}

func markerMeta(mk Marker) *geomap.MarkerMeta {
	if mk.Label == "" && mk.Color == "" {
		return nil
	}
	meta := &geomap.MarkerMeta{Label: mk.Label}
	if c, err := canvas.ParseHexColor(mk.Color); err == nil {
		meta.Color = c
	}
	return meta
}

// RenderToFile renders job and writes the PNG to output, or to stdout when output is empty.
// The world file, if requested, is written next to output.
func (r *Renderer) RenderToFile(ctx context.Context, job Job, output string) (*Result, error) {
	if output == "" {
		if stat, _ := os.Stdout.Stat(); stat != nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("didn't specify output file and standard output is a terminal")
		}
		if job.WorldFile {
			return nil, fmt.Errorf("can't write a worldfile when writing to stdout")
		}
	}

	result, err := r.Render(ctx, job)
	if err != nil {
		return nil, err
	}

	if err := tile.WritePNG(output, result.PNG); err != nil {
		return nil, fmt.Errorf("failed to write PNG: %w", err)
	}

	if job.WorldFile {
		path, err := tile.WriteWorldFile(output, result.WorldFile)
		if err != nil {
			return nil, fmt.Errorf("failed to write world file: %w", err)
		}
		r.log.WithField("render", result.Report.ID).Debugf("wrote world file %s", path)
	}
	return result, nil
}
