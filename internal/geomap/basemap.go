package geomap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/jamesrr39/semaphore"
	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/paulmach/orb/maptile"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
)

// Placement records where a tile was drawn on the base map.
type Placement struct {
	Tile maptile.Tile
	At   image.Point
}

// Report summarises one CreateBaseMap run.
type Report struct {
	ID   string
	Zoom int

	// Start is the first tile of the grid, End the exclusive upper bound.
	Start, End image.Point
	Offset     image.Point

	Placements []Placement
	Failed     []tile.FailedTile
}

// Total returns the number of tiles in the grid.
func (r *Report) Total() int {
	return (r.End.X - r.Start.X) * (r.End.Y - r.Start.Y)
}

// Drawn returns the number of tiles that made it onto the base map.
func (r *Report) Drawn() int { return len(r.Placements) }

type fetchResult struct {
	tile maptile.Tile
	url  string
	img  image.Image
	err  error
}

// CreateBaseMap fetches every tile covering the viewport and composites it into the base map.
//
// A tile that cannot be loaded is logged and left blank; the remaining tiles
// are still drawn. Tiles are visited column by column, x outer and y inner.
func (m *Mapper) CreateBaseMap(ctx context.Context) *Report {
	halfW := (float64(m.w) / tile.Size) / 2.0
	halfH := (float64(m.h) / tile.Size) / 2.0

	startX := int(math.Floor(m.centerX - halfW))
	startY := int(math.Floor(m.centerY - halfH))
	endX := int(math.Ceil(m.centerX + halfW))
	endY := int(math.Ceil(m.centerY + halfH))

	// start/end depend on the viewport size, so the offset is recomputed on every run
	m.offsetX = -int(math.Floor((m.centerX-math.Floor(m.centerX))*tile.Size)) +
		int(math.Floor(float64(m.w)/2.0)) +
		(startX-int(math.Floor(m.centerX)))*tile.Size
	m.offsetY = -int(math.Floor((m.centerY-math.Floor(m.centerY))*tile.Size)) +
		int(math.Floor(float64(m.h)/2.0)) +
		(startY-int(math.Floor(m.centerY)))*tile.Size

	id, err := shortid.Generate()
	if err != nil {
		id = ""
	}
	report := &Report{
		ID:     id,
		Zoom:   m.zoom,
		Start:  image.Pt(startX, startY),
		End:    image.Pt(endX, endY),
		Offset: image.Pt(m.offsetX, m.offsetY),
	}
	log := m.log.WithField("render", id)

	n := 1 << uint(m.zoom)
	var tiles []maptile.Tile
	for x := startX; x < endX; x++ {
		for y := startY; y < endY; y++ {
			if x < 0 || y < 0 || x >= n || y >= n {
				// nothing to fetch, slot stays blank
				failed := tile.FailedTile{Z: m.zoom, X: x, Y: y, Outside: true}
				failed.Error = fmt.Sprintf("tile %s is outside the world", failed.Coord())
				log.WithFields(logrus.Fields{"z": m.zoom, "x": x, "y": y}).Warn("Skipping tile outside the world")
				report.Failed = append(report.Failed, failed)
				continue
			}
			tiles = append(tiles, maptile.New(uint32(x), uint32(y), maptile.Zoom(m.zoom)))
		}
	}

	log.WithFields(logrus.Fields{
		"zoom":  m.zoom,
		"tiles": report.Total(),
	}).Debugf("tiles x:[%d,%d) y:[%d,%d) offset %d,%d", startX, endX, startY, endY, m.offsetX, m.offsetY)

	var done int64
	total := len(tiles)
	fetch := func(t maptile.Tile) fetchResult {
		url := tile.BuildURL(m.url, t)
		img, err := m.fetcher.FetchTile(ctx, url)
		if err == nil && img == nil {
			err = errors.New("fetcher returned no image")
		}
		if m.onTile != nil {
			m.onTile(int(atomic.AddInt64(&done, 1)), total)
		}
		return fetchResult{tile: t, url: url, img: img, err: err}
	}

	if err := m.baseMap.BeginDraw(); err != nil {
		log.WithError(err).Error("base map drawing scope")
		return report
	}
	defer func() {
		if err := m.baseMap.EndDraw(); err != nil {
			log.WithError(err).Error("base map drawing scope")
		}
	}()

	if m.workers > 1 {
		for _, res := range m.fetchConcurrently(tiles, fetch) {
			m.place(report, res, startX, startY, log)
		}
		return report
	}

	for _, t := range tiles {
		m.place(report, fetch(t), startX, startY, log)
	}
	return report
}

// fetchConcurrently runs fetch on a bounded pool and returns results in input order.
func (m *Mapper) fetchConcurrently(tiles []maptile.Tile, fetch func(maptile.Tile) fetchResult) []fetchResult {
	results := make([]fetchResult, len(tiles))
	sema := semaphore.NewSemaphore(uint(m.workers))
	for i, t := range tiles {
		sema.Add()
		go func(i int, t maptile.Tile) {
			defer sema.Done()
			results[i] = fetch(t)
		}(i, t)
	}
	sema.Wait()
	return results
}

func (m *Mapper) place(report *Report, res fetchResult, startX, startY int, log logrus.FieldLogger) {
	destX := (int(res.tile.X)-startX)*tile.Size + m.offsetX
	destY := (int(res.tile.Y)-startY)*tile.Size + m.offsetY

	if res.err != nil {
		log.WithField("url", res.url).WithError(res.err).Warn("Error loading tile")
		failed := tile.FailedTile{
			Z:     int(res.tile.Z),
			X:     int(res.tile.X),
			Y:     int(res.tile.Y),
			URL:   res.url,
			Error: res.err.Error(),
		}
		var se *tile.StatusError
		if errors.As(res.err, &se) {
			failed.StatusCode = se.StatusCode
		}
		report.Failed = append(report.Failed, failed)
		return
	}

	m.baseMap.Image(tile.Normalize(res.img), destX, destY)
	report.Placements = append(report.Placements, Placement{Tile: res.tile, At: image.Pt(destX, destY)})
}
