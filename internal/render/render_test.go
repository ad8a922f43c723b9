package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/kiesman99/geomap/internal/logging"
	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tilePNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newTileServer serves solid red tiles; paths listed in missing answer 404.
func newTileServer(t *testing.T, missing ...string) (*httptest.Server, *int64) {
	t.Helper()
	body := tilePNG(t, color.RGBA{200, 30, 30, 255})
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		for _, m := range missing {
			if r.URL.Path == m || m == "*" {
				http.NotFound(w, r)
				return
			}
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newRenderer() *Renderer {
	return NewRenderer(tile.NewProcessor(tile.ProcessorOptions{}), logging.Discard())
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRender(t *testing.T) {
	srv, hits := newTileServer(t)
	job := Job{Lat: 0, Lon: 45, Zoom: 2, Width: 512, Height: 256, URLTemplate: srv.URL + "/{z}/{x}/{y}.png"}

	result, err := newRenderer().Render(context.Background(), job)
	require.NoError(t, err)

	img := decode(t, result.PNG)
	assert.Equal(t, image.Rect(0, 0, 512, 256), img.Bounds())
	r, g, _, a := img.At(10, 10).RGBA()
	assert.Equal(t, uint32(200), r>>8)
	assert.Equal(t, uint32(30), g>>8)
	assert.Equal(t, uint32(255), a>>8)

	assert.Equal(t, int64(6), atomic.LoadInt64(hits))
	assert.Equal(t, 6, result.Report.Drawn())
	assert.Nil(t, result.WorldFile)

	assert.InDelta(t, -45, result.Bound.Min[0], 1e-9)
	assert.InDelta(t, 135, result.Bound.Max[0], 1e-9)
	assert.InDelta(t, 0, result.Bound.Center()[1], 1e-9)
}

func TestRender_GrayscaleFadedMarkers(t *testing.T) {
	srv, _ := newTileServer(t)
	job := Job{
		Lat: 0, Lon: 45, Zoom: 2, Width: 512, Height: 256,
		URLTemplate: srv.URL + "/{z}/{x}/{y}.png",
		Grayscale:   true,
		Markers: []Marker{
			{Lat: 0, Lon: 45},
			{Lat: 0, Lon: 0, Label: "Null Island", Color: "#0000ff"},
		},
	}

	result, err := newRenderer().Render(context.Background(), job)
	require.NoError(t, err)
	img := decode(t, result.PNG)

	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	r, g, b, _ = img.At(256, 128).RGBA()
	assert.Equal(t, []uint32{255, 255, 255}, []uint32{r >> 8, g >> 8, b >> 8})

	r, _, b, _ = img.At(128, 128).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(255), b>>8)

	job.Grayscale = false
	job.Faded = true
	job.Markers = nil
	result, err = newRenderer().Render(context.Background(), job)
	require.NoError(t, err)
	r, g, _, _ = decode(t, result.PNG).At(10, 10).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Greater(t, g>>8, uint32(30))
}

func TestRender_PartialFailureStillRenders(t *testing.T) {
	srv, _ := newTileServer(t, "/2/2/1.png")
	job := Job{Lat: 0, Lon: 45, Zoom: 2, Width: 512, Height: 256, URLTemplate: srv.URL + "/{z}/{x}/{y}.png"}

	result, err := newRenderer().Render(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Report.Drawn())
	require.Len(t, result.Report.Failed, 1)
	assert.Equal(t, http.StatusNotFound, result.Report.Failed[0].StatusCode)

	_, _, _, a := decode(t, result.PNG).At(200, 50).RGBA()
	assert.Equal(t, uint32(0), a)
}

func TestRender_AllTilesFail(t *testing.T) {
	srv, _ := newTileServer(t, "*")
	job := Job{Lat: 0, Lon: 45, Zoom: 2, Width: 512, Height: 256, URLTemplate: srv.URL + "/{z}/{x}/{y}.png"}

	_, err := newRenderer().Render(context.Background(), job)
	var tileErr *TileError
	require.True(t, errors.As(err, &tileErr))
	assert.Equal(t, 6, tileErr.Total)
	assert.Len(t, tileErr.FailedTiles, 6)
}

func TestRender_AllTilesFailBestEffort(t *testing.T) {
	srv, _ := newTileServer(t, "*")
	dir := t.TempDir()
	out := filepath.Join(dir, "blank.png")
	job := Job{
		Lat: 0, Lon: 45, Zoom: 2, Width: 512, Height: 256,
		URLTemplate: srv.URL + "/{z}/{x}/{y}.png",
		Markers:     []Marker{{Lat: 0, Lon: 45}},
		BestEffort:  true,
	}

	result, err := newRenderer().RenderToFile(context.Background(), job, out)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Report.Drawn())
	assert.Len(t, result.Report.Failed, 6)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	img := decode(t, written)
	assert.Equal(t, image.Rect(0, 0, 512, 256), img.Bounds())
	_, _, _, a := img.At(5, 5).RGBA()
	assert.Zero(t, a)
	// the marker is still drawn on the blank map
	_, _, _, a = img.At(256, 128).RGBA()
	assert.NotZero(t, a)
}

func TestRender_Cancelled(t *testing.T) {
	srv, _ := newTileServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := Job{Lat: 0, Lon: 45, Zoom: 2, Width: 512, Height: 256, URLTemplate: srv.URL + "/{z}/{x}/{y}.png"}
	_, err := newRenderer().Render(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_Parallel(t *testing.T) {
	srv, hits := newTileServer(t)
	var progress int64
	r := newRenderer()
	r.OnTile = func(done, total int) { atomic.AddInt64(&progress, 1) }

	job := Job{Lat: 52.52, Lon: 13.405, Zoom: 10, Width: 800, Height: 600, URLTemplate: srv.URL + "/{z}/{x}/{y}.png", Workers: 4}
	result, err := r.Render(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, result.Report.Total(), result.Report.Drawn())
	assert.Equal(t, atomic.LoadInt64(hits), atomic.LoadInt64(&progress))
}

func TestJobValidate(t *testing.T) {
	valid := Job{Lat: 10, Lon: 10, Zoom: 3, Width: 100, Height: 100}
	require.NoError(t, valid.Validate())

	for name, mutate := range map[string]func(j *Job){
		"negative zoom": func(j *Job) { j.Zoom = -1 },
		"zero width":    func(j *Job) { j.Width = 0 },
		"huge":          func(j *Job) { j.Width, j.Height = 20000, 20000 },
		"latitude":      func(j *Job) { j.Lat = 91 },
		"longitude":     func(j *Job) { j.Lon = -181 },
		"template":      func(j *Job) { j.URLTemplate = "http://example.com/tile.png" },
		"marker color":  func(j *Job) { j.Markers = []Marker{{Color: "red"}} },
	} {
		t.Run(name, func(t *testing.T) {
			j := valid
			mutate(&j)
			assert.Error(t, j.Validate())
		})
	}
}

func TestRenderToFile(t *testing.T) {
	srv, _ := newTileServer(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "map.png")
	job := Job{
		Lat: 0, Lon: 45, Zoom: 2, Width: 512, Height: 256,
		URLTemplate: srv.URL + "/{z}/{x}/{y}.png",
		WorldFile:   true,
	}

	result, err := newRenderer().RenderToFile(context.Background(), job, out)
	require.NoError(t, err)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, result.PNG, written)

	wf, err := os.ReadFile(filepath.Join(dir, "map.pgw"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(wf)), "\n")
	require.Len(t, lines, 6)

	values := make([]float64, len(lines))
	for i, l := range lines {
		values[i], err = strconv.ParseFloat(strings.TrimSpace(l), 64)
		require.NoError(t, err)
	}

	px := tile.PixelSize(2)
	assert.InDelta(t, px, values[0], 1e-6)
	assert.InDelta(t, -px, values[3], 1e-6)
	// left edge is 256px west of lon 45, top edge 128px north of the equator
	assert.InDelta(t, -256*px+45*tile.PixelSize(0)*tile.Size/360, values[4], 1e-3)
	assert.InDelta(t, 128*px, values[5], 1e-3)
}
