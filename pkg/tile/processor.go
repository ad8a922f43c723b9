package tile

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	_ "image/gif"

	"github.com/paulmach/orb/maptile"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent with every tile request unless overridden.
const DefaultUserAgent = "geomap/1.0.0"

// ProcessorOptions configures a Processor
type ProcessorOptions struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string

	// RequestsPerSecond limits tile requests. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int
}

// Processor handles tile downloading and decoding
type Processor struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	limiter   *rate.Limiter
}

// NewProcessor creates a new tile processor
func NewProcessor(opts ProcessorOptions) *Processor {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Processor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		headers:   opts.Headers,
		limiter:   limiter,
	}
}

// FetchTile downloads and decodes the tile at url.
func (p *Processor) FetchTile(ctx context.Context, url string) (image.Image, error) {
	data, err := p.DownloadTile(ctx, url)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return img, nil
}

// DownloadTile downloads a tile from the given URL
func (p *Processor) DownloadTile(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", p.userAgent)
	for key, value := range p.headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}

// DecodeImage detects image format and decodes
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}) {
		return png.Decode(bytes.NewReader(data))
	} else if len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xD8}) {
		return jpeg.Decode(bytes.NewReader(data))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unrecognized image format: %w", err)
	}
	return img, nil
}

// Normalize rescales img to Size x Size. Images already at that size are returned unchanged.
func Normalize(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == Size && b.Dy() == Size {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// BuildURL replaces URL template tokens
func BuildURL(template string, t maptile.Tile) string {
	url := template
	url = strings.ReplaceAll(url, "{z}", strconv.Itoa(int(t.Z)))
	url = strings.ReplaceAll(url, "{x}", strconv.FormatUint(uint64(t.X), 10))
	url = strings.ReplaceAll(url, "{y}", strconv.FormatUint(uint64(t.Y), 10))
	// Handle {s} for subdomains (simple implementation)
	if strings.Contains(url, "{s}") {
		subdomain := string(rune('a' + (t.X+t.Y)%3))
		url = strings.ReplaceAll(url, "{s}", subdomain)
	}
	return url
}

// WritePNG writes PNG output
func WritePNG(filename string, data []byte) error {
	var output io.Writer

	if filename == "" {
		output = os.Stdout
	} else {
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer file.Close()
		output = file
	}

	_, err := output.Write(data)
	return err
}

// GenerateWorldFile renders world file contents
func GenerateWorldFile(wf WorldFile) []byte {
	var buf bytes.Buffer
	// World file format: pixel size x, rotation, rotation, pixel size y (negative), top left x, top left y
	fmt.Fprintf(&buf, "%24.10f\n", wf.PixelSizeX)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", -wf.PixelSizeY)
	fmt.Fprintf(&buf, "%24.10f\n", wf.MinX)
	fmt.Fprintf(&buf, "%24.10f\n", wf.MaxY)
	return buf.Bytes()
}

// WorldFileName derives the world file path next to a PNG file.
func WorldFileName(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("can't write a worldfile when writing to stdout")
	}

	// Replace extension
	worldFilename := filename
	if idx := strings.LastIndex(worldFilename, "."); idx != -1 {
		worldFilename = worldFilename[:idx] + WorldFileExt
	} else {
		worldFilename += WorldFileExt
	}
	return worldFilename, nil
}

// WriteWorldFile writes world file data next to filename and returns the path written.
func WriteWorldFile(filename string, data []byte) (string, error) {
	worldFilename, err := WorldFileName(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(worldFilename, data, 0o644); err != nil {
		return "", err
	}
	return worldFilename, nil
}
