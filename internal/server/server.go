package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	chirender "github.com/go-chi/render"
	"github.com/jamesrr39/semaphore"
	"github.com/kiesman99/geomap/internal/api"
	"github.com/kiesman99/geomap/internal/canvas"
	"github.com/kiesman99/geomap/internal/geomap"
	"github.com/kiesman99/geomap/internal/render"
	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
)

// Options configures a Server.
type Options struct {
	Version string
	Fetcher geomap.TileFetcher
	Logger  logrus.FieldLogger

	// MaxRenders caps renders running at the same time. Zero means 4.
	MaxRenders uint
	// Workers is the per render tile fetch concurrency.
	Workers int
}

// Server implements the ServerInterface from the generated API
type Server struct {
	startTime time.Time
	version   string
	renderer  *render.Renderer
	sema      *semaphore.Semaphore
	workers   int
	log       logrus.FieldLogger
}

// NewServer creates a new server instance
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = tile.NewProcessor(tile.ProcessorOptions{})
	}
	maxRenders := opts.MaxRenders
	if maxRenders == 0 {
		maxRenders = 4
	}

	return &Server{
		startTime: time.Now(),
		version:   opts.Version,
		renderer:  render.NewRenderer(fetcher, log),
		sema:      semaphore.NewSemaphore(maxRenders),
		workers:   opts.Workers,
		log:       log,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

// ListServers returns the tile server registry.
func (s *Server) ListServers(w http.ResponseWriter, r *http.Request) {
	servers := tile.Servers()
	response := make([]api.TileServer, len(servers))
	for i, srv := range servers {
		response[i] = api.TileServer{Name: srv.Name, Url: srv.URL}
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

// CreateRender renders the viewport described by a JSON body.
func (s *Server) CreateRender(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)

	var req api.CreateRenderJSONRequestBody
	if err := chirender.DecodeJSON(r.Body, &req); err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", &requestID, nil)
		return
	}

	if field, err := validateRenderRequest(&req); err != nil {
		s.writeValidationErrorResponse(w, r, field, err.Error(), &requestID)
		return
	}

	s.render(w, r, s.convertToJob(&req), requestID)
}

// RenderImage renders the viewport described by query parameters.
func (s *Server) RenderImage(w http.ResponseWriter, r *http.Request, params api.RenderImageParams) {
	requestID := requestID(r)

	req := api.RenderRequest{
		Center:    api.CenterPoint{Lat: params.Lat, Lon: params.Lon},
		Zoom:      params.Zoom,
		Width:     params.Width,
		Height:    params.Height,
		Server:    params.Server,
		Url:       params.Url,
		Grayscale: params.Grayscale,
		Faded:     params.Faded,
	}
	if field, err := validateRenderRequest(&req); err != nil {
		s.writeValidationErrorResponse(w, r, field, err.Error(), &requestID)
		return
	}

	s.render(w, r, s.convertToJob(&req), requestID)
}

// ParamError answers query parameter binding failures.
func (s *Server) ParamError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestID(r)
	field := "query"
	var perr *api.InvalidParamFormatError
	if errors.As(err, &perr) {
		field = perr.ParamName
	}
	s.writeValidationErrorResponse(w, r, field, err.Error(), &requestID)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, job render.Job, requestID string) {
	s.sema.Add()
	defer s.sema.Done()

	// the request may have expired while queued for a render slot
	if err := r.Context().Err(); err != nil {
		s.log.WithField("request_id", requestID).WithError(err).Warn("request expired before rendering")
		s.writeErrorResponse(w, r, http.StatusGatewayTimeout, "RENDER_TIMEOUT",
			"Request expired while waiting for a render slot", &requestID, nil)
		return
	}

	result, err := s.renderer.Render(r.Context(), job)
	if err != nil {
		s.handleRenderError(w, r, err, &requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Tiles-Drawn", strconv.Itoa(result.Report.Drawn()))
	w.Header().Set("X-Tiles-Failed", strconv.Itoa(len(result.Report.Failed)))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PNG)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.PNG); err != nil {
		s.log.WithError(err).Error("writing response")
	}
}

// validateRenderRequest returns the offending field along with the error.
func validateRenderRequest(req *api.RenderRequest) (string, error) {
	if req.Center.Lat < -90 || req.Center.Lat > 90 {
		return "center.lat", fmt.Errorf("lat must be between -90 and 90")
	}
	if req.Center.Lon < -180 || req.Center.Lon > 180 {
		return "center.lon", fmt.Errorf("lon must be between -180 and 180")
	}
	if req.Zoom < 0 {
		return "zoom", fmt.Errorf("zoom must not be negative")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return "width", fmt.Errorf("width and height must be positive")
	}
	if int64(req.Width)*int64(req.Height) > render.MaxPixels {
		return "width", fmt.Errorf("requested image size too large: %dx%d", req.Width, req.Height)
	}
	if req.Url != nil {
		if err := tile.ValidateTemplate(*req.Url); err != nil {
			return "url", err
		}
	}
	if req.Markers != nil {
		for i, mk := range *req.Markers {
			field := fmt.Sprintf("markers[%d]", i)
			if mk.Lat < -90 || mk.Lat > 90 || mk.Lon < -180 || mk.Lon > 180 {
				return field, fmt.Errorf("marker position %g,%g out of range", mk.Lat, mk.Lon)
			}
			if mk.Color != nil {
				if _, err := canvas.ParseHexColor(*mk.Color); err != nil {
					return field + ".color", err
				}
			}
		}
	}
	return "", nil
}

// convertToJob converts API request to a render job
func (s *Server) convertToJob(req *api.RenderRequest) render.Job {
	job := render.Job{
		Lat:     req.Center.Lat,
		Lon:     req.Center.Lon,
		Zoom:    req.Zoom,
		Width:   req.Width,
		Height:  req.Height,
		Workers: s.workers,
	}
	if req.Server != nil {
		job.Server = *req.Server
	}
	if req.Url != nil {
		job.URLTemplate = *req.Url
	}
	if req.Grayscale != nil {
		job.Grayscale = *req.Grayscale
	}
	if req.Faded != nil {
		job.Faded = *req.Faded
	}
	if req.Markers != nil {
		for _, mk := range *req.Markers {
			m := render.Marker{Lat: mk.Lat, Lon: mk.Lon}
			if mk.Label != nil {
				m.Label = *mk.Label
			}
			if mk.Color != nil {
				m.Color = *mk.Color
			}
			job.Markers = append(job.Markers, m)
		}
	}
	return job
}

// handleRenderError handles errors from the render process
func (s *Server) handleRenderError(w http.ResponseWriter, r *http.Request, err error, requestID *string) {
	var tileErr *render.TileError
	if errors.As(err, &tileErr) {
		failedTiles := make([]api.FailedTile, len(tileErr.FailedTiles))
		for i, ft := range tileErr.FailedTiles {
			failedTiles[i] = api.FailedTile{Error: ft.Error, Tile: ft.Coord()}
			if ft.URL != "" {
				u := ft.URL
				failedTiles[i].Url = &u
			}
			if ft.Outside {
				outside := true
				failedTiles[i].Outside = &outside
			}
			if ft.StatusCode != 0 {
				code := ft.StatusCode
				failedTiles[i].StatusCode = &code
			}
		}

		s.writeJSON(w, r, http.StatusBadGateway, api.TileErrorResponse{
			Error:           "TILE_SERVER_ERROR",
			Message:         tileErr.Message,
			FailedTiles:     failedTiles,
			SuccessfulTiles: tileErr.Drawn,
			TotalTiles:      tileErr.Total,
			RequestId:       requestID,
		})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.writeErrorResponse(w, r, http.StatusGatewayTimeout, "TILE_SERVER_TIMEOUT",
			"Tile server requests timed out", requestID, nil)
		return
	}

	s.log.WithError(err).Error("render failed")
	s.writeErrorResponse(w, r, http.StatusInternalServerError, "INTERNAL_ERROR",
		"Internal server error", requestID, nil)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	s.writeJSON(w, r, statusCode, response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, r *http.Request, field, message string, requestID *string) {
	s.writeJSON(w, r, http.StatusBadRequest, api.ValidationErrorResponse{
		Error:     api.VALIDATIONERROR,
		Message:   message,
		RequestId: requestID,
		ValidationErrors: []api.ValidationError{
			{Field: field, Message: message},
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) {
	chirender.Status(r, statusCode)
	chirender.JSON(w, r, v)
}

// requestID prefers the id set by the RequestID middleware.
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return "req_" + shortid.MustGenerate()
}
