// Package api provides the HTTP API types and chi routing for the geomap server.
package api

import "time"

// Defines values for HealthResponseStatus.
const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Defines values for ValidationErrorResponseError.
const (
	VALIDATIONERROR ValidationErrorResponseError = "VALIDATION_ERROR"
)

// CenterPoint defines model for CenterPoint.
type CenterPoint struct {
	// Lat Center latitude
	Lat float64 `json:"lat"`

	// Lon Center longitude
	Lon float64 `json:"lon"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Details   *map[string]interface{} `json:"details,omitempty"`
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
}

// FailedTile defines model for FailedTile.
type FailedTile struct {
	Error string `json:"error"`

	// Outside The slot lies beyond the world edge and was never requested
	Outside    *bool `json:"outside,omitempty"`
	StatusCode *int  `json:"status_code,omitempty"`

	// Tile Slot coordinate as z/x/y. x and y may be negative.
	Tile string  `json:"tile"`
	Url  *string `json:"url,omitempty"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`

	// Uptime Server uptime in seconds
	Uptime  *int    `json:"uptime,omitempty"`
	Version *string `json:"version,omitempty"`
}

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// Marker defines model for Marker.
type Marker struct {
	// Color Fill color as #RRGGBB or #AARRGGBB
	Color *string `json:"color,omitempty"`
	Label *string `json:"label,omitempty"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// RenderRequest defines model for RenderRequest.
type RenderRequest struct {
	Center    CenterPoint `json:"center"`
	Faded     *bool       `json:"faded,omitempty"`
	Grayscale *bool       `json:"grayscale,omitempty"`

	// Height Image height in pixels
	Height  int       `json:"height"`
	Markers *[]Marker `json:"markers,omitempty"`

	// Server Name of a registered tile server
	Server *string `json:"server,omitempty"`

	// Url Tile URL template with {z}, {x} and {y} placeholders. Overrides server.
	Url *string `json:"url,omitempty"`

	// Width Image width in pixels
	Width int `json:"width"`

	// Zoom Zoom level, values above 18 are clamped
	Zoom int `json:"zoom"`
}

// TileErrorResponse defines model for TileErrorResponse.
type TileErrorResponse struct {
	Error           string       `json:"error"`
	FailedTiles     []FailedTile `json:"failed_tiles"`
	Message         string       `json:"message"`
	RequestId       *string      `json:"request_id,omitempty"`
	SuccessfulTiles int          `json:"successful_tiles"`
	TotalTiles      int          `json:"total_tiles"`
}

// TileServer defines model for TileServer.
type TileServer struct {
	Name string `json:"name"`
	Url  string `json:"url"`
}

// ValidationError defines model for ValidationError.
type ValidationError struct {
	Code    *string `json:"code,omitempty"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
}

// ValidationErrorResponse defines model for ValidationErrorResponse.
type ValidationErrorResponse struct {
	Error            ValidationErrorResponseError `json:"error"`
	Message          string                       `json:"message"`
	RequestId        *string                      `json:"request_id,omitempty"`
	ValidationErrors []ValidationError            `json:"validation_errors"`
}

// ValidationErrorResponseError defines model for ValidationErrorResponse.Error.
type ValidationErrorResponseError string

// RenderImageParams defines parameters for RenderImage.
type RenderImageParams struct {
	Lat       float64 `form:"lat" json:"lat"`
	Lon       float64 `form:"lon" json:"lon"`
	Zoom      int     `form:"zoom" json:"zoom"`
	Width     int     `form:"width" json:"width"`
	Height    int     `form:"height" json:"height"`
	Server    *string `form:"server,omitempty" json:"server,omitempty"`
	Url       *string `form:"url,omitempty" json:"url,omitempty"`
	Grayscale *bool   `form:"grayscale,omitempty" json:"grayscale,omitempty"`
	Faded     *bool   `form:"faded,omitempty" json:"faded,omitempty"`
}

// CreateRenderJSONRequestBody defines body for CreateRender for application/json ContentType.
type CreateRenderJSONRequestBody = RenderRequest
