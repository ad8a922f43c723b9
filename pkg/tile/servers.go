package tile

import (
	"sort"
	"strings"
)

// DefaultServer is used when a requested server name is unknown.
const DefaultServer = "toner"

// Server is a named public Z/X/Y tile server.
type Server struct {
	Name string
	URL  string
}

// servers is read-only after package initialisation. Lookups hand out copies.
var servers = map[string]string{
	// http://maps.stamen.com/
	"toner":              "http://tile.stamen.com/toner/{z}/{x}/{y}.png",
	"toner-lines":        "http://tile.stamen.com/toner-lines/{z}/{x}/{y}.png",
	"toner-hybrid":       "http://tile.stamen.com/toner-hybrid/{z}/{x}/{y}.png",
	"toner-background":   "http://tile.stamen.com/toner-background/{z}/{x}/{y}.png",
	"toner-lite":         "http://tile.stamen.com/toner-lite/{z}/{x}/{y}.png",
	"terrain":            "http://tile.stamen.com/terrain/{z}/{x}/{y}.png",
	"terrain-lines":      "http://tile.stamen.com/terrain-lines/{z}/{x}/{y}.png",
	"terrain-background": "http://tile.stamen.com/terrain-background/{z}/{x}/{y}.png",
	"watercolor":         "http://tile.stamen.com/watercolor/{z}/{x}/{y}.png",

	"mapnik": "http://tile.openstreetmap.org/{z}/{x}/{y}.png",
	"cycle":  "http://a.tile.opencyclemap.org/cycle/{z}/{x}/{y}.png",

	// http://wiki.openstreetmap.org/wiki/Tile_servers
	"openstreetmap": "http://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	"wikimedia":     "https://maps.wikimedia.org/osm-intl/{z}/{x}/{y}.png",
	"carto-light":   "http://a.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png",
	"carto-dark":    "http://a.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}.png",
	"openptmap":     "http://www.openptmap.org/tiles/{z}/{x}/{y}.png",
	"hikebike":      "http://a.tiles.wmflabs.org/hikebike/{z}/{x}/{y}.png",

	// https://carto.com/location-data-services/basemaps/
	"carto-lightall":      "http://cartodb-basemaps-1.global.ssl.fastly.net/light_all/{z}/{x}/{y}.png",
	"carto-darkall":       "http://cartodb-basemaps-1.global.ssl.fastly.net/dark_all/{z}/{x}/{y}.png",
	"carto-lightnolabels": "http://cartodb-basemaps-1.global.ssl.fastly.net/light_nolabels/{z}/{x}/{y}.png",
	"carto-darknolabels":  "http://cartodb-basemaps-1.global.ssl.fastly.net/dark_nolabels/{z}/{x}/{y}.png",
}

// LookupServer returns the named tile server.
func LookupServer(name string) (Server, bool) {
	url, ok := servers[name]
	if !ok {
		return Server{}, false
	}
	return Server{Name: name, URL: url}, true
}

// ServerNames returns all known server names, sorted.
func ServerNames() []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Servers returns every known server sorted by name.
func Servers() []Server {
	names := ServerNames()
	out := make([]Server, len(names))
	for i, name := range names {
		out[i] = Server{Name: name, URL: servers[name]}
	}
	return out
}

// ValidateTemplate checks that a URL template carries the {z}, {x} and {y} placeholders.
func ValidateTemplate(template string) error {
	var missing []string
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(template, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &TemplateError{Template: template, Missing: missing}
	}
	return nil
}

// TemplateError reports placeholders missing from a URL template.
type TemplateError struct {
	Template string
	Missing  []string
}

func (e *TemplateError) Error() string {
	return "url template " + e.Template + " is missing " + strings.Join(e.Missing, ", ")
}
