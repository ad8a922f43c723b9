package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kiesman99/geomap/internal/logging"
	"github.com/kiesman99/geomap/internal/render"
	"github.com/kiesman99/geomap/pkg/tile"
	"github.com/pkg/profile"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is reported by the health endpoint.
var version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geomap",
	Short: "Render a map viewport around a point from web map tiles",
	Long: `geomap renders a fixed size map image centered on a latitude/longitude.

The tiles covering the viewport are downloaded from a web map service, composited
and optionally grayed out or faded. Markers can be drawn on top. The result is
written as PNG, optionally with a world file holding its georeferencing.

Examples:
  # Berlin at zoom 12 from the default tile server
  geomap --lat 52.52 --lon 13.405 --zoom 12 --width 800 --height 600 -o berlin.png

  # Faded watercolor map of Tokyo with a labelled marker
  geomap --lat 35.6824 --lon 139.7531 --zoom 10 --width 640 --height 480 \
    --server watercolor --faded --marker 35.6824,139.7531,Tokyo -o tokyo.png

  # Any XYZ tile service, grayscale, with world file
  geomap --lat 37.77 --lon -122.42 --zoom 11 --width 512 --height 512 \
    --url https://tile.openstreetmap.org/{z}/{x}/{y}.png --grayscale -w -o sf.png

  # List tile servers
  geomap servers

  # Start HTTP server
  geomap serve --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().NFlag() == 0 && len(args) == 0 {
			return cmd.Help()
		}
		return runRender(cmd, args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.geomap.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("user-agent", tile.DefaultUserAgent, "HTTP User-Agent header for tile requests")
	rootCmd.PersistentFlags().Duration("tile-timeout", 30*time.Second, "timeout of a single tile request")
	rootCmd.PersistentFlags().Float64("rps", 0, "maximum tile requests per second (0 = unlimited)")
	rootCmd.PersistentFlags().Int("burst", 1, "tile request burst when --rps is set")
	rootCmd.PersistentFlags().Int("workers", 1, "tiles fetched concurrently per render")

	// Output options
	rootCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	rootCmd.Flags().BoolP("worldfile", "w", false, "write world file")
	rootCmd.Flags().Bool("strict", false, "fail instead of writing a blank map when no tile could be loaded")

	// Viewport options
	rootCmd.Flags().Float64("lat", 0, "center latitude")
	rootCmd.Flags().Float64("lon", 0, "center longitude")
	rootCmd.Flags().Int("width", 0, "image width in pixels")
	rootCmd.Flags().Int("height", 0, "image height in pixels")
	rootCmd.Flags().Int("zoom", 0, "zoom level (values above 18 are clamped)")

	// Tile options
	rootCmd.Flags().StringP("server", "s", tile.DefaultServer, "tile server name, see 'geomap servers'")
	rootCmd.Flags().StringP("url", "u", "", "tile URL template with {z}, {x}, {y} placeholders (overrides --server)")

	// Rendering options
	rootCmd.Flags().Bool("grayscale", false, "convert the map to grayscale")
	rootCmd.Flags().Bool("faded", false, "wash the map out with half transparent white")
	rootCmd.Flags().StringArrayP("marker", "m", nil, "marker as 'lat,lon[,label]' (repeatable)")
	rootCmd.Flags().String("marker-color", "", "marker fill color as #RRGGBB")

	// Diagnostics
	rootCmd.Flags().Bool("progress", false, "show a progress bar while fetching tiles")
	rootCmd.Flags().String("profile", "", "write a CPU profile to this directory")

	// Bind flags to viper for root command
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("user-agent", rootCmd.PersistentFlags().Lookup("user-agent"))
	viper.BindPFlag("tile-timeout", rootCmd.PersistentFlags().Lookup("tile-timeout"))
	viper.BindPFlag("rps", rootCmd.PersistentFlags().Lookup("rps"))
	viper.BindPFlag("burst", rootCmd.PersistentFlags().Lookup("burst"))
	viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("worldfile", rootCmd.Flags().Lookup("worldfile"))
	viper.BindPFlag("strict", rootCmd.Flags().Lookup("strict"))
	viper.BindPFlag("lat", rootCmd.Flags().Lookup("lat"))
	viper.BindPFlag("lon", rootCmd.Flags().Lookup("lon"))
	viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	viper.BindPFlag("height", rootCmd.Flags().Lookup("height"))
	viper.BindPFlag("zoom", rootCmd.Flags().Lookup("zoom"))
	viper.BindPFlag("server", rootCmd.Flags().Lookup("server"))
	viper.BindPFlag("url", rootCmd.Flags().Lookup("url"))
	viper.BindPFlag("grayscale", rootCmd.Flags().Lookup("grayscale"))
	viper.BindPFlag("faded", rootCmd.Flags().Lookup("faded"))
	viper.BindPFlag("marker-color", rootCmd.Flags().Lookup("marker-color"))
	viper.BindPFlag("progress", rootCmd.Flags().Lookup("progress"))
	viper.BindPFlag("profile", rootCmd.Flags().Lookup("profile"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".geomap" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".geomap")
	}

	viper.SetEnvPrefix("geomap")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(cmd *cobra.Command) *logrus.Logger {
	return logging.New(cmd.ErrOrStderr(), viper.GetString("log-level"))
}

func newProcessor() *tile.Processor {
	return tile.NewProcessor(tile.ProcessorOptions{
		UserAgent:         viper.GetString("user-agent"),
		Timeout:           viper.GetDuration("tile-timeout"),
		RequestsPerSecond: viper.GetFloat64("rps"),
		Burst:             viper.GetInt("burst"),
	})
}

func runRender(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)

	if dir := viper.GetString("profile"); dir != "" {
		defer profile.Start(profile.ProfilePath(dir), profile.CPUProfile, profile.Quiet).Stop()
	}

	// markers from the config file are only used when none were given on the command line
	markerSpecs, _ := cmd.Flags().GetStringArray("marker")
	if !cmd.Flags().Changed("marker") {
		markerSpecs = viper.GetStringSlice("markers")
	}
	markers, err := parseMarkers(markerSpecs, viper.GetString("marker-color"))
	if err != nil {
		return err
	}

	job := jobFromConfig(markers)
	if job.Width == 0 || job.Height == 0 {
		return fmt.Errorf("rendering requires --width and --height")
	}

	renderer := render.NewRenderer(newProcessor(), log)
	if viper.GetBool("progress") {
		renderer.OnTile = newProgress(cmd)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output := viper.GetString("output")
	result, err := renderer.RenderToFile(ctx, job, output)
	if err != nil {
		return err
	}

	b := result.Bound
	log.WithField("render", result.Report.ID).Infof("geodetic bounds (EPSG:4326): %.8f,%.8f to %.8f,%.8f",
		b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	if output != "" {
		log.WithField("render", result.Report.ID).Infof("wrote %dx%d image to %s", result.Width, result.Height, output)
	}
	return nil
}

// jobFromConfig reads the render job from flags, config file and environment.
// Single shot renders are best effort unless --strict is set.
func jobFromConfig(markers []render.Marker) render.Job {
	return render.Job{
		Lat:         viper.GetFloat64("lat"),
		Lon:         viper.GetFloat64("lon"),
		Zoom:        viper.GetInt("zoom"),
		Width:       viper.GetInt("width"),
		Height:      viper.GetInt("height"),
		Server:      viper.GetString("server"),
		URLTemplate: viper.GetString("url"),
		Grayscale:   viper.GetBool("grayscale"),
		Faded:       viper.GetBool("faded"),
		Markers:     markers,
		Workers:     viper.GetInt("workers"),
		WorldFile:   viper.GetBool("worldfile"),
		BestEffort:  !viper.GetBool("strict"),
	}
}

// parseMarkers parses 'lat,lon[,label]' specs. The label may contain commas.
func parseMarkers(specs []string, color string) ([]render.Marker, error) {
	markers := make([]render.Marker, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ",", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("marker must be in format 'lat,lon[,label]', got %q", spec)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in marker %q: %v", spec, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in marker %q: %v", spec, err)
		}

		m := render.Marker{Lat: lat, Lon: lon, Color: color}
		if len(parts) == 3 {
			m.Label = strings.TrimSpace(parts[2])
		}
		markers = append(markers, m)
	}
	return markers, nil
}

// newProgress returns a tile callback driving a progress bar on stderr.
// The bar is created on the first call, once the tile count is known.
func newProgress(cmd *cobra.Command) func(done, total int) {
	var (
		once sync.Once
		bar  *progressbar.ProgressBar
	)
	return func(done, total int) {
		once.Do(func() {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionSetDescription("[tiles]"),
				progressbar.OptionShowCount(),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		})
		_ = bar.Add(1)
		if done == total {
			_ = bar.Finish()
		}
	}
}
