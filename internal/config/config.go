package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Metrics source kinds.
const (
	MetricsSourceFile     = "file"
	MetricsSourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Map      MapConfig
	Data     DataConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DatabaseConfig holds PostgreSQL connection configuration.
// It is only used when metrics are read from PostgreSQL.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// MapConfig holds the initial view handed to map clients.
type MapConfig struct {
	CenterLat          float64
	CenterLng          float64
	Zoom               int
	MinZoom            int
	MaxBounds          [2][2]float64 // [[south, west], [north, east]]
	MaxBoundsViscosity float64
}

// DataConfig holds input locations and load behavior.
type DataConfig struct {
	GeoIDField            string
	GeometryPath          string
	MetricsPath           string
	DatasetsPath          string
	MetricsSource         string
	MetricsDefaultDataset string
	DefaultDataset        string
	DefaultMetric         string
	LoadTimeout           time.Duration
}

// UsesDatabase reports whether a database connection is needed.
func (c *Config) UsesDatabase() bool {
	return c.Data.MetricsSource == MetricsSourcePostgres
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "choropleth")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	v.SetDefault("MAP_CENTER_LAT", 20.6427)
	v.SetDefault("MAP_CENTER_LNG", -157.5769)
	v.SetDefault("MAP_ZOOM", 8)
	v.SetDefault("MAP_MIN_ZOOM", 7)
	v.SetDefault("MAP_MAX_BOUNDS", "18,-161,23,-154")
	v.SetDefault("MAP_MAX_BOUNDS_VISCOSITY", 0.5)

	v.SetDefault("GEOID_FIELD", "geoid20")
	v.SetDefault("GEOMETRY_PATH", "data/blockgroups.geojson")
	v.SetDefault("METRICS_PATH", "data/metrics.json")
	v.SetDefault("DATASETS_PATH", "data/datasets.json")
	v.SetDefault("METRICS_SOURCE", MetricsSourceFile)
	v.SetDefault("METRICS_DEFAULT_DATASET", "default")
	v.SetDefault("DEFAULT_DATASET", "")
	v.SetDefault("DEFAULT_METRIC", "")
	v.SetDefault("LOAD_TIMEOUT", "60s")

	// Bind environment variables
	v.AutomaticEnv()

	bounds, err := parseBounds(v.GetString("MAP_MAX_BOUNDS"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Map: MapConfig{
			CenterLat:          v.GetFloat64("MAP_CENTER_LAT"),
			CenterLng:          v.GetFloat64("MAP_CENTER_LNG"),
			Zoom:               v.GetInt("MAP_ZOOM"),
			MinZoom:            v.GetInt("MAP_MIN_ZOOM"),
			MaxBounds:          bounds,
			MaxBoundsViscosity: v.GetFloat64("MAP_MAX_BOUNDS_VISCOSITY"),
		},
		Data: DataConfig{
			GeoIDField:            v.GetString("GEOID_FIELD"),
			GeometryPath:          v.GetString("GEOMETRY_PATH"),
			MetricsPath:           v.GetString("METRICS_PATH"),
			DatasetsPath:          v.GetString("DATASETS_PATH"),
			MetricsSource:         strings.ToLower(v.GetString("METRICS_SOURCE")),
			MetricsDefaultDataset: v.GetString("METRICS_DEFAULT_DATASET"),
			DefaultDataset:        v.GetString("DEFAULT_DATASET"),
			DefaultMetric:         v.GetString("DEFAULT_METRIC"),
			LoadTimeout:           v.GetDuration("LOAD_TIMEOUT"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	if err := c.Map.validate(); err != nil {
		return err
	}
	if err := c.Data.validate(); err != nil {
		return err
	}

	if c.UsesDatabase() {
		return c.Database.validate()
	}
	return nil
}

func (m MapConfig) validate() error {
	if m.CenterLat < -90 || m.CenterLat > 90 {
		return fmt.Errorf("MAP_CENTER_LAT must be between -90 and 90")
	}
	if m.CenterLng < -180 || m.CenterLng > 180 {
		return fmt.Errorf("MAP_CENTER_LNG must be between -180 and 180")
	}
	if m.MinZoom < 0 {
		return fmt.Errorf("MAP_MIN_ZOOM must be non-negative")
	}
	if m.Zoom < m.MinZoom {
		return fmt.Errorf("MAP_ZOOM must be greater than or equal to MAP_MIN_ZOOM")
	}
	if m.MaxBoundsViscosity < 0 || m.MaxBoundsViscosity > 1 {
		return fmt.Errorf("MAP_MAX_BOUNDS_VISCOSITY must be between 0 and 1")
	}
	return nil
}

func (d DataConfig) validate() error {
	if d.GeoIDField == "" {
		return fmt.Errorf("GEOID_FIELD is required")
	}
	if d.GeometryPath == "" {
		return fmt.Errorf("GEOMETRY_PATH is required")
	}
	if d.DatasetsPath == "" {
		return fmt.Errorf("DATASETS_PATH is required")
	}
	switch d.MetricsSource {
	case MetricsSourceFile:
		if d.MetricsPath == "" {
			return fmt.Errorf("METRICS_PATH is required when METRICS_SOURCE is %q", MetricsSourceFile)
		}
	case MetricsSourcePostgres:
	default:
		return fmt.Errorf("METRICS_SOURCE must be %q or %q", MetricsSourceFile, MetricsSourcePostgres)
	}
	if d.DefaultMetric != "" && d.DefaultDataset == "" {
		return fmt.Errorf("DEFAULT_METRIC requires DEFAULT_DATASET")
	}
	if d.LoadTimeout <= 0 {
		return fmt.Errorf("LOAD_TIMEOUT must be positive")
	}
	return nil
}

func (db DatabaseConfig) validate() error {
	if db.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if db.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if db.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if db.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if db.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if db.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if db.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if db.PoolMin > db.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBounds reads "south,west,north,east" into [[south, west], [north, east]].
func parseBounds(s string) ([2][2]float64, error) {
	var bounds [2][2]float64

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return bounds, fmt.Errorf("MAP_MAX_BOUNDS must have four values: south,west,north,east")
	}

	values := make([]float64, 4)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return bounds, fmt.Errorf("MAP_MAX_BOUNDS value %q is not a number", strings.TrimSpace(part))
		}
		values[i] = f
	}

	south, west, north, east := values[0], values[1], values[2], values[3]
	if south >= north {
		return bounds, fmt.Errorf("MAP_MAX_BOUNDS south must be less than north")
	}
	if west >= east {
		return bounds, fmt.Errorf("MAP_MAX_BOUNDS west must be less than east")
	}

	bounds[0] = [2]float64{south, west}
	bounds[1] = [2]float64{north, east}
	return bounds, nil
}
