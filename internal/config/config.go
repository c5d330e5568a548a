package config

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the survey and protected-area datasets.
type InputConfig struct {
	Observations     string `yaml:"observations" mapstructure:"observations"`
	Regions          string `yaml:"regions" mapstructure:"regions"`
	MeasurementField string `yaml:"measurement_field" mapstructure:"measurement_field"`
	RegionNameField  string `yaml:"region_name_field" mapstructure:"region_name_field"`
	// Encoding overrides the shapefile .cpg code page.
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	// RegionsTable reads regions from PostGIS instead of Regions.
	RegionsTable string `yaml:"regions_table" mapstructure:"regions_table"`
	RegionsGeom  string `yaml:"regions_geom_column" mapstructure:"regions_geom_column"`
	DatabaseURL  string `yaml:"database_url" mapstructure:"database_url"`
}

// AnalysisConfig configures projection, classification and statistics.
type AnalysisConfig struct {
	TargetCRS       string  `yaml:"target_crs" mapstructure:"target_crs"`
	Boundary        string  `yaml:"boundary" mapstructure:"boundary"`
	QuantileClasses int     `yaml:"quantile_classes" mapstructure:"quantile_classes"`
	HistogramBins   int     `yaml:"histogram_bins" mapstructure:"histogram_bins"`
	Alpha           float64 `yaml:"alpha" mapstructure:"alpha"`
}

// ReportConfig configures the printed report.
type ReportConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
}

// ExportConfig configures output files. An empty Dir disables exports.
type ExportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Accepted enumerations.
var (
	BoundaryPolicies = []string{"exclude", "include"}
	ReportFormats    = []string{"text", "json", "yaml"}
	ExportFormats    = []string{"geojson", "xlsx", "sqlite"}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.observations", "data/Marine Microplastic Concentrations.geojson")
	v.SetDefault("input.regions", "data/c20230705_OffshoreMPAs_WGS84.shp")
	v.SetDefault("input.measurement_field", "MEASUREMEN")
	v.SetDefault("input.region_name_field", "SITE_NAME")
	v.SetDefault("input.encoding", "")
	v.SetDefault("input.regions_table", "")
	v.SetDefault("input.regions_geom_column", "geom")
	v.SetDefault("input.database_url", "")
	v.SetDefault("analysis.target_crs", "EPSG:3857")
	v.SetDefault("analysis.boundary", "exclude")
	v.SetDefault("analysis.quantile_classes", 5)
	v.SetDefault("analysis.histogram_bins", 10)
	v.SetDefault("analysis.alpha", 0.05)
	v.SetDefault("report.format", "text")
	v.SetDefault("export.dir", "")
	v.SetDefault("export.formats", []string{"geojson"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by mode ("analyze", "areas" or
// "describe") and reports every problem found.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze":
		if c.Input.Observations == "" {
			problems = append(problems, "input.observations is required")
		}
		if c.Input.MeasurementField == "" {
			problems = append(problems, "input.measurement_field is required")
		}
		problems = append(problems, c.validateRegions()...)
		problems = append(problems, c.validateAnalysis()...)
		if !slices.Contains(ReportFormats, strings.ToLower(c.Report.Format)) {
			problems = append(problems, "report.format must be one of "+strings.Join(ReportFormats, ", "))
		}
		for _, f := range c.Export.Formats {
			if !slices.Contains(ExportFormats, strings.ToLower(f)) {
				problems = append(problems, "export.formats: unknown format "+f)
			}
		}
	case "areas":
		problems = append(problems, c.validateRegions()...)
		if c.Analysis.TargetCRS == "" {
			problems = append(problems, "analysis.target_crs is required")
		}
	case "describe":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateRegions() []string {
	var problems []string
	if c.Input.RegionsTable != "" {
		if c.Input.DatabaseURL == "" {
			problems = append(problems, "input.database_url is required with input.regions_table")
		}
	} else if c.Input.Regions == "" {
		problems = append(problems, "input.regions is required")
	}
	if c.Input.RegionNameField == "" {
		problems = append(problems, "input.region_name_field is required")
	}
	return problems
}

func (c *Config) validateAnalysis() []string {
	var problems []string
	if c.Analysis.TargetCRS == "" {
		problems = append(problems, "analysis.target_crs is required")
	}
	if !slices.Contains(BoundaryPolicies, strings.ToLower(c.Analysis.Boundary)) {
		problems = append(problems, "analysis.boundary must be exclude or include")
	}
	if c.Analysis.QuantileClasses <= 0 {
		problems = append(problems, "analysis.quantile_classes must be > 0")
	}
	if c.Analysis.HistogramBins <= 0 {
		problems = append(problems, "analysis.histogram_bins must be > 0")
	}
	if c.Analysis.Alpha <= 0 || c.Analysis.Alpha >= 1 {
		problems = append(problems, "analysis.alpha must be between 0 and 1")
	}
	return problems
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
