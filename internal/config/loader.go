package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpattn/gradtrack/internal/db"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. GRADTRACK_DATABASE_HOST.
const EnvPrefix = "GRADTRACK"

// Config is the full service configuration
type Config struct {
	Database db.Config    `mapstructure:"database"`
	Server   ServerConfig `mapstructure:"server"`
	Import   ImportConfig `mapstructure:"import"`
	Log      LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxUploadMB     int           `mapstructure:"max_upload_mb" validate:"min=1,max=512"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MaxUploadBytes converts the upload limit to bytes
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ImportConfig names the seed rows used when imports create references
type ImportConfig struct {
	DefaultDocumentType    string `mapstructure:"default_document_type" validate:"required"`
	DefaultFaculty         string `mapstructure:"default_faculty" validate:"required"`
	DefaultAcademicLevel   string `mapstructure:"default_academic_level" validate:"required"`
	PlaceholderEmailDomain string `mapstructure:"placeholder_email_domain" validate:"required,hostname_rfc1123"`
	PreviewLimit           int    `mapstructure:"preview_limit" validate:"min=1,max=1000"`
}

// LogConfig selects the logrus level and formatter
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			MaxUploadMB:     32,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Import: ImportConfig{
			DefaultDocumentType:    "CC",
			DefaultFaculty:         "Facultad de Ingeniería",
			DefaultAcademicLevel:   "Pregrado",
			PlaceholderEmailDomain: "placeholder.gradtrack.local",
			PreviewLimit:           50,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads config.yaml from configPath (optional), a .env file next to it
// (optional) and GRADTRACK_* environment variables, in increasing priority.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(filepath.Join(configPath, ".env")); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "failed to read .env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "failed to read config.yaml")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags of every section
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("database.host", cfg.Database.Host)
	v.SetDefault("database.port", cfg.Database.Port)
	v.SetDefault("database.user", cfg.Database.User)
	v.SetDefault("database.password", cfg.Database.Password)
	v.SetDefault("database.dbname", cfg.Database.DBName)
	v.SetDefault("database.sslmode", cfg.Database.SSLMode)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.max_upload_mb", cfg.Server.MaxUploadMB)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("import.default_document_type", cfg.Import.DefaultDocumentType)
	v.SetDefault("import.default_faculty", cfg.Import.DefaultFaculty)
	v.SetDefault("import.default_academic_level", cfg.Import.DefaultAcademicLevel)
	v.SetDefault("import.placeholder_email_domain", cfg.Import.PlaceholderEmailDomain)
	v.SetDefault("import.preview_limit", cfg.Import.PreviewLimit)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// NewLogger builds a logrus logger from the log section
func (c LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
