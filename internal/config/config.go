package config

import (
	"flag"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"production"`
	PGSQL      PQSQL      `yaml:"pgsql" env-required:"true"`
	Redis      Redis      `yaml:"redis"`
	MinIO      MinIO      `yaml:"minio" env-required:"true"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	Policy     Policy     `yaml:"policy" env-required:"true"`
	Thumbnail  Thumbnail  `yaml:"thumbnail"`
	Transcode  Transcode  `yaml:"transcode"`
	JWTSecret  string     `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
}

type HTTPServer struct {
	Address string `yaml:"address" env-default:"localhost:8080"`
}

type PQSQL struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-default:"postgres"`
	Password string `yaml:"password" env-default:"password"`
	DBName   string `yaml:"dbname" env-default:"media_db"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env-default:"localhost:6379"`
	Password string `yaml:"password" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_KEY"`
	BucketName      string `yaml:"bucket_name" env-default:"media"`
	UseSSL          bool   `yaml:"use_ssl" env-default:"false"`
}

// Policy holds the upload policy knobs. It is loaded once at startup and
// never mutated afterwards; consumers hold a pointer to the same instance.
type Policy struct {
	// AllowedMimeTypes is the content-type allow-list for uploads.
	AllowedMimeTypes []string `yaml:"allowed_mime_types"`

	// RoleMaxSizes maps a role name (lowercase, without the ROLE_ prefix)
	// to its per-upload size ceiling in bytes. The "verified" entry doubles
	// as the fallback for roles with no entry of their own.
	RoleMaxSizes map[string]int64 `yaml:"role_max_sizes"`

	// RoleDailyLimits maps a role name to its daily upload count ceiling,
	// with the same "verified" fallback convention.
	RoleDailyLimits map[string]int `yaml:"role_daily_limits"`

	DefaultMaxSize    int64 `yaml:"default_max_size" env-default:"10485760"`
	DefaultDailyLimit int   `yaml:"default_daily_limit" env-default:"10"`

	PresignExpiryMinutes int `yaml:"presign_expiry_minutes" env-default:"15"`
}

type Thumbnail struct {
	MaxWidth  int `yaml:"max_width" env-default:"320"`
	MaxHeight int `yaml:"max_height" env-default:"320"`
	Quality   int `yaml:"quality" env-default:"80"`
	Workers   int `yaml:"workers" env-default:"4"`
	QueueSize int `yaml:"queue_size" env-default:"256"`
}

type Transcode struct {
	MaxDurationSeconds int    `yaml:"max_duration_seconds" env-default:"180"`
	MaxConcurrent      int64  `yaml:"max_concurrent" env-default:"2"`
	FFmpegPath         string `yaml:"ffmpeg_path" env-default:"ffmpeg"`
	FFprobePath        string `yaml:"ffprobe_path" env-default:"ffprobe"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
