package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	App struct {
		Env         string   `mapstructure:"env"`
		Port        string   `mapstructure:"port"`
		PublicURL   string   `mapstructure:"public_url"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"app"`
	Storage struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`
	DB struct {
		DSN         string `mapstructure:"dsn"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
		Migrations  string `mapstructure:"migrations"`
	} `mapstructure:"db"`
	Mongo struct {
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
	} `mapstructure:"mongo"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Seed struct {
		Token string `mapstructure:"token"`
	} `mapstructure:"seed"`
	Mail struct {
		Host           string `mapstructure:"host"`
		Port           int    `mapstructure:"port"`
		Username       string `mapstructure:"username"`
		Password       string `mapstructure:"password"`
		From           string `mapstructure:"from"`
		To             string `mapstructure:"to"`
		Sandbox        bool   `mapstructure:"sandbox"`
		PreviewBaseURL string `mapstructure:"preview_base_url"`
	} `mapstructure:"mail"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
		Folder    string `mapstructure:"folder"`
	} `mapstructure:"cloudinary"`
	Jaeger struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"jaeger"`
	Client struct {
		APIBaseURL string `mapstructure:"api_base_url"`
	} `mapstructure:"client"`
}

// LoadConfig reads config.yaml from the given paths (default ".") and then
// overlays environment variables. A missing .env or config.yaml is not an error.
func LoadConfig(paths ...string) (cfg Config, err error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if err = godotenv.Load(); err != nil {
		log.Println("warning: .env file not found, use default.")
	}

	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read env only. Error: %v", err)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.port", "APP_PORT", "PORT")
	v.BindEnv("app.public_url", "APP_PUBLIC_URL")
	v.BindEnv("app.cors_origins", "CORS_ORIGINS")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("db.auto_migrate", "DB_AUTO_MIGRATE")
	v.BindEnv("db.migrations", "DB_MIGRATIONS")
	v.BindEnv("mongo.uri", "MONGODB_URI")
	v.BindEnv("mongo.database", "MONGODB_DATABASE")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.cache_ttl", "CACHE_TTL")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("seed.token", "SEED_TOKEN")

	v.BindEnv("mail.host", "MAIL_HOST")
	v.BindEnv("mail.port", "MAIL_PORT")
	v.BindEnv("mail.username", "MAIL_USERNAME")
	v.BindEnv("mail.password", "MAIL_PASSWORD")
	v.BindEnv("mail.from", "MAIL_FROM")
	v.BindEnv("mail.to", "MAIL_TO")
	v.BindEnv("mail.sandbox", "MAIL_SANDBOX")
	v.BindEnv("mail.preview_base_url", "MAIL_PREVIEW_BASE_URL")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")
	v.BindEnv("cloudinary.folder", "CLOUDINARY_FOLDER")

	v.BindEnv("jaeger.otlp_endpoint", "JAEGER_OTLP_ENDPOINT")
	v.BindEnv("client.api_base_url", "API_BASE_URL")

	err = v.Unmarshal(&cfg)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "5050")
	v.SetDefault("app.cors_origins", []string{"*"})
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.migrations", "file://migrations")
	v.SetDefault("mongo.database", "portfolio")
	v.SetDefault("redis.cache_ttl", 5*time.Minute)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.preview_base_url", "https://ethereal.email")
	v.SetDefault("cloudinary.folder", "portfolio/resumes")
}

// StorageConfigured reports whether the selected storage driver has a
// connection string. Without one the API runs in degraded mode.
func (c Config) StorageConfigured() bool {
	if c.Storage.Driver == DriverMongo {
		return c.Mongo.URI != ""
	}
	return c.DB.DSN != ""
}
