// Package config loads NewsWire settings from the environment and an optional
// newswire.yaml file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MiB = 1 << 20

	// formOverhead is the slack reserved on top of the per-file ceiling for
	// multipart boundaries and the other form fields.
	formOverhead = 64 << 10
)

type Config struct {
	HTTP struct {
		Addr    string
		MaxBody int64
	}
	DB struct {
		Driver string
		DSN    string
	}
	OIDC struct {
		Issuer       string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
	Log struct {
		Env   string
		Level string
	}
	Upload struct {
		Root          string
		LegacyRoot    string
		MaxSize       int64
		DefaultMarker string
		Backend       string
		S3            S3
	}
	Assets           Assets
	AdminEmail       string
	SessionLifetime  time.Duration
	InsecureCookies  bool
	APIRateLimit     int
	ContactRateLimit int
}

// S3 configures the object storage upload backend.
type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Assets names the shared placeholder images used when a record has no
// uploaded image of its own.
type Assets struct {
	DefaultNews   string
	DefaultAvatar string
	DefaultTeam   string
}

// Load reads config from environment (NEWSWIRE_ prefix), an optional .env
// file and an optional newswire.yaml.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional .env

	v := viper.New()
	v.SetEnvPrefix("NEWSWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName("newswire")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/newswire")
	_ = v.ReadInConfig() // optional config file

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_body", 10*MiB)
	v.SetDefault("session.lifetime", "720h")
	v.SetDefault("log.env", "production")
	v.SetDefault("log.level", "info")
	v.SetDefault("upload.root", "./Uploads")
	v.SetDefault("upload.legacy_root", "./wwwroot")
	v.SetDefault("upload.max_size", 5*MiB)
	v.SetDefault("upload.default_marker", "default")
	v.SetDefault("upload.backend", "local")
	v.SetDefault("upload.s3.region", "auto")
	v.SetDefault("assets.default_news", "/static/img/default-news.svg")
	v.SetDefault("assets.default_avatar", "/static/img/default-avatar.svg")
	v.SetDefault("assets.default_team", "/static/img/default-team.svg")
	v.SetDefault("api.rate_limit", 120)
	v.SetDefault("contact.rate_limit", 5)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.HTTP.MaxBody = v.GetInt64("http.max_body")
	cfg.DB.Driver = v.GetString("db.driver")
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.OIDC.Issuer = v.GetString("oidc.issuer")
	cfg.OIDC.ClientID = v.GetString("oidc.client_id")
	cfg.OIDC.ClientSecret = v.GetString("oidc.client_secret")
	cfg.OIDC.RedirectURL = v.GetString("oidc.redirect_url")
	cfg.Log.Env = v.GetString("log.env")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Upload.Root = v.GetString("upload.root")
	cfg.Upload.LegacyRoot = v.GetString("upload.legacy_root")
	cfg.Upload.MaxSize = v.GetInt64("upload.max_size")
	cfg.Upload.DefaultMarker = v.GetString("upload.default_marker")
	cfg.Upload.Backend = v.GetString("upload.backend")
	cfg.Upload.S3 = S3{
		Bucket:    v.GetString("upload.s3.bucket"),
		Region:    v.GetString("upload.s3.region"),
		Endpoint:  v.GetString("upload.s3.endpoint"),
		AccessKey: v.GetString("upload.s3.access_key"),
		SecretKey: v.GetString("upload.s3.secret_key"),
		PathStyle: v.GetBool("upload.s3.path_style"),
	}
	cfg.Assets = Assets{
		DefaultNews:   v.GetString("assets.default_news"),
		DefaultAvatar: v.GetString("assets.default_avatar"),
		DefaultTeam:   v.GetString("assets.default_team"),
	}
	cfg.AdminEmail = v.GetString("admin_email")
	cfg.InsecureCookies = v.GetBool("insecure_cookies")
	cfg.APIRateLimit = v.GetInt("api.rate_limit")
	cfg.ContactRateLimit = v.GetInt("contact.rate_limit")

	lifetime, err := time.ParseDuration(v.GetString("session.lifetime"))
	if err != nil {
		return nil, fmt.Errorf("invalid NEWSWIRE_SESSION_LIFETIME: %w", err)
	}
	cfg.SessionLifetime = lifetime

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.DB.Driver == "" {
		return fmt.Errorf("NEWSWIRE_DB_DRIVER is required (sqlite3, mysql, postgres)")
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("NEWSWIRE_DB_DSN is required")
	}
	if cfg.OIDC.Issuer == "" {
		return fmt.Errorf("NEWSWIRE_OIDC_ISSUER is required")
	}
	if cfg.OIDC.ClientID == "" {
		return fmt.Errorf("NEWSWIRE_OIDC_CLIENT_ID is required")
	}
	if cfg.OIDC.ClientSecret == "" {
		return fmt.Errorf("NEWSWIRE_OIDC_CLIENT_SECRET is required")
	}
	if cfg.OIDC.RedirectURL == "" {
		return fmt.Errorf("NEWSWIRE_OIDC_REDIRECT_URL is required")
	}
	if cfg.Upload.MaxSize <= 0 {
		return fmt.Errorf("NEWSWIRE_UPLOAD_MAX_SIZE must be positive")
	}
	if cfg.HTTP.MaxBody < cfg.Upload.MaxSize+formOverhead {
		return fmt.Errorf("NEWSWIRE_HTTP_MAX_BODY (%d) must be at least NEWSWIRE_UPLOAD_MAX_SIZE plus %d bytes of form overhead",
			cfg.HTTP.MaxBody, formOverhead)
	}
	if cfg.Upload.DefaultMarker == "" {
		return fmt.Errorf("NEWSWIRE_UPLOAD_DEFAULT_MARKER must not be empty")
	}
	for name, path := range map[string]string{
		"NEWSWIRE_ASSETS_DEFAULT_NEWS":   cfg.Assets.DefaultNews,
		"NEWSWIRE_ASSETS_DEFAULT_AVATAR": cfg.Assets.DefaultAvatar,
		"NEWSWIRE_ASSETS_DEFAULT_TEAM":   cfg.Assets.DefaultTeam,
	} {
		if !strings.Contains(path, cfg.Upload.DefaultMarker) {
			return fmt.Errorf("%s (%q) must contain the default marker %q", name, path, cfg.Upload.DefaultMarker)
		}
	}
	switch cfg.Upload.Backend {
	case "local":
		if cfg.Upload.Root == "" {
			return fmt.Errorf("NEWSWIRE_UPLOAD_ROOT is required for the local upload backend")
		}
	case "s3":
		if cfg.Upload.S3.Bucket == "" {
			return fmt.Errorf("NEWSWIRE_UPLOAD_S3_BUCKET is required for the s3 upload backend")
		}
	default:
		return fmt.Errorf("unsupported NEWSWIRE_UPLOAD_BACKEND %q: must be local or s3", cfg.Upload.Backend)
	}
	return nil
}
