package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the ELN REST API.
type Config struct {
	DatabaseURL string
	Port        int

	JWTSecret        string
	JWTIssuer        string
	JWTExpiryMinutes int

	LDAPURL      string
	LDAPBaseDN   string
	LDAPUserAttr string

	// DevUsers is a static username->password map used when no LDAP server
	// is configured (local development only).
	DevUsers map[string]string

	// StaffUsers lists usernames that receive the Staff role on first login.
	StaffUsers []string

	BlobDriver  string
	UploadPath  string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	ShareBaseURL string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:             8080,
		JWTIssuer:        "eln-backend",
		JWTExpiryMinutes: 480,
		LDAPUserAttr:     "uid",
		BlobDriver:       "fs",
		UploadPath:       "./uploads",
		S3Region:         "us-east-1",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}

	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		cfg.JWTIssuer = issuer
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if expStr := os.Getenv("JWT_EXPIRY_MINUTES"); expStr != "" {
		if exp, err := strconv.Atoi(expStr); err == nil && exp > 0 {
			cfg.JWTExpiryMinutes = exp
		} else {
			return cfg, fmt.Errorf("invalid JWT_EXPIRY_MINUTES: %s", expStr)
		}
	}

	cfg.LDAPURL = os.Getenv("LDAP_URL")
	cfg.LDAPBaseDN = os.Getenv("LDAP_BASE_DN")
	if attr := os.Getenv("LDAP_USER_ATTR"); attr != "" {
		cfg.LDAPUserAttr = attr
	}

	cfg.DevUsers = parseUserList(os.Getenv("ELN_DEV_USERS"))
	if cfg.LDAPURL == "" && len(cfg.DevUsers) == 0 {
		return cfg, errors.New("either LDAP_URL or ELN_DEV_USERS is required")
	}

	cfg.StaffUsers = splitList(os.Getenv("ELN_STAFF_USERS"))

	if driver := os.Getenv("BLOB_DRIVER"); driver != "" {
		switch driver {
		case "fs", "memory", "s3":
			cfg.BlobDriver = driver
		default:
			return cfg, fmt.Errorf("invalid BLOB_DRIVER: %s", driver)
		}
	}

	if path := os.Getenv("ELN_UPLOAD_PATH"); path != "" {
		cfg.UploadPath = path
	}

	cfg.S3Bucket = os.Getenv("ELN_S3_BUCKET")
	if region := os.Getenv("ELN_S3_REGION"); region != "" {
		cfg.S3Region = region
	}
	cfg.S3Endpoint = os.Getenv("ELN_S3_ENDPOINT")
	cfg.S3PathStyle = strings.EqualFold(os.Getenv("ELN_S3_PATH_STYLE"), "true")

	if cfg.BlobDriver == "s3" && cfg.S3Bucket == "" {
		return cfg, errors.New("ELN_S3_BUCKET is required when BLOB_DRIVER=s3")
	}

	cfg.ShareBaseURL = strings.TrimRight(os.Getenv("SHARE_BASE_URL"), "/")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsStaffUser reports whether username is configured as staff.
func (c Config) IsStaffUser(username string) bool {
	for _, u := range c.StaffUsers {
		if strings.EqualFold(u, username) {
			return true
		}
	}
	return false
}

// parseUserList parses "alice:secret,bob:hunter2" into a map.
func parseUserList(raw string) map[string]string {
	users := make(map[string]string)
	for _, pair := range splitList(raw) {
		name, pass, ok := strings.Cut(pair, ":")
		if !ok || name == "" {
			continue
		}
		users[name] = pass
	}
	return users
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
