// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the session configuration from an optional JSON
// or YAML document, PDFHARVEST_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/pdfharvest/internal/discover"
	"github.com/pdiddy/pdfharvest/internal/match"
	"github.com/pdiddy/pdfharvest/pkg/types"
)

// ErrInvalidConfig wraps every configuration problem that must abort a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// Keys recognised in configuration documents.
const (
	KeyRequestTimeout        = "request_timeout"
	KeyDownloadTimeout       = "download_timeout"
	KeyDelayBetweenDownloads = "delay_between_downloads"
	KeyMaxRetries            = "max_retries"
	KeyUserAgent             = "user_agent"
	KeyPDFPatterns           = "pdf_patterns"
	KeyExcludePatterns       = "exclude_patterns"
	KeyLinkSelectors         = "link_selectors"
	KeyCaseSensitive         = "case_sensitive_patterns"
	KeyFilenameMaxLength     = "filename_max_length"
	KeyCreateSubdirs         = "create_subdirs"
	KeyVerifyPDFContent      = "verify_pdf_content"
	KeyDeleteInvalid         = "delete_invalid"
	KeySkipExisting          = "skip_existing"
)

const (
	configName = "pdfharvest"
	envPrefix  = "PDFHARVEST"
)

// New returns a viper instance with defaults, the environment prefix and
// the config search path set. An explicit path takes precedence over
// the search path.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault(KeyRequestTimeout, d.RequestTimeout.String())
	v.SetDefault(KeyDownloadTimeout, d.DownloadTimeout.String())
	v.SetDefault(KeyDelayBetweenDownloads, d.DelayBetweenDownloads.String())
	v.SetDefault(KeyMaxRetries, d.MaxRetries)
	v.SetDefault(KeyUserAgent, d.UserAgent)
	v.SetDefault(KeyPDFPatterns, d.PDFPatterns)
	v.SetDefault(KeyExcludePatterns, d.ExcludePatterns)
	v.SetDefault(KeyLinkSelectors, d.LinkSelectors)
	v.SetDefault(KeyCaseSensitive, d.CaseSensitivePatterns)
	v.SetDefault(KeyFilenameMaxLength, d.FilenameMaxLength)
	v.SetDefault(KeyCreateSubdirs, d.CreateSubdirs)
	v.SetDefault(KeyVerifyPDFContent, d.VerifyPDFContent)
	v.SetDefault(KeyDeleteInvalid, d.DeleteInvalid)
	v.SetDefault(KeySkipExisting, d.SkipExisting)
}

// Read loads the config file into v. A missing file is only an error
// when it was named explicitly; an unparsable file is always an error.
// It returns the file used, or "" when running on defaults.
func Read(v *viper.Viper, explicit bool) (string, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return v.ConfigFileUsed(), nil
}

// Load reads the file at path (or searches for one when path is empty)
// and decodes the result.
func Load(path string) (types.Config, string, error) {
	v := New(path)
	used, err := Read(v, path != "")
	if err != nil {
		return types.Config{}, "", err
	}
	cfg, err := Decode(v)
	return cfg, used, err
}

// Decode builds a validated Config from v. Unknown keys are ignored.
func Decode(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	var err error

	if cfg.RequestTimeout, err = seconds(v, KeyRequestTimeout); err != nil {
		return cfg, err
	}
	if cfg.DownloadTimeout, err = seconds(v, KeyDownloadTimeout); err != nil {
		return cfg, err
	}
	if cfg.DelayBetweenDownloads, err = seconds(v, KeyDelayBetweenDownloads); err != nil {
		return cfg, err
	}

	cfg.MaxRetries = v.GetInt(KeyMaxRetries)
	cfg.UserAgent = v.GetString(KeyUserAgent)
	cfg.PDFPatterns = v.GetStringSlice(KeyPDFPatterns)
	cfg.ExcludePatterns = v.GetStringSlice(KeyExcludePatterns)
	cfg.LinkSelectors = v.GetStringSlice(KeyLinkSelectors)
	cfg.CaseSensitivePatterns = v.GetBool(KeyCaseSensitive)
	cfg.FilenameMaxLength = v.GetInt(KeyFilenameMaxLength)
	cfg.CreateSubdirs = v.GetBool(KeyCreateSubdirs)
	cfg.VerifyPDFContent = v.GetBool(KeyVerifyPDFContent)
	cfg.DeleteInvalid = v.GetBool(KeyDeleteInvalid)
	cfg.SkipExisting = v.GetBool(KeySkipExisting)

	return cfg, Validate(cfg)
}

// Validate rejects values no session can run with: negative durations or
// counts, a non-positive filename length, and patterns or selectors that
// do not compile.
func Validate(cfg types.Config) error {
	switch {
	case cfg.RequestTimeout <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyRequestTimeout)
	case cfg.DownloadTimeout <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyDownloadTimeout)
	case cfg.DelayBetweenDownloads < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyDelayBetweenDownloads)
	case cfg.MaxRetries < 0:
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, KeyMaxRetries)
	case cfg.FilenameMaxLength <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, KeyFilenameMaxLength)
	}
	if _, err := match.New(cfg.PDFPatterns, cfg.ExcludePatterns, cfg.CaseSensitivePatterns); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := discover.CompileSelectors(cfg.LinkSelectors); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// seconds reads a duration written either as a number of seconds
// (the documented form) or as a Go duration string such as "1m30s".
func seconds(v *viper.Viper, key string) (time.Duration, error) {
	switch raw := v.Get(key).(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return raw, nil
	case string:
		d, err := ParseSeconds(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		return d, nil
	default:
		return time.Duration(v.GetFloat64(key) * float64(time.Second)), nil
	}
}

// ParseSeconds parses a duration written either as a number of seconds
// ("1.5", "30") or as a Go duration string ("1m30s").
func ParseSeconds(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot parse %q as seconds or duration", raw)
	}
	return time.Duration(f * float64(time.Second)), nil
}
