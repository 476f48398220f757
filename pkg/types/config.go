package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// RequestTimeout bounds the GET of a seed page.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// DownloadTimeout bounds a single download attempt. It also caps the
	// backoff delay between retries.
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// MatchConfig holds the link discovery rules. Patterns are regular
// expressions evaluated at runtime; selectors are CSS selectors.
type MatchConfig struct {
	// PDFPatterns lists include patterns; a URL must match at least one.
	PDFPatterns []string `json:"pdf_patterns" yaml:"pdf_patterns"`

	// ExcludePatterns lists patterns that reject a URL outright.
	ExcludePatterns []string `json:"exclude_patterns" yaml:"exclude_patterns"`

	// LinkSelectors lists CSS selectors whose elements are inspected for
	// document URLs in addition to plain anchors.
	LinkSelectors []string `json:"link_selectors" yaml:"link_selectors"`

	// CaseSensitivePatterns disables the default case-insensitive matching.
	CaseSensitivePatterns bool `json:"case_sensitive_patterns" yaml:"case_sensitive_patterns"`
}

// Config is the immutable configuration of one download session.
type Config struct {
	HTTPConfig  `yaml:",inline"`
	MatchConfig `yaml:",inline"`

	// DelayBetweenDownloads is slept between consecutive downloads.
	DelayBetweenDownloads time.Duration `json:"delay_between_downloads" yaml:"delay_between_downloads"`

	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// FilenameMaxLength caps the filename stem, excluding ".pdf".
	FilenameMaxLength int `json:"filename_max_length" yaml:"filename_max_length"`

	// CreateSubdirs nests downloads one level by source domain.
	CreateSubdirs bool `json:"create_subdirs" yaml:"create_subdirs"`

	// VerifyPDFContent checks the %PDF- signature after each download.
	VerifyPDFContent bool `json:"verify_pdf_content" yaml:"verify_pdf_content"`

	// DeleteInvalid removes files that fail verification.
	DeleteInvalid bool `json:"delete_invalid" yaml:"delete_invalid"`

	// SkipExisting reuses a valid PDF already present at the destination.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing"`
}

// Defaults for Config fields.
const (
	DefaultRequestTimeout        = 30 * time.Second
	DefaultDownloadTimeout       = 120 * time.Second
	DefaultDelayBetweenDownloads = 1 * time.Second
	DefaultMaxRetries            = 3
	DefaultFilenameMaxLength     = 100
	DefaultUserAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 pdfharvest/0.1"
)

// DefaultPDFPatterns are the include patterns used when none are configured.
func DefaultPDFPatterns() []string {
	return []string{`.*\.pdf$`, `.*\.PDF$`, `.*\.pdf\?.*`, `.*\.PDF\?.*`}
}

// DefaultExcludePatterns are the exclude patterns used when none are configured.
func DefaultExcludePatterns() []string {
	return []string{`.*\.php.*`, `.*download\.aspx.*`}
}

// DefaultLinkSelectors are the CSS selectors used when none are configured.
func DefaultLinkSelectors() []string {
	return []string{`a[href$=".pdf"]`, `a[href$=".PDF"]`, `a[href*=".pdf"]`, `a[href*="pdf"]`}
}

// DefaultConfig returns a Config populated with every default.
func DefaultConfig() Config {
	return Config{
		HTTPConfig: HTTPConfig{
			RequestTimeout:  DefaultRequestTimeout,
			DownloadTimeout: DefaultDownloadTimeout,
			UserAgent:       DefaultUserAgent,
		},
		MatchConfig: MatchConfig{
			PDFPatterns:     DefaultPDFPatterns(),
			ExcludePatterns: DefaultExcludePatterns(),
			LinkSelectors:   DefaultLinkSelectors(),
		},
		DelayBetweenDownloads: DefaultDelayBetweenDownloads,
		MaxRetries:            DefaultMaxRetries,
		FilenameMaxLength:     DefaultFilenameMaxLength,
		CreateSubdirs:         true,
		VerifyPDFContent:      true,
		DeleteInvalid:         true,
		SkipExisting:          true,
	}
}
