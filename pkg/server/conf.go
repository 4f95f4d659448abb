package server

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TLSConf selects how the web listener gets its certificate:
// Let's Encrypt when Domain is set, the given files, or a self-signed
// certificate kept in CertDir.
type TLSConf struct {
	Enabled         bool   `yaml:"enabled"`
	Domain          string `yaml:"domain"`
	CertFile        string `yaml:"cert_file"`
	KeyFile         string `yaml:"key_file"`
	CertDir         string `yaml:"cert_dir"`
	ChallengeListen string `yaml:"challenge_listen"` // ACME HTTP-01 listener
}

// Conf holds the server configuration.
type Conf struct {
	// --- Game ---
	Name       string `yaml:"name"`
	Game       string `yaml:"game"`  // path to the DDB file
	Watch      bool   `yaml:"watch"` // reload the DDB when it changes
	ScreenMode uint8  `yaml:"screen_mode"`
	Welcome    string `yaml:"welcome"`

	// --- Listeners ---
	Listen      string `yaml:"listen"`       // TCP address, empty disables
	WebListen   string `yaml:"web_listen"`   // HTTP/WebSocket address, empty disables
	IdleTimeout int    `yaml:"idle_timeout"` // seconds without input before a TCP session is dropped, 0 = never
	GMCP        bool   `yaml:"gmcp"`         // offer GMCP session events to TCP clients

	// --- Web ---
	CORSOrigins []string `yaml:"cors_origins"`
	RateLimit   int      `yaml:"rate_limit"` // HTTP requests per minute per address
	TLS         TLSConf  `yaml:"tls"`

	// --- Operator API ---
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt hash; empty disables /api/v1
	JWTSecret         string `yaml:"jwt_secret"`          // empty means a random key per run
	JWTExpiry         int    `yaml:"jwt_expiry"`          // token lifetime in seconds

	// --- Storage ---
	SaveDB              string `yaml:"save_db"`              // bbolt file for save slots, empty disables saving
	TranscriptDB        string `yaml:"transcript_db"`        // SQLite file for transcripts, empty disables
	TranscriptRetention int    `yaml:"transcript_retention"` // hours to keep ended sessions, 0 = forever
	TranscriptTimeout   int    `yaml:"transcript_timeout"`   // SQLite busy timeout in seconds

	// --- Archives ---
	ArchiveDir      string `yaml:"archive_dir"`
	ArchiveInterval int    `yaml:"archive_interval"` // minutes between archives, 0 = off
	ArchiveRetain   int    `yaml:"archive_retain"`   // archives to keep, 0 = all

	path string // file the config was loaded from
}

// Path returns the file the config was loaded from, if any.
func (c *Conf) Path() string { return c.path }

// DefaultConf returns a Conf with the defaults of a local server.
func DefaultConf() *Conf {
	return &Conf{
		Name:              "game",
		Listen:            ":6250",
		IdleTimeout:       3600,
		RateLimit:         120,
		TranscriptTimeout: 5,
		ArchiveDir:        "archives",
		ArchiveRetain:     10,
		JWTExpiry:         86400,
		TLS: TLSConf{
			CertDir:         "certs",
			ChallengeListen: ":80",
		},
	}
}

// LoadConf reads a YAML config over DefaultConf. Relative paths are
// resolved against the directory of the config file.
func LoadConf(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	c := DefaultConf()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	for _, p := range []*string{&c.Game, &c.SaveDB, &c.TranscriptDB, &c.TLS.CertFile, &c.TLS.KeyFile, &c.TLS.CertDir, &c.ArchiveDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.path = path
	return c, nil
}

// Validate reports settings that cannot work together.
func (c *Conf) Validate() error {
	if c.Listen == "" && c.WebListen == "" {
		return fmt.Errorf("both listen and web_listen are empty; nothing to listen on")
	}
	if c.Watch && c.Game == "" {
		return fmt.Errorf("watch needs a game file")
	}
	if c.TLS.Enabled && c.WebListen == "" {
		return fmt.Errorf("tls is enabled without web_listen")
	}
	if c.AdminPasswordHash != "" && c.WebListen == "" {
		return fmt.Errorf("admin_password_hash is set without web_listen")
	}
	if c.ArchiveInterval > 0 && c.ArchiveDir == "" {
		return fmt.Errorf("archive_interval is set without archive_dir")
	}
	return nil
}
