package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/contribgraph/pkg/cache"
	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/fetcher"
	"github.com/charlie0129/contribgraph/pkg/utils/ptr"
)

// TokenEnv overrides the token of the config file when set.
const TokenEnv = "GITHUB_TOKEN"

// DefaultEnvFiles are loaded by LoadEnv when no file is given. Earlier files
// take precedence.
var DefaultEnvFiles = []string{".env.local", ".env"}

var (
	defaultFileConfig = &RawFileConfig{
		Source:          ptr.To(SourceGraphQL),
		Token:           ptr.To(""),
		GraphQLEndpoint: ptr.To(fetcher.DefaultGraphQLEndpoint),
		ProfileURL:      ptr.To(fetcher.DefaultProfileURL),
		DefaultTheme:    ptr.To(string(contrib.DefaultTheme)),
		CacheTTL:        ptr.To("1h"),
		UpstreamTimeout: ptr.To(fetcher.DefaultTimeout.String()),
		Listen:          ptr.To("127.0.0.1:8080"),
		AllowedOrigins:  []string{"*"},
		JanitorSchedule: ptr.To(cache.DefaultJanitorSchedule),
	}
)

var _ Config = &File{}

// File is a Config backed by a JSON or YAML file. Files ending in .yaml or
// .yml are YAML, everything else is JSON.
type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string

	// getenv is replaced in tests.
	getenv func(string) string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
		getenv:   os.Getenv,
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = DefaultRawFileConfig()
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
		getenv:   os.Getenv,
	}

	return f
}

// RawFileConfig is the on-disk form. Unset fields take their defaults.
type RawFileConfig struct {
	Source          *string  `json:"source,omitempty" yaml:"source,omitempty"`
	Token           *string  `json:"token,omitempty" yaml:"token,omitempty"`
	GraphQLEndpoint *string  `json:"graphqlEndpoint,omitempty" yaml:"graphqlEndpoint,omitempty"`
	ProfileURL      *string  `json:"profileURL,omitempty" yaml:"profileURL,omitempty"`
	DefaultTheme    *string  `json:"defaultTheme,omitempty" yaml:"defaultTheme,omitempty"`
	CacheTTL        *string  `json:"cacheTTL,omitempty" yaml:"cacheTTL,omitempty"`
	UpstreamTimeout *string  `json:"upstreamTimeout,omitempty" yaml:"upstreamTimeout,omitempty"`
	Listen          *string  `json:"listen,omitempty" yaml:"listen,omitempty"`
	AllowedOrigins  []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
	JanitorSchedule *string  `json:"janitorSchedule,omitempty" yaml:"janitorSchedule,omitempty"`
}

// DefaultRawFileConfig returns a copy of the defaults with every field set.
func DefaultRawFileConfig() *RawFileConfig {
	c := *defaultFileConfig
	c.AllowedOrigins = append([]string(nil), defaultFileConfig.AllowedOrigins...)
	return &c
}

// NewRawFileConfigFromConfig returns the effective settings of c. The token is
// left out unless withToken is set.
func NewRawFileConfigFromConfig(c Config, withToken bool) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		Source:          ptr.To(c.Source()),
		GraphQLEndpoint: ptr.To(c.GraphQLEndpoint()),
		ProfileURL:      ptr.To(c.ProfileURL()),
		DefaultTheme:    ptr.To(string(c.DefaultTheme())),
		CacheTTL:        ptr.To(c.CacheTTL().String()),
		UpstreamTimeout: ptr.To(c.UpstreamTimeout().String()),
		Listen:          ptr.To(c.Listen()),
		AllowedOrigins:  c.AllowedOrigins(),
		JanitorSchedule: ptr.To(c.JanitorSchedule()),
	}
	if withToken {
		rawConfig.Token = ptr.To(c.Token())
	}

	return rawConfig, nil
}

// Path returns the file the config is loaded from and saved to.
func (f *File) Path() string {
	return f.filepath
}

func (f *File) stringOr(field func(*RawFileConfig) *string) string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := field(f.c); v != nil {
		return *v
	}
	return *field(defaultFileConfig)
}

// durationOr falls back to the default when the stored value does not parse.
// Validate reports such values.
func (f *File) durationOr(field func(*RawFileConfig) *string) time.Duration {
	d, err := time.ParseDuration(f.stringOr(field))
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(*field(defaultFileConfig))
	}
	return d
}

func (f *File) Source() string {
	return strings.ToLower(strings.TrimSpace(f.stringOr(func(c *RawFileConfig) *string { return c.Source })))
}

func (f *File) Token() string {
	if v := strings.TrimSpace(f.getenv(TokenEnv)); v != "" {
		return v
	}
	return strings.TrimSpace(f.stringOr(func(c *RawFileConfig) *string { return c.Token }))
}

func (f *File) GraphQLEndpoint() string {
	return f.stringOr(func(c *RawFileConfig) *string { return c.GraphQLEndpoint })
}

func (f *File) ProfileURL() string {
	return f.stringOr(func(c *RawFileConfig) *string { return c.ProfileURL })
}

func (f *File) DefaultTheme() contrib.Theme {
	t, err := contrib.ParseTheme(f.stringOr(func(c *RawFileConfig) *string { return c.DefaultTheme }))
	if err != nil {
		return contrib.DefaultTheme
	}
	return t
}

func (f *File) CacheTTL() time.Duration {
	return f.durationOr(func(c *RawFileConfig) *string { return c.CacheTTL })
}

func (f *File) UpstreamTimeout() time.Duration {
	return f.durationOr(func(c *RawFileConfig) *string { return c.UpstreamTimeout })
}

func (f *File) Listen() string {
	return f.stringOr(func(c *RawFileConfig) *string { return c.Listen })
}

func (f *File) AllowedOrigins() []string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	origins := f.c.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultFileConfig.AllowedOrigins
	}
	return append([]string(nil), origins...)
}

func (f *File) JanitorSchedule() string {
	return f.stringOr(func(c *RawFileConfig) *string { return c.JanitorSchedule })
}

func (f *File) SetSource(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Source = &s
}

func (f *File) SetToken(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Token = &s
}

func (f *File) SetDefaultTheme(t contrib.Theme) {
	if f.c == nil {
		panic("config is nil")
	}

	s := string(t)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.DefaultTheme = &s
}

func (f *File) SetListen(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.Listen = &s
}

func (f *File) Validate() error {
	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	switch f.Source() {
	case SourceGraphQL:
		if f.Token() == "" {
			return pkgerrors.Wrapf(contrib.ErrMissingCredential, "source %s needs a token: set %s or the token field", SourceGraphQL, TokenEnv)
		}
	case SourceScrape:
		if strings.Count(f.ProfileURL(), "%s") != 1 {
			return pkgerrors.Errorf("profileURL %q must contain exactly one %%s", f.ProfileURL())
		}
	default:
		return pkgerrors.Errorf("unknown source %q, must be one of %s", f.Source(), strings.Join(Sources, ", "))
	}

	if _, err := contrib.ParseTheme(f.stringOr(func(c *RawFileConfig) *string { return c.DefaultTheme })); err != nil {
		return pkgerrors.Wrap(err, "defaultTheme")
	}

	for name, field := range map[string]func(*RawFileConfig) *string{
		"cacheTTL":        func(c *RawFileConfig) *string { return c.CacheTTL },
		"upstreamTimeout": func(c *RawFileConfig) *string { return c.UpstreamTimeout },
	} {
		s := f.stringOr(field)
		d, err := time.ParseDuration(s)
		if err != nil {
			return pkgerrors.Wrapf(err, "invalid %s %q", name, s)
		}
		if d <= 0 {
			return pkgerrors.Errorf("%s must be positive, got %s", name, s)
		}
	}

	if _, err := cache.Parser.Parse(f.JanitorSchedule()); err != nil {
		return pkgerrors.Wrapf(err, "invalid janitorSchedule %q", f.JanitorSchedule())
	}

	if strings.TrimSpace(f.Listen()) == "" {
		return pkgerrors.New("listen must not be empty")
	}

	return nil
}

func (f *File) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.filepath)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (f *File) Reread() (Config, error) {
	f.mu.RLock()
	next := &File{
		filepath: f.filepath,
		mu:       &sync.RWMutex{},
		getenv:   f.getenv,
	}
	f.mu.RUnlock()

	if err := next.Load(); err != nil {
		return nil, err
	}
	return next, nil
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if f.isYAML() {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	var buf bytes.Buffer
	if f.isYAML() {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f.c); err != nil {
			return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
		}
		_ = enc.Close()
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f.c); err != nil {
			return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
		}
	}

	// The file may hold a token.
	err := os.WriteFile(f.filepath, buf.Bytes(), 0600)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to write file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"source":          f.Source(),
		"hasToken":        f.Token() != "",
		"graphqlEndpoint": f.GraphQLEndpoint(),
		"profileURL":      f.ProfileURL(),
		"defaultTheme":    f.DefaultTheme(),
		"cacheTTL":        f.CacheTTL().String(),
		"upstreamTimeout": f.UpstreamTimeout().String(),
		"listen":          f.Listen(),
		"allowedOrigins":  f.AllowedOrigins(),
		"janitorSchedule": f.JanitorSchedule(),
	}
}

// LoadEnv loads KEY=VALUE pairs from the given dotenv files, or
// DefaultEnvFiles, into the process environment. Variables already set are
// kept and missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = DefaultEnvFiles
	}
	for _, name := range files {
		if _, err := os.Stat(name); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return pkgerrors.Wrapf(err, "failed to stat %s", name)
		}
		if err := godotenv.Load(name); err != nil {
			return pkgerrors.Wrapf(err, "failed to load env file %s", name)
		}
		logrus.WithField("file", name).Debug("loaded env file")
	}
	return nil
}
