package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

const (
	SourceGraphQL = "graphql"
	SourceScrape  = "scrape"
)

// Sources lists the accepted values of the source setting.
var Sources = []string{SourceGraphQL, SourceScrape}

type Config interface {
	// Source is the upstream the fetcher reads from, SourceGraphQL or SourceScrape.
	Source() string
	// Token is the GitHub credential for the graphql source.
	Token() string
	GraphQLEndpoint() string
	// ProfileURL is the scrape URL template with one %s for the username.
	ProfileURL() string
	DefaultTheme() contrib.Theme
	CacheTTL() time.Duration
	UpstreamTimeout() time.Duration
	// Listen is host:port or unix:<path>.
	Listen() string
	AllowedOrigins() []string
	JanitorSchedule() string

	SetSource(string)
	SetToken(string)
	SetDefaultTheme(contrib.Theme)
	SetListen(string)

	// Load reads the configuration from the source.
	Load() error
	// Reread reads the source into a new Config and leaves the receiver
	// unchanged, so a rejected configuration never replaces a working one.
	Reread() (Config, error)
	// Save saves the configuration to the source.
	Save() error
	// Validate reports the first setting that cannot be used.
	Validate() error
	LogrusFields() logrus.Fields
}
