package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

// DefaultGraphQLEndpoint is GitHub's GraphQL API.
const DefaultGraphQLEndpoint = "https://api.github.com/graphql"

const contributionsQuery = `query($login: String!) {
  user(login: $login) {
    contributionsCollection {
      contributionCalendar {
        weeks {
          contributionDays {
            contributionCount
            date
          }
        }
      }
    }
  }
}`

// GraphQL reads the contribution calendar from GitHub's GraphQL API. It needs
// a bearer token.
type GraphQL struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

var _ Source = &GraphQL{}

// NewGraphQL returns a GraphQL source. An empty endpoint means
// DefaultGraphQLEndpoint, a non-positive timeout means DefaultTimeout. An
// empty token is accepted here and reported by FetchDays.
func NewGraphQL(endpoint, token string, timeout time.Duration) *GraphQL {
	if endpoint == "" {
		endpoint = DefaultGraphQLEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GraphQL{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *GraphQL) Name() string {
	return "graphql"
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data *struct {
		User *struct {
			ContributionsCollection struct {
				ContributionCalendar struct {
					Weeks []struct {
						ContributionDays []struct {
							ContributionCount int    `json:"contributionCount"`
							Date              string `json:"date"`
						} `json:"contributionDays"`
					} `json:"weeks"`
				} `json:"contributionCalendar"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

func (g *GraphQL) FetchDays(ctx context.Context, username string) ([]RawDay, error) {
	if strings.TrimSpace(g.token) == "" {
		return nil, contrib.NewError(contrib.KindMissingCredential, "no GitHub token configured for the graphql source")
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     contributionsQuery,
		Variables: map[string]any{"login": username},
	})
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to encode graphql request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to create request")
	}
	req.Header.Set("Authorization", "bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "POST %s", g.endpoint)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to read graphql response")
	}

	if err := checkStatus(resp, b, false); err != nil {
		return nil, err
	}

	var result graphqlResponse
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to decode graphql response")
	}

	if len(result.Errors) > 0 {
		e := result.Errors[0]
		switch e.Type {
		case "NOT_FOUND":
			return nil, contrib.NewError(contrib.KindUserNotFound, "%s", e.Message)
		case "RATE_LIMITED":
			return nil, contrib.NewError(contrib.KindRateLimited, "%s", e.Message)
		default:
			return nil, contrib.NewError(contrib.KindUpstream, "%s", e.Message)
		}
	}

	if result.Data == nil || result.Data.User == nil {
		return nil, contrib.NewError(contrib.KindUserNotFound, "user %q not found", username)
	}

	var days []RawDay
	for _, w := range result.Data.User.ContributionsCollection.ContributionCalendar.Weeks {
		for _, d := range w.ContributionDays {
			date, err := contrib.ParseDate(d.Date)
			if err != nil {
				return nil, contrib.WrapError(contrib.KindUpstream, err, "unexpected date in graphql response")
			}
			days = append(days, RawDay{Date: date, Count: d.ContributionCount})
		}
	}

	return days, nil
}

// checkStatus maps a non-2xx upstream response to a contrib error. A 404 is
// UserNotFound only when the URL names the user.
func checkStatus(resp *http.Response, body []byte, perUserURL bool) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	detail := fmt.Sprintf("%s %s: %d %s", resp.Request.Method, resp.Request.URL.Redacted(), resp.StatusCode, msg)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return contrib.NewError(contrib.KindRateLimited, "%s", detail)
	case resp.StatusCode == http.StatusNotFound && perUserURL:
		return contrib.NewError(contrib.KindUserNotFound, "%s", detail)
	default:
		return contrib.NewError(contrib.KindUpstream, "%s", detail)
	}
}
