package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// upstreamServer answers every request with handler and counts the calls.
func upstreamServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func calendarJSON(start time.Time, counts []int) string {
	type cd struct {
		ContributionCount int    `json:"contributionCount"`
		Date              string `json:"date"`
	}
	var weeks []map[string][]cd
	var week []cd
	for i, c := range counts {
		week = append(week, cd{c, start.AddDate(0, 0, i).Format(contrib.DateLayout)})
		if len(week) == 7 {
			weeks = append(weeks, map[string][]cd{"contributionDays": week})
			week = nil
		}
	}
	if len(week) > 0 {
		weeks = append(weeks, map[string][]cd{"contributionDays": week})
	}
	b, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"user": map[string]any{
				"contributionsCollection": map[string]any{
					"contributionCalendar": map[string]any{"weeks": weeks},
				},
			},
		},
	})
	return string(b)
}

func TestGraphQLFetch(t *testing.T) {
	var gotBody graphqlRequest
	var gotAuth string
	srv, calls := upstreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(calendarJSON(day(2026, time.January, 4), []int{0, 1, 3, 4, 6, 7, 9, 10, 42})))
	})

	f := New(NewGraphQL(srv.URL, "secret", time.Second))
	days, err := f.Fetch(context.Background(), "octocat", contrib.ThemeLight)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, "bearer secret", gotAuth)
	assert.Equal(t, "octocat", gotBody.Variables["login"])
	assert.Contains(t, gotBody.Query, "contributionCalendar")
	assert.Equal(t, "graphql", f.SourceName())

	require.Len(t, days, 9)
	wantLevels := []contrib.Level{0, 1, 1, 2, 2, 3, 3, 4, 4}
	palette := contrib.PaletteFor(contrib.ThemeLight)
	for i, d := range days {
		assert.Equal(t, day(2026, time.January, 4+i), d.Date)
		assert.Equal(t, wantLevels[i], d.Level, d.Date)
		assert.Equal(t, palette.Color(wantLevels[i]), d.Color)
	}
}

func TestGraphQLMissingCredential(t *testing.T) {
	srv, calls := upstreamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := New(NewGraphQL(srv.URL, "", time.Second)).Fetch(context.Background(), "octocat", contrib.ThemeDark)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contrib.ErrMissingCredential))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestInvalidUsernameNeverReachesNetwork(t *testing.T) {
	srv, calls := upstreamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, name := range []string{"", "-abc", "a--b", "abc_def", strings.Repeat("x", 40)} {
		_, err := New(NewGraphQL(srv.URL, "secret", time.Second)).Fetch(context.Background(), name, contrib.ThemeDark)
		assert.True(t, errors.Is(err, contrib.ErrInvalidUsername), name)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestGraphQLErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		header  map[string]string
		body    string
		want    *contrib.Error
		message string
	}{
		{
			name:    "not found error",
			status:  http.StatusOK,
			body:    `{"data":{"user":null},"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a User with the login of 'ghost'."}]}`,
			want:    contrib.ErrUserNotFound,
			message: "Could not resolve",
		},
		{
			name:   "null user",
			status: http.StatusOK,
			body:   `{"data":{"user":null}}`,
			want:   contrib.ErrUserNotFound,
		},
		{
			name:   "rate limited error type",
			status: http.StatusOK,
			body:   `{"errors":[{"type":"RATE_LIMITED","message":"API rate limit exceeded"}]}`,
			want:   contrib.ErrRateLimited,
		},
		{
			name:   "429",
			status: http.StatusTooManyRequests,
			body:   `slow down`,
			want:   contrib.ErrRateLimited,
		},
		{
			name:   "403 with exhausted quota",
			status: http.StatusForbidden,
			header: map[string]string{"X-RateLimit-Remaining": "0"},
			body:   `{"message":"API rate limit exceeded"}`,
			want:   contrib.ErrRateLimited,
		},
		{
			name:    "bad credentials",
			status:  http.StatusUnauthorized,
			body:    `{"message":"Bad credentials"}`,
			want:    contrib.ErrUpstream,
			message: "Bad credentials",
		},
		{
			name:   "endpoint 404 is not a missing user",
			status: http.StatusNotFound,
			body:   `nope`,
			want:   contrib.ErrUpstream,
		},
		{
			name:    "other graphql error",
			status:  http.StatusOK,
			body:    `{"errors":[{"message":"Something went wrong"}]}`,
			want:    contrib.ErrUpstream,
			message: "Something went wrong",
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"data":`,
			want:   contrib.ErrUpstream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := upstreamServer(t, func(w http.ResponseWriter, _ *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := New(NewGraphQL(srv.URL, "secret", time.Second)).Fetch(context.Background(), "ghost", contrib.ThemeDark)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			if tt.message != "" {
				assert.Contains(t, contrib.UpstreamMessage(err), tt.message)
			}
		})
	}
}

func TestGraphQLTimeout(t *testing.T) {
	release := make(chan struct{})
	srv, _ := upstreamServer(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	_, err := New(NewGraphQL(srv.URL, "secret", 50*time.Millisecond)).Fetch(context.Background(), "octocat", contrib.ThemeDark)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contrib.ErrUpstream))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNormalize(t *testing.T) {
	palette := contrib.PaletteFor(contrib.ThemeDark)
	raw := []RawDay{
		{Date: day(2026, time.March, 3), Count: 1},
		{Date: day(2026, time.March, 1), Count: 5},
		{Date: day(2026, time.March, 2), Count: 2},
		{Date: day(2026, time.March, 3).Add(15 * time.Hour), Count: 12},
	}

	days := Normalize(raw, palette)
	require.Len(t, days, 3)
	assert.Equal(t, day(2026, time.March, 1), days[0].Date)
	assert.Equal(t, day(2026, time.March, 2), days[1].Date)
	assert.Equal(t, day(2026, time.March, 3), days[2].Date)
	assert.Equal(t, 12, days[2].Count)
	assert.Equal(t, contrib.Level4, days[2].Level)

	var many []RawDay
	for i := 0; i < 400; i++ {
		many = append(many, RawDay{Date: day(2025, time.January, 1).AddDate(0, 0, i), Count: i})
	}
	trimmed := Normalize(many, palette)
	require.Len(t, trimmed, MaxDays)
	assert.Equal(t, day(2025, time.January, 1).AddDate(0, 0, 399), trimmed[MaxDays-1].Date)
	assert.Equal(t, day(2025, time.January, 1).AddDate(0, 0, 400-MaxDays), trimmed[0].Date)

	assert.Empty(t, Normalize(nil, palette))
}

func TestWithPalette(t *testing.T) {
	srv, _ := upstreamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(calendarJSON(day(2026, time.January, 4), []int{0, 10})))
	})
	synthetic := func(contrib.Theme) contrib.Palette {
		return contrib.Palette{"a", "b", "c", "d", "e"}
	}

	days, err := New(NewGraphQL(srv.URL, "secret", time.Second), WithPalette(synthetic)).
		Fetch(context.Background(), "octocat", contrib.ThemeDark)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "a", days[0].Color)
	assert.Equal(t, "e", days[1].Color)
}

func profilePage(cells [][3]string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><div class="js-calendar-graph"><table class="ContributionCalendar-grid"><tbody><tr>`)
	sb.WriteString(`<td class="ContributionCalendar-label">Mon</td>`)
	for i, c := range cells {
		fmt.Fprintf(&sb, `<td tabindex="0" data-ix="%d" data-date="%s" id="contribution-day-component-%d" data-level="%s" role="gridcell" class="ContributionCalendar-day"></td>`,
			i, c[0], i, c[1])
	}
	sb.WriteString(`</tr></tbody></table>`)
	for i, c := range cells {
		if c[2] == "" {
			continue
		}
		fmt.Fprintf(&sb, `<tool-tip for="contribution-day-component-%d" popover="manual" class="sr-only">%s</tool-tip>`, i, c[2])
	}
	sb.WriteString(`</div></body></html>`)
	return sb.String()
}

func TestScrapeFetch(t *testing.T) {
	page := profilePage([][3]string{
		{"2026-02-03", "1", "2 contributions on February 3rd."},
		{"2026-02-01", "0", "No contributions on February 1st."},
		{"2026-02-02", "4", "1,024 contributions on February 2nd."},
		{"2026-02-04", "1", "1 contribution on February 4th."},
	})
	var gotPath string
	srv, calls := upstreamServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(page))
	})

	f := New(NewScrape(srv.URL+"/users/%s/contributions", time.Second))
	days, err := f.Fetch(context.Background(), "octocat", contrib.ThemeDark)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, "/users/octocat/contributions", gotPath)
	assert.Equal(t, "scrape", f.SourceName())

	require.Len(t, days, 4)
	wantCounts := []int{0, 1024, 2, 1}
	for i, d := range days {
		assert.Equal(t, day(2026, time.February, 1+i), d.Date)
		assert.Equal(t, wantCounts[i], d.Count)
	}
	assert.Equal(t, contrib.Level4, days[1].Level)
}

func TestScrapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *contrib.Error
	}{
		{"unknown user", http.StatusNotFound, "Not Found", contrib.ErrUserNotFound},
		{"rate limited", http.StatusTooManyRequests, "", contrib.ErrRateLimited},
		{"server error", http.StatusBadGateway, "", contrib.ErrUpstream},
		{"no calendar", http.StatusOK, "<html><body><p>hello</p></body></html>", contrib.ErrUpstream},
		{"missing tooltip", http.StatusOK, profilePage([][3]string{{"2026-02-01", "0", ""}}), contrib.ErrUpstream},
		{"garbled tooltip", http.StatusOK, profilePage([][3]string{{"2026-02-01", "0", "lots of stuff"}}), contrib.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := upstreamServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := New(NewScrape(srv.URL+"/%s", time.Second)).Fetch(context.Background(), "octocat", contrib.ThemeDark)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseTooltipCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"No contributions on May 3rd.", 0, false},
		{"1 contribution on May 3rd.", 1, false},
		{"17 contributions on May 3rd.", 17, false},
		{"2,345 contributions on May 3rd.", 2345, false},
		{"", 0, true},
		{"many contributions", 0, true},
		{"5 stars", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTooltipCount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
