package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

// DefaultProfileURL is the public contributions fragment of a profile page.
// %s is replaced by the username.
const DefaultProfileURL = "https://github.com/users/%s/contributions"

const dayCellClass = "ContributionCalendar-day"

// Scrape reads the contribution calendar from the public profile page. It
// needs no credential.
type Scrape struct {
	urlTemplate string
	httpClient  *http.Client
}

var _ Source = &Scrape{}

// NewScrape returns a Scrape source. urlTemplate must contain one %s for the
// username; empty means DefaultProfileURL.
func NewScrape(urlTemplate string, timeout time.Duration) *Scrape {
	if urlTemplate == "" {
		urlTemplate = DefaultProfileURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scrape{
		urlTemplate: urlTemplate,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (s *Scrape) Name() string {
	return "scrape"
}

func (s *Scrape) FetchDays(ctx context.Context, username string) ([]RawDay, error) {
	url := fmt.Sprintf(s.urlTemplate, username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "GET %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to read profile page")
	}

	if err := checkStatus(resp, body, true); err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, contrib.WrapError(contrib.KindUpstream, err, "failed to parse profile page")
	}

	return extractDays(doc)
}

type calendarCell struct {
	id    string
	date  string
	level string
}

// extractDays collects the calendar cells and their tooltips from doc and
// reads the count of every cell from its tooltip.
func extractDays(doc *html.Node) ([]RawDay, error) {
	var cells []calendarCell
	tooltips := make(map[string]string)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "td" && hasClass(n, dayCellClass) && getAttr(n, "data-date") != "":
				cells = append(cells, calendarCell{
					id:    getAttr(n, "id"),
					date:  getAttr(n, "data-date"),
					level: getAttr(n, "data-level"),
				})
			case n.Data == "tool-tip":
				if target := getAttr(n, "for"); target != "" {
					tooltips[target] = textContent(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(cells) == 0 {
		return nil, contrib.NewError(contrib.KindUpstream, "no contribution calendar found on profile page")
	}

	days := make([]RawDay, 0, len(cells))
	for _, c := range cells {
		date, err := contrib.ParseDate(c.date)
		if err != nil {
			return nil, contrib.WrapError(contrib.KindUpstream, err, "unexpected date on profile page")
		}
		tip, ok := tooltips[c.id]
		if !ok || c.id == "" {
			return nil, contrib.NewError(contrib.KindUpstream, "no tooltip for calendar day %s (level %s)", c.date, c.level)
		}
		count, err := parseTooltipCount(tip)
		if err != nil {
			return nil, contrib.WrapError(contrib.KindUpstream, err, "calendar day %s", c.date)
		}
		days = append(days, RawDay{Date: date, Count: count})
	}

	return days, nil
}

// parseTooltipCount reads the leading count of a tooltip such as
// "No contributions on May 3rd." or "1,024 contributions on May 3rd.".
func parseTooltipCount(tip string) (int, error) {
	fields := strings.Fields(tip)
	if len(fields) < 2 || !strings.HasPrefix(fields[1], "contribution") {
		return 0, fmt.Errorf("unrecognized tooltip %q", tip)
	}
	if strings.EqualFold(fields[0], "no") {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("unrecognized tooltip %q", tip)
	}
	return n, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
