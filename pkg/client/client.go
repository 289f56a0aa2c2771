// Package client talks to a running contribgraph server over TCP or a unix
// socket.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/contribgraph/pkg/contrib"
)

const unixPrefix = "unix:"

// DefaultTimeout bounds one request to the server. It is larger than the
// upstream timeout of the server so that upstream errors come back intact.
const DefaultTimeout = 30 * time.Second

// Client is a struct for communicating with a contribgraph server
type Client struct {
	addr       string
	baseURL    string
	httpClient *http.Client

	// streamClient has no overall timeout, for event streams.
	streamClient *http.Client
}

// NewClient is a constructor for creating a new Client. addr is host:port,
// an http(s) URL, or unix:<path>.
func NewClient(addr string) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	network, dialAddr := "", ""
	baseURL := strings.TrimSuffix(addr, "/")

	switch {
	case strings.HasPrefix(addr, unixPrefix):
		network, dialAddr = "unix", strings.TrimPrefix(addr, unixPrefix)
		baseURL = "http://unix"
	case strings.HasPrefix(addr, "http://"), strings.HasPrefix(addr, "https://"):
	default:
		baseURL = "http://" + baseURL
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, n, a string) (net.Conn, error) {
			if network != "" {
				n, a = network, dialAddr
			}
			conn, err := dialer.DialContext(ctx, n, a)
			if err != nil {
				switch {
				case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ECONNREFUSED):
					return nil, ErrServerNotRunning
				case errors.Is(err, os.ErrPermission):
					return nil, ErrPermissionDenied
				}
				logrus.Errorf("failed to connect to %s: %v", a, err)
				return nil, err
			}
			return conn, nil
		},
	}

	return &Client{
		addr:    addr,
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   DefaultTimeout,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Get sends a GET request and returns the body of a 2xx response. A failed
// API call is returned as a *contrib.Error of the kind reported by the server.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	logrus.WithFields(logrus.Fields{
		"method": http.MethodGet,
		"path":   path,
		"server": c.addr,
	}).Debug("sending request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := responseError(resp.StatusCode, b); err != nil {
		return nil, err
	}

	return b, nil
}

func responseError(status int, b []byte) error {
	if status >= 200 && status <= 299 {
		return nil
	}
	var e errorResponse
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return contrib.NewError(contrib.ParseKind(e.Error), "%s", e.Message)
	}
	if status == http.StatusNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("got %d: %s", status, strings.TrimSpace(string(b)))
}
