package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlie0129/contribgraph/pkg/config"
	"github.com/charlie0129/contribgraph/pkg/contrib"
	"github.com/charlie0129/contribgraph/pkg/events"
	"github.com/charlie0129/contribgraph/pkg/grid"
	"github.com/charlie0129/contribgraph/pkg/version"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	// Error is the name of the contrib.Kind.
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusCode returns the HTTP status reported for errors of kind k.
func StatusCode(k contrib.Kind) int {
	switch k {
	case contrib.KindInvalidUsername, contrib.KindInvalidTheme:
		return http.StatusBadRequest
	case contrib.KindUserNotFound:
		return http.StatusNotFound
	case contrib.KindRateLimited:
		return http.StatusTooManyRequests
	case contrib.KindMissingCredential:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func abortWithContribError(c *gin.Context, err error) {
	kind := contrib.KindOf(err)
	status := StatusCode(kind)
	c.IndentedJSON(status, ErrorResponse{
		Error:   kind.String(),
		Message: contrib.HumanMessage(err),
	})
	_ = c.AbortWithError(status, err)
}

func (s *Server) getHealthz(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, "ok")
}

func (s *Server) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *Server) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(s.currentConfig(), false)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (s *Server) getThemes(c *gin.Context) {
	themes := make(map[contrib.Theme][]string, len(contrib.Themes))
	for _, t := range contrib.Themes {
		p := s.palette(t)
		themes[t] = p[:]
	}
	c.IndentedJSON(http.StatusOK, themes)
}

func (s *Server) setCacheControl(c *gin.Context) {
	ttl := s.service().CacheTTL()
	if ttl <= 0 {
		c.Header("Cache-Control", "no-store")
		return
	}
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
}

func (s *Server) getContributions(c *gin.Context) {
	g, err := s.service().Graph(c.Request.Context(), c.Param("username"), c.Query("theme"))
	if err != nil {
		abortWithContribError(c, err)
		return
	}
	s.setCacheControl(c)
	c.JSON(http.StatusOK, g)
}

func (s *Server) getMonths(c *gin.Context) {
	g, err := s.service().Graph(c.Request.Context(), c.Param("username"), c.Query("theme"))
	if err != nil {
		abortWithContribError(c, err)
		return
	}
	months := g.Months
	if months == nil {
		months = []grid.MonthLabel{}
	}
	s.setCacheControl(c)
	c.IndentedJSON(http.StatusOK, months)
}

// getEvents streams hub events as server-sent events until the client leaves
// or the server shuts down. A subscribed event is sent first.
func (s *Server) getEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-store")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(events.Subscribed, fmt.Sprintf(`{"subscribers":%d}`, s.hub.Subscribers()))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		case <-s.streams.Done():
			return false
		}
	})
}
