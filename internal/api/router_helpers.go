package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
	"github.com/studynexus/nexus/internal/srs"
	"github.com/studynexus/nexus/internal/ws"
)

func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, corsOrigins []string) gin.HandlerFunc {
	patterns := originPatterns(corsOrigins)

	return func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       patterns,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		client := ws.NewClient(hub, conn)
		hub.Register(client)

		// Cancel when either the server shuts down or the request ends.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		stop := context.AfterFunc(c.Request.Context(), wsCancel)
		defer stop()

		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
		wsCancel()
	}
}

// originPatterns turns CORS origins (scheme://host[:port]) into the host
// patterns websocket.Accept expects.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		}
	}

	return out
}

// Pagination caps.
const (
	defaultPageSize     = 50
	maxPaginationLimit  = 1000
	maxPaginationOffset = 100000
)

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	return min(v, maxPaginationLimit)
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	return min(v, maxPaginationOffset)
}

var errInvalidID = errors.New("id must be between 1 and 255 characters")

// pathID returns the :id parameter, responding 400 when it is unusable.
func pathID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if id == "" || len(id) > 255 {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, errInvalidID.Error())

		return "", false
	}

	return id, true
}

// bindJSON decodes the request body, responding 400 on malformed JSON.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "request body too large")

			return false
		}

		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return false
	}

	return true
}

// NodeResponse is a node as returned by the API: without its embedding and
// with the mastery it currently shows after decay.
type NodeResponse struct {
	models.Node
	VisibleMastery float64 `json:"visible_mastery"`
	MasteryLevel   string  `json:"mastery_level"`
}

func toResponse(n models.Node, now time.Time) NodeResponse {
	n.Embedding = nil
	visible := srs.Decay(n.SRS, now)

	return NodeResponse{Node: n, VisibleMastery: visible, MasteryLevel: string(srs.MasteryLevel(visible))}
}

func toResponses(nodes []models.Node, now time.Time) []NodeResponse {
	out := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = toResponse(n, now)
	}

	return out
}
