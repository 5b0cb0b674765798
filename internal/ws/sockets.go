package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"rednote/internal/auth"
	"rednote/internal/models"
	"rednote/internal/observability"
	"rednote/internal/projection"
	"rednote/internal/store"
)

// SocketHandler attaches websocket clients to projection rooms.
type SocketHandler struct {
	hub   *Hub
	store store.Store
	auth  *auth.Provider
}

func NewSocketHandler(hub *Hub, st store.Store, provider *auth.Provider) *SocketHandler {
	return &SocketHandler{hub: hub, store: st, auth: provider}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Feed streams the aggregated post feed. The room is shared: every client
// sees the same joined snapshots.
func (h *SocketHandler) Feed(c *gin.Context) {
	h.attach(c, "feed", func(emit func(payload any)) func() {
		agg := projection.NewFeedAggregator(h.store)
		agg.Start(
			func(posts []models.Post) {
				emit(SnapshotEvent{Type: "snapshot", Data: posts})
			},
			func(err error) {
				emit(SnapshotEvent{Type: "error", Data: []models.Post{}, Error: err.Error()})
			},
		)
		return agg.Stop
	})
}

// Conversations streams the caller's conversation directory.
func (h *SocketHandler) Conversations(c *gin.Context) {
	userID, ok := h.authorize(c)
	if !ok {
		return
	}
	h.attachAs(c, userID, "conversations:"+userID, func(emit func(payload any)) func() {
		dir := projection.NewDirectory(h.store)
		dir.ListFor(userID,
			func(views []models.ConversationView) {
				emit(SnapshotEvent{Type: "snapshot", Data: views})
			},
			func(err error) {
				emit(SnapshotEvent{Type: "error", Data: []models.ConversationView{}, Error: err.Error()})
			},
		)
		return dir.Stop
	})
}

// Messages streams one conversation's history while the client keeps it
// selected; disconnecting deselects and tears the stream down.
func (h *SocketHandler) Messages(c *gin.Context) {
	chatID := c.Param("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	h.attach(c, "messages:"+chatID, func(emit func(payload any)) func() {
		stream := projection.NewStream(h.store)
		stream.Select(chatID,
			func(msgs []models.Message) {
				emit(SnapshotEvent{Type: "snapshot", Data: msgs})
			},
			func(err error) {
				emit(SnapshotEvent{Type: "error", Data: []models.Message{}, Error: err.Error()})
			},
		)
		return stream.Clear
	})
}

func (h *SocketHandler) attach(c *gin.Context, roomID string, start StartFunc) {
	userID, ok := h.authorize(c)
	if !ok {
		return
	}
	h.attachAs(c, userID, roomID, start)
}

func (h *SocketHandler) attachAs(c *gin.Context, userID, roomID string, start StartFunc) {
	ctx, span := otel.Tracer("rednote/ws").Start(c.Request.Context(), "ws.attach")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	kind := roomKind(roomID)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Join(roomID, conn, info, start)

	observability.IncWSEvent(kind, "ws_connect")
	h.publishWSEvent(ctx, kind, roomID, info, "ws_connect", "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.Leave(roomID, conn)
			observability.IncWSEvent(kind, "ws_disconnect")
			h.publishWSEvent(ctx, kind, roomID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent(kind, "ws_error")
				}
				return
			}
		}
	}()
}

// authorize accepts the bearer token from the Authorization header or,
// for browser websocket clients that cannot set headers, a token query
// parameter.
func (h *SocketHandler) authorize(c *gin.Context) (string, bool) {
	token := c.GetHeader("Authorization")
	if token == "" {
		if q := c.Query("token"); q != "" {
			token = "Bearer " + q
		}
	}

	parts := strings.Split(token, " ")
	if len(parts) != 2 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	userID, err := h.auth.ValidateToken(c.Request.Context(), parts[1])
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return userID, true
}

func (h *SocketHandler) publishWSEvent(ctx context.Context, kind, roomID string, info ConnInfo, event, reason string) {
	durationMS := int64(0)
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	_ = observability.PublishEvent(ctx, fmt.Sprintf("ws_events.%s", kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"room":        roomID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
