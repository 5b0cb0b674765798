package observability

import "context"

// Routing keys for mutation events published to the topic exchange.
const (
	EventPostCreated         = "feed.post_created"
	EventPostLiked           = "feed.post_liked"
	EventCommentAdded        = "feed.comment_added"
	EventConversationStarted = "chat.conversation_started"
	EventMessageSent         = "chat.message_sent"
)

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// PublishMutation emits one mutation event. Failures are counted, never
// surfaced: mutations must not depend on the event pipeline.
func PublishMutation(ctx context.Context, routingKey string, userID string, payload map[string]interface{}) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["user_id"] = userID
	_ = PublishEvent(ctx, routingKey, EventEnvelope{
		EventType: "mutation",
		EventName: routingKey,
		Payload:   payload,
	}, nil)
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
