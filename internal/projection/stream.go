package projection

import (
	"time"

	"rednote/internal/models"
	"rednote/internal/store"
)

// Stream projects the ordered message history of one selected
// conversation. Selecting a different conversation tears down the previous
// subscription first, so at most one message subscription is live.
type Stream struct {
	projector *Projector
}

func NewStream(st store.Store) *Stream {
	return &Stream{projector: NewProjector(st)}
}

// Select switches the stream to conversationID.
func (s *Stream) Select(conversationID string, onSnapshot func([]models.Message), onError func(error)) {
	q := store.C(models.MessagesCollection(conversationID)).OrderedBy("timestamp", false)
	s.projector.Project(q,
		func(docs []store.Document) {
			now := time.Now()
			msgs := make([]models.Message, 0, len(docs))
			for _, doc := range docs {
				msgs = append(msgs, models.MessageFromDocument(doc, conversationID, now))
			}
			onSnapshot(msgs)
		},
		onError,
	)
}

// Clear deactivates the stream when no conversation is selected.
func (s *Stream) Clear() {
	s.projector.Stop()
}
