package projection

import (
	"sort"
	"time"

	"rednote/internal/models"
	"rednote/internal/store"
)

// Directory projects the conversations one identity participates in,
// ordered by recency with the counterpart derived for display. The store's
// native order on this filtered query is not trusted; recency sorting
// happens here after each snapshot.
type Directory struct {
	projector *Projector
}

func NewDirectory(st store.Store) *Directory {
	return &Directory{projector: NewProjector(st)}
}

// ListFor opens the live conversation listing for identityID. Calling it
// again replaces the previous listing.
func (d *Directory) ListFor(identityID string, onSnapshot func([]models.ConversationView), onError func(error)) {
	q := store.C(models.ChatsCollection).Where("participants", store.OpArrayContains, identityID)
	d.projector.Project(q,
		func(docs []store.Document) {
			now := time.Now()
			views := make([]models.ConversationView, 0, len(docs))
			for _, doc := range docs {
				conv := models.ConversationFromDocument(doc, now)
				views = append(views, conv.ViewFor(identityID))
			}
			sort.SliceStable(views, func(i, j int) bool {
				return views[i].LastMessageTimestamp.After(views[j].LastMessageTimestamp)
			})
			onSnapshot(views)
		},
		onError,
	)
}

// Stop tears down the listing.
func (d *Directory) Stop() {
	d.projector.Stop()
}
