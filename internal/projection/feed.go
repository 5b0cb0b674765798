package projection

import (
	"sync"
	"time"

	"rednote/internal/models"
	"rednote/internal/store"
)

// FeedAggregator joins the posts query with one nested comment query per
// post and publishes the denormalized feed. A merged snapshot is only
// published once every nested comment subscription for the current post set
// has delivered at least once; until then the previous complete result
// stands, so readers never see a partially joined feed.
type FeedAggregator struct {
	store store.Store

	mu       sync.Mutex
	posts    *Projector
	children map[string]*commentChild
	postDocs []store.Document
	loaded   bool

	// pubMu serializes snapshot publication. It is acquired before mu is
	// released, so snapshots go out in the order they were built, while the
	// callback itself runs outside mu and may re-enter the aggregator
	// (Stop included).
	pubMu sync.Mutex

	onSnapshot func(posts []models.Post)
	onError    func(err error)
}

type commentChild struct {
	projector *Projector
	comments  []models.Comment
	ready     bool
}

func NewFeedAggregator(st store.Store) *FeedAggregator {
	return &FeedAggregator{
		store:    st,
		children: make(map[string]*commentChild),
	}
}

// Start opens the posts subscription. onSnapshot receives the complete
// joined feed; it is never called with a partial join.
func (a *FeedAggregator) Start(onSnapshot func(posts []models.Post), onError func(err error)) {
	a.mu.Lock()
	a.onSnapshot = onSnapshot
	a.onError = onError
	a.posts = NewProjector(a.store)
	posts := a.posts
	a.mu.Unlock()

	posts.Project(
		store.C(models.PostsCollection).OrderedBy("timestamp", true),
		a.handlePosts,
		a.handleError,
	)
}

// Stop tears down the posts subscription and every nested comment
// subscription.
func (a *FeedAggregator) Stop() {
	a.mu.Lock()
	posts := a.posts
	children := a.children
	a.posts = nil
	a.children = make(map[string]*commentChild)
	a.postDocs = nil
	a.mu.Unlock()

	if posts != nil {
		posts.Stop()
	}
	for _, child := range children {
		child.projector.Stop()
	}
}

func (a *FeedAggregator) handlePosts(docs []store.Document) {
	a.mu.Lock()
	if a.posts == nil {
		a.mu.Unlock()
		return
	}

	a.postDocs = docs

	current := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		current[doc.ID] = struct{}{}
		if _, ok := a.children[doc.ID]; ok {
			continue
		}
		child := &commentChild{projector: NewProjector(a.store)}
		a.children[doc.ID] = child
		postID := doc.ID
		child.projector.Project(
			store.C(models.CommentsCollection(postID)).OrderedBy("timestamp", false),
			func(commentDocs []store.Document) { a.handleComments(postID, commentDocs) },
			a.handleError,
		)
	}

	// Posts that left the result set take their comment subscriptions down
	// with them.
	for postID, child := range a.children {
		if _, ok := current[postID]; !ok {
			child.projector.Stop()
			delete(a.children, postID)
		}
	}

	a.publishAndUnlock()
}

func (a *FeedAggregator) handleComments(postID string, docs []store.Document) {
	now := time.Now()

	a.mu.Lock()
	child, ok := a.children[postID]
	if !ok {
		a.mu.Unlock()
		return
	}

	comments := make([]models.Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, models.CommentFromDocument(doc, now))
	}
	child.comments = comments
	child.ready = true

	a.publishAndUnlock()
}

// publishAndUnlock re-runs the join and publishes when it is complete.
// Called with a.mu held; always releases it. The snapshot callback runs
// outside a.mu (pubMu alone keeps delivery ordered), so a callback is free
// to call back into the aggregator, including Stop.
func (a *FeedAggregator) publishAndUnlock() {
	for _, doc := range a.postDocs {
		if child, ok := a.children[doc.ID]; !ok || !child.ready {
			a.mu.Unlock()
			return
		}
	}

	now := time.Now()
	merged := make([]models.Post, 0, len(a.postDocs))
	for _, doc := range a.postDocs {
		post := models.PostFromDocument(doc, now)
		post.Comments = a.children[doc.ID].comments
		merged = append(merged, post)
	}

	a.loaded = true
	onSnapshot := a.onSnapshot

	a.pubMu.Lock()
	a.mu.Unlock()
	if onSnapshot != nil {
		onSnapshot(merged)
	}
	a.pubMu.Unlock()
}

// Loaded reports whether the first complete join has been published.
func (a *FeedAggregator) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

func (a *FeedAggregator) handleError(err error) {
	a.mu.Lock()
	onError := a.onError
	a.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
