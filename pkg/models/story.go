package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/openhura/hura.go/pkg/constants"
	"github.com/openhura/hura.go/pkg/transport"
)

// Story is a curated narrative of ordered items. Its id is an opaque string.
// Private stories require the owner's key; the API answers unauthorized
// otherwise.
type Story struct {
	Attributes Attributes
	Errors     string

	deps  Deps
	user  *User
	items *StoryItemRelation
}

func NewStory(deps Deps, attrs map[string]any, user *User) *Story {
	return &Story{deps: deps, Attributes: NewAttributes(attrs), user: user}
}

func (st *Story) ID() string      { return st.Attributes.String("id") }
func (st *Story) Name() string    { return st.Attributes.String("name") }
func (st *Story) User() *User     { return st.user }
func (st *Story) persisted() bool { return st.ID() != "" }

func (st *Story) apiKey() string {
	if st.user != nil {
		return st.user.APIKey()
	}
	return ""
}

func (st *Story) requestOptions() *transport.Options {
	return perUserOptions(st.apiKey())
}

// Items returns the story's item relation, built on first access and reset by
// Reload.
func (st *Story) Items() *StoryItemRelation {
	if st.items == nil {
		st.items = newStoryItemRelation(st)
	}
	return st.items
}

func (st *Story) Save(ctx context.Context) bool {
	payload := map[string]any{"story": map[string]any(st.Attributes)}

	var err error
	var body []byte
	if st.persisted() {
		body, err = st.deps.Transport.Patch(ctx, "/stories/"+st.ID(), nil, payload, st.requestOptions())
	} else {
		body, err = st.deps.Transport.Post(ctx, "/stories", nil, payload, st.requestOptions())
	}
	if err != nil {
		st.Errors = err.Error()
		return false
	}

	if attrs := decodeEnvelope(body, "story"); attrs != nil {
		st.Attributes = NewAttributes(attrs)
	}
	st.Errors = ""
	st.invalidateListing(ctx)
	return true
}

func (st *Story) Destroy(ctx context.Context) bool {
	if !st.persisted() {
		return false
	}
	if _, err := st.deps.Transport.Delete(ctx, "/stories/"+st.ID(), nil, st.requestOptions()); err != nil {
		st.Errors = err.Error()
		return false
	}
	st.invalidateListing(ctx)
	return true
}

// Reload refetches the story and drops the item relation.
func (st *Story) Reload(ctx context.Context) error {
	fresh, err := NewStories(st.deps).Find(ctx, st.ID(), nil)
	if err != nil {
		return err
	}
	st.Attributes = fresh.Attributes
	st.items = nil
	return nil
}

func (st *Story) invalidateListing(ctx context.Context) {
	if key := st.apiKey(); key != "" {
		st.deps.cache().Delete(ctx, userListKey("stories", key))
	}
}

// StoryItem is one block inside a story.
type StoryItem struct {
	Attributes Attributes
	Errors     string

	story *Story
}

func (si *StoryItem) ID() string { return si.Attributes.String("id") }

// Attribute returns the named attribute and whether it exists.
func (si *StoryItem) Attribute(name string) (any, bool) {
	return si.Attributes.Get(name)
}

func (si *StoryItem) Save(ctx context.Context) bool {
	if si.story == nil || !si.story.persisted() {
		si.Errors = "item does not belong to a persisted story"
		return false
	}

	payload := map[string]any{"item": map[string]any(si.Attributes)}
	basePath := "/stories/" + si.story.ID() + "/items"

	var err error
	var body []byte
	if si.ID() != "" {
		body, err = si.story.deps.Transport.Patch(ctx, basePath+"/"+si.ID(), nil, payload, si.story.requestOptions())
	} else {
		body, err = si.story.deps.Transport.Post(ctx, basePath, nil, payload, si.story.requestOptions())
	}
	if err != nil {
		si.Errors = err.Error()
		return false
	}

	if attrs := decodeEnvelope(body, "item"); attrs != nil {
		si.Attributes = NewAttributes(attrs)
	}
	si.story.invalidateListing(ctx)
	return true
}

func (si *StoryItem) Destroy(ctx context.Context) bool {
	if si.story == nil || !si.story.persisted() || si.ID() == "" {
		return false
	}
	path := "/stories/" + si.story.ID() + "/items/" + si.ID()
	if _, err := si.story.deps.Transport.Delete(ctx, path, nil, si.story.requestOptions()); err != nil {
		si.Errors = err.Error()
		return false
	}
	si.story.invalidateListing(ctx)
	return true
}

// StoryItemRelation is the ordered collection of a story's items.
type StoryItemRelation struct {
	story *Story
	items []*StoryItem
}

func newStoryItemRelation(story *Story) *StoryItemRelation {
	relation := &StoryItemRelation{story: story}
	for _, raw := range story.Attributes.maps("contents") {
		relation.items = append(relation.items, &StoryItem{Attributes: NewAttributes(raw), story: story})
	}
	return relation
}

func (r *StoryItemRelation) All() []*StoryItem { return r.items }

// Find scans for the item with the given id.
func (r *StoryItemRelation) Find(id string) *StoryItem {
	for _, item := range r.items {
		if item.ID() == id {
			return item
		}
	}
	return nil
}

// Build constructs an unpersisted item belonging to the story.
func (r *StoryItemRelation) Build(attrs map[string]any) *StoryItem {
	item := &StoryItem{Attributes: NewAttributes(attrs), story: r.story}
	r.items = append(r.items, item)
	return item
}

// Create builds then saves.
func (r *StoryItemRelation) Create(ctx context.Context, attrs map[string]any) (*StoryItem, bool) {
	item := r.Build(attrs)
	return item, item.Save(ctx)
}

// Move repositions an item within the story. Returns false on failure like
// the other mutation verbs.
func (r *StoryItemRelation) Move(ctx context.Context, itemID string, position int) bool {
	if r.story == nil || !r.story.persisted() || itemID == "" {
		return false
	}
	path := "/stories/" + r.story.ID() + "/items/" + itemID + "/moves"
	payload := map[string]any{"item_id": itemID, "position": position}
	if _, err := r.story.deps.Transport.Post(ctx, path, nil, payload, r.story.requestOptions()); err != nil {
		r.story.Errors = err.Error()
		return false
	}
	r.story.invalidateListing(ctx)
	return true
}

// Stories exposes the story endpoints.
type Stories struct {
	deps Deps
}

func NewStories(deps Deps) *Stories {
	return &Stories{deps: deps}
}

// Find fetches a story. Private stories answered with unauthorized or
// forbidden surface as ErrStoryUnauthorised.
func (s *Stories) Find(ctx context.Context, id string, options map[string]any) (*Story, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: story id is required", constants.ErrMalformedRequest)
	}

	var out struct {
		Story map[string]any `json:"story"`
	}
	if err := s.deps.Transport.GetJSON(ctx, "/stories/"+id, options, nil, &out); err != nil {
		switch {
		case errors.Is(err, constants.ErrNotFound):
			return nil, fmt.Errorf("%w: id %s", ErrStoryNotFound, id)
		case errors.Is(err, constants.ErrUnauthorized), errors.Is(err, constants.ErrForbidden):
			return nil, fmt.Errorf("%w: id %s", ErrStoryUnauthorised, id)
		}
		return nil, err
	}
	return NewStory(s.deps, out.Story, nil), nil
}

// Featured lists curator-featured stories, cached for a day.
func (s *Stories) Featured(ctx context.Context) ([]*Story, error) {
	body, err := s.deps.cache().Fetch(ctx, "stories:featured", constants.ListCacheTTL, func(ctx context.Context) ([]byte, error) {
		return s.deps.Transport.Get(ctx, "/stories/featured", nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.decodeList(body)
}

// Moderations lists stories awaiting moderation. Not cached: moderators need
// a current view.
func (s *Stories) Moderations(ctx context.Context, options map[string]any) ([]*Story, error) {
	body, err := s.deps.Transport.Get(ctx, "/stories/moderations", options, nil)
	if err != nil {
		return nil, err
	}
	return s.decodeList(body)
}

func (s *Stories) decodeList(body []byte) ([]*Story, error) {
	var wrapped struct {
		Stories []map[string]any `json:"stories"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Stories != nil {
		return s.buildList(wrapped.Stories), nil
	}

	// Some story listings respond with a bare array.
	var bare []map[string]any
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, err
	}
	return s.buildList(bare), nil
}

func (s *Stories) buildList(raw []map[string]any) []*Story {
	stories := make([]*Story, 0, len(raw))
	for _, attrs := range raw {
		stories = append(stories, NewStory(s.deps, attrs, nil))
	}
	return stories
}

// UserStoryRelation lists and builds stories on behalf of one user.
type UserStoryRelation struct {
	user *User
	deps Deps

	fetched []*Story
}

// All lists the user's stories through the per-user list cache.
func (r *UserStoryRelation) All(ctx context.Context) ([]*Story, error) {
	if r.fetched != nil {
		return r.fetched, nil
	}

	opts := perUserOptions(r.user.APIKey())
	body, err := r.deps.cache().Fetch(ctx, userListKey("stories", r.user.APIKey()), constants.ListCacheTTL,
		func(ctx context.Context) ([]byte, error) {
			return r.deps.Transport.Get(ctx, "/stories", nil, opts)
		})
	if err != nil {
		return nil, err
	}

	var out struct {
		Stories []map[string]any `json:"stories"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	r.fetched = make([]*Story, 0, len(out.Stories))
	for _, attrs := range out.Stories {
		r.fetched = append(r.fetched, NewStory(r.deps, attrs, r.user))
	}
	return r.fetched, nil
}

// Find scans the fetched stories by id.
func (r *UserStoryRelation) Find(ctx context.Context, id string) (*Story, error) {
	stories, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, story := range stories {
		if story.ID() == id {
			return story, nil
		}
	}
	return nil, nil
}

// Build constructs an unpersisted story owned by the user.
func (r *UserStoryRelation) Build(attrs map[string]any) *Story {
	return NewStory(r.deps, attrs, r.user)
}

// Create builds then saves.
func (r *UserStoryRelation) Create(ctx context.Context, attrs map[string]any) (*Story, bool) {
	story := r.Build(attrs)
	return story, story.Save(ctx)
}
