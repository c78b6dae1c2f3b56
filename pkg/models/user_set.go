package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/openhura/hura.go/pkg/constants"
	"github.com/openhura/hura.go/pkg/transport"
)

// UserSet is a user-curated collection of records. Its id is an opaque
// string.
type UserSet struct {
	Attributes Attributes
	Errors     string

	deps  Deps
	user  *User
	items *ItemRelation
}

func NewUserSet(deps Deps, attrs map[string]any, user *User) *UserSet {
	return &UserSet{deps: deps, Attributes: NewAttributes(attrs), user: user}
}

func (us *UserSet) ID() string      { return us.Attributes.String("id") }
func (us *UserSet) Name() string    { return us.Attributes.String("name") }
func (us *UserSet) User() *User     { return us.user }
func (us *UserSet) persisted() bool { return us.ID() != "" }

func (us *UserSet) apiKey() string {
	if us.user != nil {
		return us.user.APIKey()
	}
	return ""
}

// Items returns the set's item relation, built on first access and reset by
// Reload.
func (us *UserSet) Items() *ItemRelation {
	if us.items == nil {
		us.items = newItemRelation(us)
	}
	return us.items
}

func (us *UserSet) Save(ctx context.Context) bool {
	opts := us.requestOptions()
	payload := map[string]any{"set": map[string]any(us.Attributes)}

	var err error
	var body []byte
	if us.persisted() {
		body, err = us.deps.Transport.Put(ctx, "/sets/"+us.ID(), nil, payload, opts)
	} else {
		body, err = us.deps.Transport.Post(ctx, "/sets", nil, payload, opts)
	}
	if err != nil {
		us.Errors = err.Error()
		return false
	}

	if attrs := decodeEnvelope(body, "set"); attrs != nil {
		us.Attributes = NewAttributes(attrs)
	}
	us.Errors = ""
	us.invalidateListing(ctx)
	return true
}

func (us *UserSet) Destroy(ctx context.Context) bool {
	if !us.persisted() {
		return false
	}
	if _, err := us.deps.Transport.Delete(ctx, "/sets/"+us.ID(), nil, us.requestOptions()); err != nil {
		us.Errors = err.Error()
		return false
	}
	us.invalidateListing(ctx)
	return true
}

// Reload refetches the set and drops the item relation.
func (us *UserSet) Reload(ctx context.Context) error {
	fresh, err := NewSets(us.deps).Find(ctx, us.ID(), nil)
	if err != nil {
		return err
	}
	us.Attributes = fresh.Attributes
	us.items = nil
	return nil
}

func (us *UserSet) requestOptions() *transport.Options {
	return perUserOptions(us.apiKey())
}

func (us *UserSet) invalidateListing(ctx context.Context) {
	if key := us.apiKey(); key != "" {
		us.deps.cache().Delete(ctx, userListKey("sets", key))
	}
}

// Item is one record entry inside a set. Unknown attribute access returns the
// zero value rather than an error.
type Item struct {
	Attributes Attributes
	Errors     string

	set *UserSet
}

func (i *Item) RecordID() int { return i.Attributes.Int("record_id") }

// Attribute returns the named attribute and whether it exists. Unknown names
// are not an error for items.
func (i *Item) Attribute(name string) (any, bool) {
	return i.Attributes.Get(name)
}

func (i *Item) Save(ctx context.Context) bool {
	if i.set == nil || !i.set.persisted() {
		i.Errors = "item does not belong to a persisted set"
		return false
	}
	payload := map[string]any{"record": map[string]any(i.Attributes)}
	_, err := i.set.deps.Transport.Post(ctx, "/sets/"+i.set.ID()+"/records", nil, payload, i.set.requestOptions())
	if err != nil {
		i.Errors = err.Error()
		return false
	}
	i.set.invalidateListing(ctx)
	return true
}

func (i *Item) Destroy(ctx context.Context) bool {
	if i.set == nil || !i.set.persisted() || i.RecordID() == 0 {
		return false
	}
	path := fmt.Sprintf("/sets/%s/records/%d", i.set.ID(), i.RecordID())
	if _, err := i.set.deps.Transport.Delete(ctx, path, nil, i.set.requestOptions()); err != nil {
		i.Errors = err.Error()
		return false
	}
	i.set.invalidateListing(ctx)
	return true
}

// ItemRelation is the ordered collection of a set's items.
type ItemRelation struct {
	set   *UserSet
	items []*Item
}

func newItemRelation(set *UserSet) *ItemRelation {
	relation := &ItemRelation{set: set}
	for _, raw := range set.Attributes.maps("records") {
		relation.items = append(relation.items, &Item{Attributes: NewAttributes(raw), set: set})
	}
	return relation
}

func (r *ItemRelation) All() []*Item { return r.items }

// Find scans for the item holding the given record id.
func (r *ItemRelation) Find(recordID int) *Item {
	for _, item := range r.items {
		if item.RecordID() == recordID {
			return item
		}
	}
	return nil
}

// Build constructs an unpersisted item belonging to the set.
func (r *ItemRelation) Build(attrs map[string]any) *Item {
	item := &Item{Attributes: NewAttributes(attrs), set: r.set}
	r.items = append(r.items, item)
	return item
}

// Create builds then saves.
func (r *ItemRelation) Create(ctx context.Context, attrs map[string]any) (*Item, bool) {
	item := r.Build(attrs)
	return item, item.Save(ctx)
}

// Sets exposes the set endpoints.
type Sets struct {
	deps Deps
}

func NewSets(deps Deps) *Sets {
	return &Sets{deps: deps}
}

func (s *Sets) Find(ctx context.Context, id string, options map[string]any) (*UserSet, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: set id is required", constants.ErrMalformedRequest)
	}

	var out struct {
		Set map[string]any `json:"set"`
	}
	if err := s.deps.Transport.GetJSON(ctx, "/sets/"+id, options, nil, &out); err != nil {
		if errors.Is(err, constants.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrSetNotFound, id)
		}
		return nil, err
	}
	return NewUserSet(s.deps, out.Set, nil), nil
}

// Public lists publicly visible sets.
func (s *Sets) Public(ctx context.Context, options map[string]any) ([]*UserSet, error) {
	return s.list(ctx, "/sets/public", options)
}

// Featured lists curator-featured sets, cached for a day.
func (s *Sets) Featured(ctx context.Context) ([]*UserSet, error) {
	body, err := s.deps.cache().Fetch(ctx, "sets:featured", constants.ListCacheTTL, func(ctx context.Context) ([]byte, error) {
		return s.deps.Transport.Get(ctx, "/sets/featured", nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.decodeList(body)
}

func (s *Sets) list(ctx context.Context, path string, options map[string]any) ([]*UserSet, error) {
	body, err := s.deps.Transport.Get(ctx, path, options, nil)
	if err != nil {
		return nil, err
	}
	return s.decodeList(body)
}

func (s *Sets) decodeList(body []byte) ([]*UserSet, error) {
	var out struct {
		Sets []map[string]any `json:"sets"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	sets := make([]*UserSet, 0, len(out.Sets))
	for _, attrs := range out.Sets {
		sets = append(sets, NewUserSet(s.deps, attrs, nil))
	}
	return sets, nil
}

// UserSetRelation lists and builds sets on behalf of one user.
type UserSetRelation struct {
	user *User
	deps Deps

	fetched []*UserSet
}

// All lists the user's sets, served from the per-user list cache until a
// mutation invalidates it. The fetched list is kept on the relation.
func (r *UserSetRelation) All(ctx context.Context) ([]*UserSet, error) {
	if r.fetched != nil {
		return r.fetched, nil
	}

	opts := perUserOptions(r.user.APIKey())
	body, err := r.deps.cache().Fetch(ctx, userListKey("sets", r.user.APIKey()), constants.ListCacheTTL,
		func(ctx context.Context) ([]byte, error) {
			return r.deps.Transport.Get(ctx, "/sets", nil, opts)
		})
	if err != nil {
		return nil, err
	}

	var out struct {
		Sets []map[string]any `json:"sets"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	r.fetched = make([]*UserSet, 0, len(out.Sets))
	for _, attrs := range out.Sets {
		r.fetched = append(r.fetched, NewUserSet(r.deps, attrs, r.user))
	}
	return r.fetched, nil
}

// Find scans the fetched sets by id.
func (r *UserSetRelation) Find(ctx context.Context, id string) (*UserSet, error) {
	sets, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, set := range sets {
		if set.ID() == id {
			return set, nil
		}
	}
	return nil, nil
}

// Build constructs an unpersisted set owned by the user.
func (r *UserSetRelation) Build(attrs map[string]any) *UserSet {
	return NewUserSet(r.deps, attrs, r.user)
}

// Create builds then saves.
func (r *UserSetRelation) Create(ctx context.Context, attrs map[string]any) (*UserSet, bool) {
	set := r.Build(attrs)
	return set, set.Save(ctx)
}
