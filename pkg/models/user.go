package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/openhura/hura.go/pkg/constants"
)

// User owns an API key under which sets and stories are created. The set and
// story relations hold a plain back-reference to their user; the user is the
// only owner.
type User struct {
	Attributes Attributes
	Errors     string

	deps    Deps
	sets    *UserSetRelation
	stories *UserStoryRelation
}

func NewUser(deps Deps, attrs map[string]any) *User {
	return &User{deps: deps, Attributes: NewAttributes(attrs)}
}

func (u *User) ID() int         { return u.Attributes.Int("id") }
func (u *User) APIKey() string  { return u.Attributes.String("api_key") }
func (u *User) Name() string    { return u.Attributes.String("name") }
func (u *User) persisted() bool { return u.APIKey() != "" }

// Sets returns the user's set relation, built on first access.
func (u *User) Sets() *UserSetRelation {
	if u.sets == nil {
		u.sets = &UserSetRelation{user: u, deps: u.deps}
	}
	return u.sets
}

// Stories returns the user's story relation, built on first access.
func (u *User) Stories() *UserStoryRelation {
	if u.stories == nil {
		u.stories = &UserStoryRelation{user: u, deps: u.deps}
	}
	return u.stories
}

// Save creates the user when new, updates it otherwise. A transport failure
// is kept on Errors and reported as false.
func (u *User) Save(ctx context.Context) bool {
	payload := map[string]any{"user": map[string]any(u.Attributes)}

	var err error
	var body []byte
	if u.persisted() {
		body, err = u.deps.Transport.Put(ctx, "/users/"+u.APIKey(), nil, payload, nil)
	} else {
		body, err = u.deps.Transport.Post(ctx, "/users", nil, payload, nil)
	}
	if err != nil {
		u.Errors = err.Error()
		return false
	}

	if attrs := decodeEnvelope(body, "user"); attrs != nil {
		u.Attributes = NewAttributes(attrs)
	}
	u.Errors = ""
	return true
}

// Destroy deletes the user. False for unpersisted users.
func (u *User) Destroy(ctx context.Context) bool {
	if !u.persisted() {
		return false
	}
	if _, err := u.deps.Transport.Delete(ctx, "/users/"+u.APIKey(), nil, nil); err != nil {
		u.Errors = err.Error()
		return false
	}
	return true
}

// Reload refetches the user and resets the lazily built relations.
func (u *User) Reload(ctx context.Context) error {
	fresh, err := NewUsers(u.deps).Find(ctx, u.ID(), nil)
	if err != nil {
		return err
	}
	u.Attributes = fresh.Attributes
	u.sets = nil
	u.stories = nil
	return nil
}

type Users struct {
	deps Deps
}

func NewUsers(deps Deps) *Users {
	return &Users{deps: deps}
}

func (s *Users) Find(ctx context.Context, id int, options map[string]any) (*User, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var out struct {
		User map[string]any `json:"user"`
	}
	path := fmt.Sprintf("/users/%d", id)
	if err := s.deps.Transport.GetJSON(ctx, path, options, nil, &out); err != nil {
		if errors.Is(err, constants.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrUserNotFound, id)
		}
		return nil, err
	}
	return NewUser(s.deps, out.User), nil
}

// Build constructs an unpersisted user.
func (s *Users) Build(attrs map[string]any) *User {
	return NewUser(s.deps, attrs)
}

// Create builds then saves.
func (s *Users) Create(ctx context.Context, attrs map[string]any) (*User, bool) {
	user := s.Build(attrs)
	return user, user.Save(ctx)
}
