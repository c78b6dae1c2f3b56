package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/openhura/hura.go/pkg/constants"
)

// Concept is a read-only authority entity linking related records.
type Concept struct {
	Attributes Attributes
}

func NewConcept(attrs map[string]any) *Concept {
	return &Concept{Attributes: NewAttributes(attrs)}
}

func (c *Concept) ID() int { return c.Attributes.Int("concept_id") }

type Concepts struct {
	deps Deps
}

func NewConcepts(deps Deps) *Concepts {
	return &Concepts{deps: deps}
}

func (c *Concepts) Find(ctx context.Context, id int, options map[string]any) (*Concept, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var out struct {
		Concept map[string]any `json:"concept"`
	}
	path := fmt.Sprintf("/concepts/%d", id)
	if err := c.deps.Transport.GetJSON(ctx, path, options, nil, &out); err != nil {
		if errors.Is(err, constants.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrConceptNotFound, id)
		}
		return nil, err
	}
	return NewConcept(out.Concept), nil
}
