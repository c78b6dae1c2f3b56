package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/openhura/hura.go/pkg/constants"
)

// Record is a read-only search result object. Unlike Item, access to an
// unknown attribute is an error rather than a zero value.
type Record struct {
	Attributes Attributes
}

func NewRecord(attrs map[string]any) *Record {
	return &Record{Attributes: NewAttributes(attrs)}
}

func (r *Record) ID() int { return r.Attributes.Int("id") }

// Attribute returns the named attribute, or ErrNoSuchAttribute when the
// record does not carry it.
func (r *Record) Attribute(name string) (any, error) {
	v, ok := r.Attributes.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchAttribute, name)
	}
	return v, nil
}

// Records exposes the record read endpoints.
type Records struct {
	deps Deps
}

func NewRecords(deps Deps) *Records {
	return &Records{deps: deps}
}

// Find fetches one record by its numeric id.
func (r *Records) Find(ctx context.Context, id int, options map[string]any) (*Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var out struct {
		Record map[string]any `json:"record"`
	}
	path := fmt.Sprintf("/records/%d", id)
	if err := r.deps.Transport.GetJSON(ctx, path, options, nil, &out); err != nil {
		if errors.Is(err, constants.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
		}
		return nil, err
	}
	return NewRecord(out.Record), nil
}

// FindMultiple fetches several records in one call. Invalid ids are skipped.
func (r *Records) FindMultiple(ctx context.Context, ids []int) ([]*Record, error) {
	valid := make([]any, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*Record{}, nil
	}

	var out struct {
		Records []map[string]any `json:"records"`
	}
	err := r.deps.Transport.GetJSON(ctx, "/records/multiple", map[string]any{"record_ids": valid}, nil, &out)
	if err != nil {
		return nil, err
	}
	return newRecords(out.Records), nil
}

// MoreLikeThis fetches records similar to the given one.
func (r *Records) MoreLikeThis(ctx context.Context, id int, options map[string]any) ([]*Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var out struct {
		Records []map[string]any `json:"records"`
	}
	path := fmt.Sprintf("/records/%d/more_like_this", id)
	if err := r.deps.Transport.GetJSON(ctx, path, options, nil, &out); err != nil {
		if errors.Is(err, constants.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
		}
		return nil, err
	}
	return newRecords(out.Records), nil
}

func newRecords(raw []map[string]any) []*Record {
	records := make([]*Record, 0, len(raw))
	for _, attrs := range raw {
		records = append(records, NewRecord(attrs))
	}
	return records
}
