package search

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// FacetValue is one label/count pair inside a facet.
type FacetValue struct {
	Label string
	Count int
}

// Facet holds a facet name and its value counts in response order.
type Facet struct {
	name   string
	values []FacetValue
}

func NewFacet(name string, values []FacetValue) *Facet {
	return &Facet{name: name, values: values}
}

func (f *Facet) Name() string { return f.name }

// Values returns the value counts ordered per sortMode: "index" sorts
// alphabetically by label, "count" descending by count, anything else keeps
// response order. The sort runs on every call so different orders can be
// requested from the same facet.
func (f *Facet) Values(sortMode string) []FacetValue {
	out := append([]FacetValue(nil), f.values...)
	switch sortMode {
	case "index":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	case "count":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	}
	return out
}

// parseFacets decodes a JSON object of facet groups while preserving the
// response order of both groups and their values, which map decoding would
// destroy.
func parseFacets(raw json.RawMessage) ([]*Facet, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var facets []*Facet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected facet name token %v", tok)
		}

		values, err := parseFacetValues(dec)
		if err != nil {
			return nil, err
		}
		facets = append(facets, NewFacet(name, values))
	}
	return facets, nil
}

func parseFacetValues(dec *json.Decoder) ([]FacetValue, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var values []FacetValue
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		label, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected facet value token %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		count, ok := tok.(float64)
		if !ok {
			return nil, fmt.Errorf("facet count for %q is not numeric", label)
		}
		values = append(values, FacetValue{Label: label, Count: int(count)})
	}

	if _, err := dec.Token(); err != nil { // closing brace
		return nil, err
	}
	return values, nil
}

func expectDelim(dec *json.Decoder, want rune) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || rune(d) != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// orderFacets sorts facet groups by their position in the configured order
// list. Unknown facets sort last, keeping their relative response order.
func orderFacets(facets []*Facet, order []string) []*Facet {
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}

	out := append([]*Facet(nil), facets...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, iOK := position[out[i].Name()]
		pj, jOK := position[out[j].Name()]
		if iOK && jOK {
			return pi < pj
		}
		return iOK && !jOK
	})
	return out
}
