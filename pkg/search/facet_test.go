package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locationFacet() *Facet {
	return NewFacet("loc", []FacetValue{
		{Label: "Wellington", Count: 100},
		{Label: "Auckland", Count: 10},
		{Label: "Dunedin", Count: 5},
	})
}

func labels(values []FacetValue) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Label
	}
	return out
}

func TestFacetValuesSortByCount(t *testing.T) {
	got := locationFacet().Values("count")
	assert.Equal(t, []string{"Wellington", "Auckland", "Dunedin"}, labels(got))
}

func TestFacetValuesSortByIndex(t *testing.T) {
	got := locationFacet().Values("index")
	assert.Equal(t, []string{"Auckland", "Dunedin", "Wellington"}, labels(got))
}

func TestFacetValuesDefaultKeepsResponseOrder(t *testing.T) {
	got := locationFacet().Values("")
	assert.Equal(t, []string{"Wellington", "Auckland", "Dunedin"}, labels(got))
}

func TestFacetValuesSortDoesNotMutate(t *testing.T) {
	f := locationFacet()
	_ = f.Values("index")
	assert.Equal(t, []string{"Wellington", "Auckland", "Dunedin"}, labels(f.Values("")))
}

func TestParseFacetsPreservesOrder(t *testing.T) {
	raw := []byte(`{"category":{"Images":15,"Videos":3},"year":{"1900":7}}`)
	facets, err := parseFacets(raw)
	require.NoError(t, err)
	require.Len(t, facets, 2)

	assert.Equal(t, "category", facets[0].Name())
	assert.Equal(t, []FacetValue{{"Images", 15}, {"Videos", 3}}, facets[0].Values(""))
	assert.Equal(t, "year", facets[1].Name())
}

func TestParseFacetsNil(t *testing.T) {
	facets, err := parseFacets(nil)
	require.NoError(t, err)
	assert.Nil(t, facets)

	facets, err = parseFacets([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, facets)
}

func TestOrderFacetsUnknownSortLast(t *testing.T) {
	facets := []*Facet{
		NewFacet("zebra", nil),
		NewFacet("year", nil),
		NewFacet("category", nil),
	}
	ordered := orderFacets(facets, []string{"category", "year"})

	names := make([]string, len(ordered))
	for i, f := range ordered {
		names[i] = f.Name()
	}
	assert.Equal(t, []string{"category", "year", "zebra"}, names)
}
