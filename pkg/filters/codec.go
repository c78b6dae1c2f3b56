package filters

import (
	"strings"

	"github.com/openhura/hura.go/internal/deepmerge"
	"github.com/openhura/hura.go/pkg/constants"
)

// Config carries the codec-relevant settings.
type Config struct {
	// TextSuffix marks filters folded into the free text query.
	TextSuffix string
	// NonTextFields lists filter names that keep the suffix but stay
	// structural.
	NonTextFields []string
	PerPage       int
	FacetsPerPage int
}

func (c Config) textSuffix() string {
	if c.TextSuffix == "" {
		return constants.DefaultTextSuffix
	}
	return c.TextSuffix
}

func (c Config) perPage() int {
	if c.PerPage == 0 {
		return constants.DefaultPerPage
	}
	return c.PerPage
}

func (c Config) facetsPerPage() int {
	if c.FacetsPerPage == 0 {
		return constants.DefaultFacetsPerPage
	}
	return c.FacetsPerPage
}

// CanonicalQuery is the decoded view of one search: structural constraints,
// free text, paging and facet parameters.
type CanonicalQuery struct {
	And         Set
	Without     Set
	Text        string
	QueryFields []string
	Page        int
	PerPage     int
	Sort        string
	Direction   string
	// RecordType is 0 for items, RecordTypeAll for "all", anything else for
	// headings.
	RecordType    int
	Facets        []string
	FacetsPerPage int
}

// Scope resolves which filter scope the query reads from.
func (q *CanonicalQuery) Scope() Scope {
	if q.RecordType == 0 {
		return ScopeItems
	}
	return ScopeHeadings
}

// RecordTypeParam renders the record type in wire form.
func (q *CanonicalQuery) RecordTypeParam() any {
	if q.RecordType == RecordTypeAll {
		return "all"
	}
	return q.RecordType
}

// APIParams projects the query onto the parameter map sent to the API. Blank
// values are omitted; per_page is always kept since zero rows is meaningful.
func (q *CanonicalQuery) APIParams() map[string]any {
	params := map[string]any{
		"page":        q.Page,
		"per_page":    q.PerPage,
		"record_type": q.RecordTypeParam(),
	}
	if len(q.And) > 0 {
		params["and"] = map[string]any(q.And.Copy())
	}
	if len(q.Without) > 0 {
		params["without"] = map[string]any(q.Without.Copy())
	}
	if q.Text != "" {
		params["text"] = q.Text
	}
	if len(q.QueryFields) > 0 {
		params["query_fields"] = strings.Join(q.QueryFields, ",")
	}
	if q.Sort != "" {
		params["sort"] = q.Sort
		params["direction"] = q.Direction
	}
	if len(q.Facets) > 0 {
		params["facets"] = strings.Join(q.Facets, ",")
		params["facets_per_page"] = q.FacetsPerPage
	}
	return params
}

// Params wraps one raw nested filter structure and decodes it on demand.
type Params struct {
	raw map[string]any
	cfg Config

	canonical *CanonicalQuery
}

func NewParams(input map[string]any, cfg Config) *Params {
	if input == nil {
		input = map[string]any{}
	}
	return &Params{raw: input, cfg: cfg}
}

// Raw exposes the original input structure.
func (p *Params) Raw() map[string]any { return p.raw }

// ScopeFilters merges the unlocked and locked buckets for a scope. Locked
// values merge second so duplicated filters accumulate per the deepmerge
// list rule.
func (p *Params) ScopeFilters(scope Scope) Set {
	unlockedName, lockedName := scope.Buckets()
	unlocked := bucketSet(p.raw, unlockedName)
	locked := bucketSet(p.raw, lockedName)
	return Set(deepmerge.Merge(map[string]any(unlocked), map[string]any(locked)))
}

// Partition splits a merged filter set into positive constraints, negative
// constraints and extracted text values with their query fields.
func (p *Params) Partition(set Set) (and, without Set, textValues, queryFields []string) {
	and = Set{}
	without = Set{}
	suffix := p.cfg.textSuffix()

	for name, value := range set {
		if strings.HasPrefix(name, "-") {
			without[strings.TrimPrefix(name, "-")] = value
			continue
		}
		if strings.HasSuffix(name, suffix) && !contains(p.cfg.NonTextFields, name) {
			for _, v := range toList(value) {
				if s := toString(v); s != "" {
					textValues = append(textValues, s)
				}
			}
			queryFields = append(queryFields, strings.TrimSuffix(name, suffix))
			continue
		}
		and[name] = value
	}
	return and, without, textValues, queryFields
}

// Canonical decodes the raw structure once and caches the result.
func (p *Params) Canonical() *CanonicalQuery {
	if p.canonical != nil {
		return p.canonical
	}

	q := &CanonicalQuery{
		Page:          toInt(p.raw["page"], 1),
		PerPage:       toInt(p.raw["per_page"], p.cfg.perPage()),
		Sort:          toString(p.raw["sort"]),
		RecordType:    parseRecordType(p.raw["record_type"]),
		Facets:        toStrings(p.raw["facets"]),
		FacetsPerPage: toInt(p.raw["facets_per_page"], p.cfg.facetsPerPage()),
	}
	if q.Sort != "" {
		q.Direction = toString(p.raw["direction"])
		if q.Direction == "" {
			q.Direction = "asc"
		}
	}

	and, without, textValues, queryFields := p.Partition(p.ScopeFilters(q.Scope()))
	q.And = and
	q.Without = without
	q.QueryFields = queryFields

	// Explicit text first, extracted text filter values after.
	parts := []string{}
	if text := toString(p.raw["text"]); text != "" {
		parts = append(parts, text)
	}
	parts = append(parts, textValues...)
	q.Text = strings.Join(parts, " ")

	p.canonical = q
	return q
}

func parseRecordType(v any) int {
	if s, ok := v.(string); ok && strings.EqualFold(strings.TrimSpace(s), "all") {
		return RecordTypeAll
	}
	return toInt(v, 0)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
