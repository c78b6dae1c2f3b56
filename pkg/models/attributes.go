// Package models holds the typed wrappers over API response objects and their
// find/save/destroy verbs. Read operations return typed errors; write
// operations return a boolean and keep the failure message on the entity.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Attributes is an entity's attribute map with canonical string keys.
type Attributes map[string]any

func NewAttributes(raw map[string]any) Attributes {
	if raw == nil {
		return Attributes{}
	}
	return Attributes(raw)
}

// Get returns the raw attribute value and whether it exists.
func (a Attributes) Get(name string) (any, bool) {
	v, ok := a[name]
	return v, ok
}

func (a Attributes) String(name string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (a Attributes) Int(name string) int {
	switch t := a[name].(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return 0
}

func (a Attributes) Bool(name string) bool {
	switch t := a[name].(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

// maps reads a list-of-objects attribute, skipping malformed entries.
func (a Attributes) maps(name string) []map[string]any {
	list, ok := a[name].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func (a Attributes) Strings(name string) []string {
	switch t := a[name].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
