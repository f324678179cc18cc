package query

import (
	"merot-portal/pkg/api"
	"strings"
)

// Fields holds the filterable values of a single row. String fields map to
// string, priority maps to int.
type Fields map[string]any

type Filter interface {
	Matches(fields Fields) bool
}

type AndFilter struct {
	filters []Filter
}

func (f *AndFilter) Matches(fields Fields) bool {
	for _, filter := range f.filters {
		if !filter.Matches(fields) {
			return false
		}
	}
	return true
}

type OrFilter struct {
	filters []Filter
}

func (f *OrFilter) Matches(fields Fields) bool {
	for _, filter := range f.filters {
		if filter.Matches(fields) {
			return true
		}
	}
	return false
}

type NotFilter struct {
	filter Filter
}

func (f *NotFilter) Matches(fields Fields) bool {
	return !f.filter.Matches(fields)
}

func lookupString(fields Fields, name string) (string, bool) {
	s, ok := fields[name].(string)
	return s, ok
}

func lookupInt(fields Fields, name string) (int, bool) {
	i, ok := fields[name].(int)
	return i, ok
}

// SubstringFilter matches case-insensitively.
type SubstringFilter struct {
	field  string
	substr string
}

func (f *SubstringFilter) Matches(fields Fields) bool {
	s, ok := lookupString(fields, f.field)
	return ok && strings.Contains(strings.ToLower(s), strings.ToLower(f.substr))
}

type StringEqFilter struct {
	field string
	value string
}

func (f *StringEqFilter) Matches(fields Fields) bool {
	s, ok := lookupString(fields, f.field)
	return ok && s == f.value
}

type StringLtFilter struct {
	field string
	value string
}

func (f *StringLtFilter) Matches(fields Fields) bool {
	s, ok := lookupString(fields, f.field)
	return ok && s < f.value
}

type StringGtFilter struct {
	field string
	value string
}

func (f *StringGtFilter) Matches(fields Fields) bool {
	s, ok := lookupString(fields, f.field)
	return ok && s > f.value
}

type IntEqFilter struct {
	field string
	value int
}

func (f *IntEqFilter) Matches(fields Fields) bool {
	i, ok := lookupInt(fields, f.field)
	return ok && i == f.value
}

type IntLtFilter struct {
	field string
	value int
}

func (f *IntLtFilter) Matches(fields Fields) bool {
	i, ok := lookupInt(fields, f.field)
	return ok && i < f.value
}

type IntGtFilter struct {
	field string
	value int
}

func (f *IntGtFilter) Matches(fields Fields) bool {
	i, ok := lookupInt(fields, f.field)
	return ok && i > f.value
}

// ReviewItemFields exposes a review queue entry. Status is the annotation's.
func ReviewItemFields(item api.ReviewItem) Fields {
	return Fields{
		"type":      item.Task.TaskType,
		"status":    item.Annotation.Status,
		"project":   item.Task.Project,
		"priority":  item.Task.Priority,
		"annotator": item.Annotator,
	}
}

// TaskFields exposes an assigned task. Tasks are always the caller's own, so
// annotator is left unset and never matches.
func TaskFields(task api.Task) Fields {
	return Fields{
		"type":     task.TaskType,
		"status":   task.Status,
		"project":  task.Project,
		"priority": task.Priority,
	}
}

// Apply keeps the elements whose fields match. A nil filter keeps everything.
func Apply[T any](filter Filter, items []T, fields func(T) Fields) []T {
	if filter == nil {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if filter.Matches(fields(item)) {
			out = append(out, item)
		}
	}
	return out
}
