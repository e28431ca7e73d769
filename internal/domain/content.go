// Package domain holds the core types of the moderation pipeline: content
// units read from the sources, attribute score maps, and flag records.
package domain

import (
	"fmt"
	"strconv"
)

// Category identifies the kind of source a content unit came from.
type Category string

const (
	// CategoryComment is a per-row comment table.
	CategoryComment Category = "comment"
	// CategoryContent is a per-row content/posts table.
	CategoryContent Category = "content"
	// CategoryMessage is a chat message collection.
	CategoryMessage Category = "msg"
)

type fieldKind int

const (
	fieldAbsent fieldKind = iota
	fieldString
	fieldInt
)

// FieldValue is an identifier value as read from a store: a string (including
// opaque store-native ids rendered as strings), an integer, or absent.
// Values keep their type until the flag record builder stringifies them.
// The zero value is absent.
type FieldValue struct {
	kind fieldKind
	str  string
	num  int64
}

// StringValue returns a present string field value.
func StringValue(s string) FieldValue {
	return FieldValue{kind: fieldString, str: s}
}

// IntValue returns a present integer field value.
func IntValue(n int64) FieldValue {
	return FieldValue{kind: fieldInt, num: n}
}

// AbsentValue returns an absent field value.
func AbsentValue() FieldValue {
	return FieldValue{}
}

// FieldValueOf converts a raw store value to a FieldValue. Store-specific
// types (e.g. object ids) must be converted by the reader before this point.
func FieldValueOf(v any) FieldValue {
	switch val := v.(type) {
	case nil:
		return AbsentValue()
	case string:
		return StringValue(val)
	case []byte:
		return StringValue(string(val))
	case int:
		return IntValue(int64(val))
	case int32:
		return IntValue(int64(val))
	case int64:
		return IntValue(val)
	default:
		return StringValue(fmt.Sprint(val))
	}
}

// IsAbsent reports whether the value is absent.
func (f FieldValue) IsAbsent() bool {
	return f.kind == fieldAbsent
}

// StringOrNil normalizes the value to a stringified-or-null representation.
// This is the serialization boundary; callers should not stringify earlier.
func (f FieldValue) StringOrNil() *string {
	switch f.kind {
	case fieldString:
		s := f.str
		return &s
	case fieldInt:
		s := strconv.FormatInt(f.num, 10)
		return &s
	default:
		return nil
	}
}

// Identity maps identity-field names to their raw values.
type Identity map[string]FieldValue

// Get returns the value for name, or an absent value if the field is missing.
func (id Identity) Get(name string) FieldValue {
	if id == nil {
		return AbsentValue()
	}
	if v, ok := id[name]; ok {
		return v
	}
	return AbsentValue()
}

// ContentUnit is one moderation-eligible item produced by a reader.
// Units are consumed immediately by the pipeline and never persisted.
type ContentUnit struct {
	// Source is the descriptor name the unit was read from.
	Source string
	// Category is the source category carried into flag records.
	Category Category
	// Identity holds the raw identifying values for the row.
	Identity Identity
	// Text is the primary content field value.
	Text string
	// SecondaryText is the author display name, when the source has one.
	SecondaryText string
	// SecondaryLabel names the field SecondaryText was read from
	// (e.g. "username" or "senderName").
	SecondaryLabel string
	// Group is the grouping identifier (e.g. chat group id), absent for
	// per-row sources.
	Group FieldValue
}
