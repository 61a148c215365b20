package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DependencySeparator joins dependency entries in the flat text column.
const DependencySeparator = ","

// DependencyList is an ordered sequence of related-task ids or free-text labels.
//
// It is stored as a single separator-joined TEXT value. Entries may not be
// empty and may not contain DependencySeparator; Validate rejects both, which
// keeps Encode/Decode an exact inverse pair.
//
// On the wire entries are accepted as JSON numbers or strings. Entries that
// are canonical base-10 integers are written back as numbers, so [3, 7, 12]
// round-trips as integers.
type DependencyList []string

// Encode flattens the list for storage. An empty list encodes to "".
func (d DependencyList) Encode() string {
	return strings.Join(d, DependencySeparator)
}

// DecodeDependencies reverses Encode. An empty stored value yields an empty,
// non-nil list rather than a list holding one empty string.
func DecodeDependencies(text string) DependencyList {
	if text == "" {
		return DependencyList{}
	}
	return DependencyList(strings.Split(text, DependencySeparator))
}

// Problems returns one message per entry that cannot be stored losslessly.
func (d DependencyList) Problems() []string {
	var problems []string
	for i, entry := range d {
		switch {
		case entry == "":
			problems = append(problems, fmt.Sprintf("dependencies[%d] must not be empty", i))
		case strings.Contains(entry, DependencySeparator):
			problems = append(problems, fmt.Sprintf("dependencies[%d] must not contain %q", i, DependencySeparator))
		}
	}
	return problems
}

// MarshalJSON writes integer entries as numbers and everything else as strings.
// A nil list is written as [].
func (d DependencyList) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(d))
	for _, entry := range d {
		if id, ok := canonicalInt(entry); ok {
			out = append(out, id)
			continue
		}
		out = append(out, entry)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts null or an array of integers and strings. Numbers
// that are not plain int64 literals (3.0, 1e1, 07) are rejected, so a number
// never comes back as a string.
func (d *DependencyList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = DependencyList{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return errors.New("dependencies must be an array of integers and strings")
	}

	list := make(DependencyList, 0, len(raw))
	for i, v := range raw {
		switch val := v.(type) {
		case json.Number:
			if _, ok := canonicalInt(val.String()); !ok {
				return fmt.Errorf("dependencies[%d]: %s is not an integer id", i, val)
			}
			list = append(list, val.String())
		case string:
			list = append(list, val)
		default:
			return fmt.Errorf("dependencies[%d] must be an integer or a string", i)
		}
	}

	*d = list
	return nil
}

// canonicalInt reports whether s is exactly the base-10 rendering of an int64.
// "007" and "+7" are labels, not ids, because they would not survive a round trip.
func canonicalInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, strconv.FormatInt(n, 10) == s
}
