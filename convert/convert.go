// Package convert coerces loosely-typed values, such as those carried
// by a Future[any], into concrete types.
package convert

import (
	"encoding/json"
	"fmt"

	"kr.dev/errorfmt"
)

// A Converter converts itself into the value pointed to by dst.
type Converter interface {
	ConvertTo(dst any) error
}

// An Error reports a value that could not be coerced to the requested
// type.
type Error struct {
	From string
	To   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

// To coerces v to type U. It tries, in order: a direct type assertion,
// the Converter interface, and a JSON round-trip for struct-ish and
// map-ish values. Failure of all three returns an *Error.
func To[U any](v any) (u U, err error) {
	defer errorfmt.Handlef("convert: %w", &err)

	if u, ok := v.(U); ok {
		return u, nil
	}
	if c, ok := v.(Converter); ok {
		if err := c.ConvertTo(&u); err != nil {
			return u, err
		}
		return u, nil
	}
	b, jerr := json.Marshal(v)
	if jerr == nil && json.Unmarshal(b, &u) == nil {
		return u, nil
	}
	return u, &Error{
		From: fmt.Sprintf("%T", v),
		To:   fmt.Sprintf("%T", u),
	}
}

// MustTo is To, panicking on conversion failure.
func MustTo[U any](v any) U {
	u, err := To[U](v)
	if err != nil {
		panic(err)
	}
	return u
}
