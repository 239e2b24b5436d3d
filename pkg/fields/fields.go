// Package fields resolves single typed properties of collection records.
//
// Each property kind is a Go type that knows its own wire shape and
// invariants (via Validate); a Descriptor pairs a property id with that
// type so one generic Fetch serves every kind.
package fields

import (
	"context"
	"errors"

	"github.com/Sternrassler/stage-sync/pkg/client"
)

// Value is the constraint every property shape satisfies.
type Value interface {
	Number | Title | MultiSelect
	client.Validator
}

// Getter is the transport a property lookup is issued on.
type Getter interface {
	Get(ctx context.Context, segments ...string) (*client.Response, error)
}

// Descriptor names a record property and the shape its value decodes into.
type Descriptor[T Value] struct {
	PropertyID string
}

// Default property descriptors of a stage collection.
var (
	ID   = Descriptor[Number]{PropertyID: "ID"}
	Name = Descriptor[Title]{PropertyID: "Name"}
	Tags = Descriptor[MultiSelect]{PropertyID: "Tags"}
)

// Fetch retrieves property d of recordID with one GET and decodes it as T.
func Fetch[T Value](ctx context.Context, g Getter, d Descriptor[T], recordID string) (T, error) {
	resp, err := g.Get(ctx, "pages", recordID, "properties", d.PropertyID)
	if err != nil {
		var zero T
		return zero, err
	}
	return client.Decode[T](resp)
}

// Number is a number property.
type Number struct {
	Number *int32 `json:"number"`
}

// Validate rejects an unset number.
func (n Number) Validate() error {
	if n.Number == nil {
		return errors.New("number is null")
	}
	return nil
}

// Value returns the number; zero if unset.
func (n Number) Value() int32 {
	if n.Number == nil {
		return 0
	}
	return *n.Number
}

// Title is a paginated title property made of rich text segments.
type Title struct {
	Results []TitleResult `json:"results"`
}

// TitleResult is one title segment.
type TitleResult struct {
	Title Text `json:"title"`
}

// Text is the plain text of a rich text segment.
type Text struct {
	PlainText string `json:"plain_text"`
}

// Validate rejects a title without segments.
func (t Title) Validate() error {
	if len(t.Results) == 0 {
		return errors.New("title has no segments")
	}
	return nil
}

// Text returns the first segment. Later segments are dropped.
func (t Title) Text() string {
	if len(t.Results) == 0 {
		return ""
	}
	return t.Results[0].Title.PlainText
}

// MultiSelect is a multi-select property.
type MultiSelect struct {
	MultiSelect []Option `json:"multi_select"`
}

// Option is one selected option.
type Option struct {
	Name string `json:"name"`
}

// Validate accepts any option list, including an empty one, but rejects a
// missing or null multi_select.
func (m MultiSelect) Validate() error {
	if m.MultiSelect == nil {
		return errors.New("multi_select is missing")
	}
	return nil
}

// Names returns the option names with duplicates removed, in first-seen order.
func (m MultiSelect) Names() []string {
	names := make([]string, 0, len(m.MultiSelect))
	seen := make(map[string]struct{}, len(m.MultiSelect))
	for _, option := range m.MultiSelect {
		if _, ok := seen[option.Name]; ok {
			continue
		}
		seen[option.Name] = struct{}{}
		names = append(names, option.Name)
	}
	return names
}
