package transcript

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/rhuss/askdata/pkg/frame"
)

// Kind discriminates yielded values.
type Kind int

const (
	KindText Kind = iota
	KindTable
	KindImage
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindImage:
		return "image"
	case KindMap:
		return "map"
	default:
		return "text"
	}
}

// Item is one classified value yielded by generated code.
type Item struct {
	Kind  Kind
	Text  string
	Table *frame.Frame
}

// pngURL keeps the historical character class: "$-_" is the range
// U+0024..U+005F, so most punctuation, digits and upper case letters
// match before the ".png" suffix.
var pngURL = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\$\$,]|(?:%[0-9a-fA-F][0-9a-fA-F]))+\.png`)

// IsPNGURL reports whether s contains a URL ending in .png.
func IsPNGURL(s string) bool {
	return pngURL.MatchString(s)
}

// WrapPNG replaces every PNG URL in s with a markdown image.
func WrapPNG(s string) string {
	return pngURL.ReplaceAllString(s, "![image]($0)")
}

// IsIframe reports whether s is an HTML iframe, as produced by the minimap
// tool.
func IsIframe(s string) bool {
	return strings.Contains(strings.ToLower(s), "<iframe")
}

// Classify turns a yielded value into an Item.
func Classify(v any) Item {
	switch t := v.(type) {
	case *frame.Frame:
		if t == nil {
			return Item{Kind: KindText, Text: "null"}
		}
		return Item{Kind: KindTable, Table: t}
	case frame.Frame:
		return Item{Kind: KindTable, Table: &t}
	case string:
		switch {
		case IsPNGURL(t):
			return Item{Kind: KindImage, Text: t}
		case IsIframe(t):
			return Item{Kind: KindMap, Text: t}
		}
		return Item{Kind: KindText, Text: t}
	}
	return Item{Kind: KindText, Text: Stringify(v)}
}

// Stringify renders a non-table value as text. Errors render as their
// message; maps, slices and structs as JSON.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
