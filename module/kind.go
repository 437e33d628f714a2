package module

import (
	"math"
	"strconv"
	"strings"

	"github.com/cshum/wandkit/magick"
)

// Kind of a primitive argument or result
type Kind int

// Kind enum
const (
	Any Kind = iota
	Image
	Int
	Uint
	Float
	String
	// Name accepts a string or a Symbol
	Name
	Bytes
	// Void results carry no value
	Void
)

var kindNames = [...]string{
	Any:    "any",
	Image:  "image",
	Int:    "int",
	Uint:   "uint",
	Float:  "float",
	String: "string",
	Name:   "name",
	Bytes:  "bytes",
	Void:   "void",
}

// String implements fmt.Stringer
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Symbol is a bare name argument e.g. lanczos in fit(img, 100, 100, lanczos)
type Symbol string

// check converts v to the Go value of kind k
func check(k Kind, v any) (any, bool) {
	switch k {
	case Any:
		return v, true
	case Image:
		w, ok := v.(*magick.Wand)
		return w, ok && w != nil
	case Int:
		return toInt(v)
	case Uint:
		i, ok := toInt(v)
		if !ok || i < 0 {
			return nil, false
		}
		return i, true
	case Float:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		}
		if i, ok := toInt(v); ok {
			return float64(i), true
		}
	case String:
		s, ok := v.(string)
		return s, ok
	case Name:
		switch s := v.(type) {
		case string:
			return s, true
		case Symbol:
			return string(s), true
		}
	case Bytes:
		switch b := v.(type) {
		case []byte:
			return b, true
		case string:
			return []byte(b), true
		}
	}
	return nil, false
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// Coerce converts textual argument into the Go value of kind k,
// for hosts that only carry text such as URL paths
func Coerce(k Kind, text string) (any, error) {
	switch k {
	case Int, Uint:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return nil, err
		}
		return i, nil
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	case Name:
		return Symbol(text), nil
	case Bytes:
		return []byte(text), nil
	}
	return text, nil
}
