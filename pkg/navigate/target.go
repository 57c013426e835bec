// Package navigate turns user intent on the mini graph card into navigation
// targets. It owns three decisions: the full-graph target for the "show full
// graph" action, the node-graph target for "show node graph", and the
// details-page target for a tapped element. Everything here is pure; the
// dispatch package delivers the result.
package navigate

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind is the destination view of a navigation target.
type Kind int

const (
	KindFullGraph Kind = iota
	KindNodeGraph
	KindDetails
)

// String makes Kind satisfy the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindFullGraph:
		return "full-graph"
	case KindNodeGraph:
		return "node-graph"
	case KindDetails:
		return "details"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, c := range []Kind{KindFullGraph, KindNodeGraph, KindDetails} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown target kind %q", text)
}

// Param is a single query parameter.
type Param struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Query is an ordered list of query parameters. Order is part of the
// target's identity so that identical inputs always render identical URLs.
type Query []Param

// Add appends a parameter.
func (q *Query) Add(key, value string) {
	*q = append(*q, Param{Key: key, Value: value})
}

// Get returns the first value for key, or "".
func (q Query) Get(key string) string {
	for _, p := range q {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	for _, p := range q {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Values converts the query to url.Values (order is lost).
func (q Query) Values() url.Values {
	v := make(url.Values, len(q))
	for _, p := range q {
		v.Add(p.Key, p.Value)
	}
	return v
}

// Encode renders the query in order.
func (q Query) Encode() string {
	parts := make([]string, 0, len(q))
	for _, p := range q {
		parts = append(parts, p.Key+"="+escapeQueryValue(p.Value))
	}
	return strings.Join(parts, "&")
}

// Target is a computed navigation destination.
type Target struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Path  string `json:"path" yaml:"path"`
	Query Query  `json:"query,omitempty" yaml:"query,omitempty"`
}

// URL renders the path and query as a single string.
func (t Target) URL() string {
	if len(t.Query) == 0 {
		return t.Path
	}
	return t.Path + "?" + t.Query.Encode()
}

// String returns the URL.
func (t Target) String() string {
	return t.URL()
}

const (
	unreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.!~*'()"
	// Query values keep the reserved characters a browser's encodeURI keeps,
	// minus the ones that would split or terminate the value.
	queryKeep = unreserved + ";,/?:@=$"
)

// escapeQueryValue percent-encodes s as UTF-8, leaving queryKeep intact.
func escapeQueryValue(s string) string {
	return percentEncode(s, queryKeep)
}

func percentEncode(s, keep string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x80 && strings.IndexByte(keep, c) >= 0 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0F])
	}
	return sb.String()
}
