package connectors

import (
	"net/url"
	"strings"
)

// Params is an ordered list of query parameters. Unlike url.Values it keeps
// insertion order, so the signed string is exactly the string that is sent.
type Params struct {
	keys   []string
	values []string
}

func NewParams() *Params {
	return &Params{}
}

// Add appends a key/value pair. Empty values are kept.
func (p *Params) Add(key, value string) *Params {
	p.keys = append(p.keys, key)
	p.values = append(p.values, value)
	return p
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Get returns the first value stored under key.
func (p *Params) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	for i, k := range p.keys {
		if k == key {
			return p.values[i], true
		}
	}
	return "", false
}

// Clone returns a copy so callers can extend it without touching the original.
func (p *Params) Clone() *Params {
	out := &Params{}
	if p == nil {
		return out
	}
	out.keys = append(out.keys, p.keys...)
	out.values = append(out.values, p.values...)
	return out
}

// Encode renders "k1=v1&k2=v2" in insertion order.
func (p *Params) Encode() string {
	if p.Len() == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[i]))
	}
	return b.String()
}
