package privatemedia

import (
	"iter"
	"net/textproto"
	"slices"
)

// Headers is a string map that remembers insertion order. Some front-end
// proxies are sensitive to header order, so responses keep the order in which
// the backend set them. The zero value is ready to use.
type Headers struct {
	keys   []string
	values map[string]string
}

// Set stores value under the canonical form of key. Replacing an existing key
// keeps its original position.
func (h *Headers) Set(key, value string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

func (h *Headers) Get(key string) string {
	return h.values[textproto.CanonicalMIMEHeaderKey(key)]
}

func (h *Headers) Has(key string) bool {
	_, ok := h.values[textproto.CanonicalMIMEHeaderKey(key)]
	return ok
}

func (h *Headers) Del(key string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	h.keys = slices.DeleteFunc(h.keys, func(k string) bool { return k == key })
}

func (h *Headers) Len() int {
	return len(h.keys)
}

// Keys returns the header names in insertion order.
func (h *Headers) Keys() []string {
	return slices.Clone(h.keys)
}

// All iterates over the headers in insertion order.
func (h *Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range h.keys {
			if !yield(k, h.values[k]) {
				return
			}
		}
	}
}
