package tmpl

import (
	"encoding/json"
	"iter"
	"maps"
	"slices"
	"strconv"
)

// Type is the code identifying the kind of a [Descriptor].
//
// The numeric values are part of the compiled format consumed by renderers
// and must not change.
type Type int

const (
	TypeText         Type = iota + 1 // text
	TypeInterpolator                 // interpolator
	TypeTriple                       // triple
	TypeSection                      // section
	TypeInverted                     // inverted
	TypeClosing                      // closing
	TypeElement                      // element
	TypePartial                      // partial
	TypeComment                      // comment
	TypeDelimChange                  // delimchange
	TypeMustache                     // mustache
	TypeTag                          // tag
	TypeAttribute                    // attribute
	TypeClosingTag                   // closingtag
	TypeComponent                    // component
)

var typeName = [...]string{
	TypeText:         "text",
	TypeInterpolator: "interpolator",
	TypeTriple:       "triple",
	TypeSection:      "section",
	TypeInverted:     "inverted",
	TypeClosing:      "closing",
	TypeElement:      "element",
	TypePartial:      "partial",
	TypeComment:      "comment",
	TypeDelimChange:  "delimchange",
	TypeMustache:     "mustache",
	TypeTag:          "tag",
	TypeAttribute:    "attribute",
	TypeClosingTag:   "closingtag",
	TypeComponent:    "component",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeName) {
		return typeName[t]
	}

	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Descriptor is one node of a compiled template.
//
// Only the fields relevant to Type are set. The compact serialized form keys
// each field by a single letter; see [Descriptor.ToNative].
type Descriptor struct {
	Type       Type
	Text       string       // TypeText content
	Reference  string       // r
	Expression *Expression  // x
	Fragment   Fragment     // f
	Element    string       // e
	Attributes []Attribute  // a
	Inverted   bool         // n
	Index      string       // i
	Proxies    []EventProxy // v
	IntroOutro *Proxy       // t0
	Intro      *Proxy       // t1
	Outro      *Proxy       // t2
	Decorator  *Proxy       // o
	Doctype    bool         // y
	Content    bool         // c
}

// Fragment is an ordered sequence of descriptors in render order.
type Fragment []*Descriptor

// Attribute is a single element attribute.
type Attribute struct {
	Name  string
	Value Fragment
	Bare  bool // no value, as in <input disabled>
}

// EventProxy binds a DOM event to a proxy event fired by the renderer.
type EventProxy struct {
	Event string
	Proxy *Proxy
}

// Proxy describes a proxy event, transition, or decorator invocation.
//
// Name is the static name; NameFragment replaces it when the name itself
// contains mustaches. Args holds statically decoded arguments and Dynamic holds
// arguments the renderer must evaluate.
type Proxy struct {
	Name         string
	NameFragment Fragment
	Args         []any
	Dynamic      Fragment
}

// Expression is a compiled binding expression.
//
// Source is the expression body with each referenced keypath replaced by a
// positional placeholder ${i} indexing References.
type Expression struct {
	ID         string
	References []string
	Source     string
}

// Result is the output of [Parse].
//
// Partials is nil unless the template defines inline partials, in which case
// the result serializes in compound form {main, partials}.
type Result struct {
	Main        Fragment
	Partials    map[string]Fragment
	Expressions map[string]*Expression
}

// Compound reports whether the result carries inline partials.
func (r *Result) Compound() bool { return r.Partials != nil }

// ToNative converts the result into plain maps and slices keyed the same way
// as the compact serialized form.
func (r *Result) ToNative() any {
	if !r.Compound() {
		return r.Main.ToNative()
	}

	partials := make(map[string]any, len(r.Partials))
	for name, frag := range r.Partials {
		partials[name] = frag.ToNative()
	}

	return map[string]any{
		"main":     r.Main.ToNative(),
		"partials": partials,
	}
}

// MarshalJSON implements [json.Marshaler].
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToNative())
}

// MarshalYAML implements the goccy/go-yaml InterfaceMarshaler.
func (r *Result) MarshalYAML() (any, error) {
	return r.ToNative(), nil
}

// PartialRefs returns the sorted names of partials referenced by the result
// that are not defined inline.
func (r *Result) PartialRefs() []string {
	seen := make(map[string]struct{})

	collect := func(f Fragment) {
		for d := range f.All() {
			if d.Type != TypePartial {
				continue
			}

			if _, ok := r.Partials[d.Reference]; !ok {
				seen[d.Reference] = struct{}{}
			}
		}
	}

	collect(r.Main)

	for _, frag := range r.Partials {
		collect(frag)
	}

	return slices.Sorted(maps.Keys(seen))
}

// All returns a depth-first iterator over every descriptor in f, including
// those nested in attribute values and proxy arguments.
func (f Fragment) All() iter.Seq[*Descriptor] {
	return func(yield func(*Descriptor) bool) {
		f.walk(yield)
	}
}

func (f Fragment) walk(yield func(*Descriptor) bool) bool {
	for _, d := range f {
		if !yield(d) {
			return false
		}

		for _, a := range d.Attributes {
			if !a.Value.walk(yield) {
				return false
			}
		}

		for _, p := range d.proxies() {
			if !p.NameFragment.walk(yield) || !p.Dynamic.walk(yield) {
				return false
			}
		}

		if !d.Fragment.walk(yield) {
			return false
		}
	}

	return true
}

func (d *Descriptor) proxies() []*Proxy {
	var ps []*Proxy

	for _, ev := range d.Proxies {
		ps = append(ps, ev.Proxy)
	}

	for _, p := range []*Proxy{d.IntroOutro, d.Intro, d.Outro, d.Decorator} {
		if p != nil {
			ps = append(ps, p)
		}
	}

	return ps
}

// ToNative converts f into a slice of compact descriptors. Text descriptors
// become bare strings.
func (f Fragment) ToNative() []any {
	out := make([]any, 0, len(f))
	for _, d := range f {
		out = append(out, d.ToNative())
	}

	return out
}

// ToNative converts d into its compact keyed form.
func (d *Descriptor) ToNative() any {
	if d.Type == TypeText {
		return d.Text
	}

	m := map[string]any{"t": int(d.Type)}

	if d.Reference != "" {
		m["r"] = d.Reference
	}

	if d.Expression != nil {
		m["x"] = d.Expression.ToNative()
	}

	if d.Element != "" {
		m["e"] = d.Element
	}

	if len(d.Attributes) > 0 {
		attrs := make(map[string]any, len(d.Attributes))
		for _, a := range d.Attributes {
			attrs[a.Name] = a.toNative()
		}

		m["a"] = attrs
	}

	if d.Inverted {
		m["n"] = true
	}

	if d.Index != "" {
		m["i"] = d.Index
	}

	if len(d.Proxies) > 0 {
		events := make(map[string]any, len(d.Proxies))
		for _, ev := range d.Proxies {
			events[ev.Event] = ev.Proxy.ToNative()
		}

		m["v"] = events
	}

	for key, p := range map[string]*Proxy{
		"t0": d.IntroOutro,
		"t1": d.Intro,
		"t2": d.Outro,
		"o":  d.Decorator,
	} {
		if p != nil {
			m[key] = p.ToNative()
		}
	}

	if d.Doctype {
		m["y"] = true
	}

	if d.Content {
		m["c"] = true
	}

	if d.Fragment != nil {
		m["f"] = d.Fragment.ToNative()
	}

	return m
}

func (a Attribute) toNative() any {
	switch {
	case a.Bare:
		return nil
	case len(a.Value) == 0:
		return ""
	case len(a.Value) == 1 && a.Value[0].Type == TypeText:
		return a.Value[0].Text
	default:
		return a.Value.ToNative()
	}
}

// ToNative converts p into its compact form: the bare name when p has no
// arguments, otherwise a map with keys n, a and d.
func (p *Proxy) ToNative() any {
	if p.NameFragment == nil && p.Args == nil && p.Dynamic == nil {
		return p.Name
	}

	m := make(map[string]any, 3)

	if p.NameFragment != nil {
		m["n"] = p.NameFragment.ToNative()
	} else {
		m["n"] = p.Name
	}

	if p.Args != nil {
		m["a"] = p.Args
	}

	if p.Dynamic != nil {
		m["d"] = p.Dynamic.ToNative()
	}

	return m
}

// ToNative converts x into its compact form {r, s}.
func (x *Expression) ToNative() any {
	refs := make([]any, len(x.References))
	for i, r := range x.References {
		refs[i] = r
	}

	return map[string]any{"r": refs, "s": x.Source}
}

// text returns a text descriptor.
func text(s string) *Descriptor {
	return &Descriptor{Type: TypeText, Text: s}
}

// push appends nodes to f, merging adjacent text descriptors.
func (f Fragment) push(nodes ...*Descriptor) Fragment {
	for _, n := range nodes {
		if n.Type == TypeText {
			if n.Text == "" {
				continue
			}

			if last := len(f) - 1; last >= 0 && f[last].Type == TypeText {
				f[last] = text(f[last].Text + n.Text)

				continue
			}
		}

		f = append(f, n)
	}

	return f
}
