package tmpl

import (
	"slices"
	"strings"

	"golang.org/x/net/html/atom"
)

// tagInfo describes how an HTML element's content and end tag are parsed.
type tagInfo struct {
	void     bool        // no content and no end tag
	raw      bool        // content is text up to the end tag
	verbatim bool        // whitespace in content is significant
	optional bool        // end tag may be omitted when the parent closes
	closedBy []atom.Atom // start tags that implicitly end this element
}

var tagTable = func() map[atom.Atom]tagInfo {
	t := make(map[atom.Atom]tagInfo)

	for _, a := range []atom.Atom{
		atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Keygen, atom.Link, atom.Meta, atom.Param, atom.Source,
		atom.Track, atom.Wbr,
	} {
		t[a] = tagInfo{void: true}
	}

	t[atom.Script] = tagInfo{raw: true, verbatim: true}
	t[atom.Style] = tagInfo{raw: true, verbatim: true}
	t[atom.Pre] = tagInfo{verbatim: true}
	t[atom.Textarea] = tagInfo{verbatim: true}

	t[atom.P] = tagInfo{optional: true, closedBy: []atom.Atom{
		atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Div,
		atom.Dl, atom.Fieldset, atom.Footer, atom.Form, atom.H1, atom.H2,
		atom.H3, atom.H4, atom.H5, atom.H6, atom.Header, atom.Hgroup, atom.Hr,
		atom.Main, atom.Nav, atom.Ol, atom.P, atom.Pre, atom.Section,
		atom.Table, atom.Ul,
	}}

	t[atom.Thead] = tagInfo{closedBy: []atom.Atom{atom.Tbody, atom.Tfoot}}
	t[atom.Tbody] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Tbody, atom.Tfoot}}
	t[atom.Tfoot] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Tbody}}
	t[atom.Tr] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Tr}}
	t[atom.Td] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Td, atom.Th}}
	t[atom.Th] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Td, atom.Th}}

	t[atom.Li] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Li}}
	t[atom.Dt] = tagInfo{closedBy: []atom.Atom{atom.Dt, atom.Dd}}
	t[atom.Dd] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Dt, atom.Dd}}

	ruby := []atom.Atom{atom.Rb, atom.Rt, atom.Rtc, atom.Rp}
	t[atom.Rb] = tagInfo{optional: true, closedBy: ruby}
	t[atom.Rt] = tagInfo{optional: true, closedBy: ruby}
	t[atom.Rtc] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Rb, atom.Rtc, atom.Rp}}
	t[atom.Rp] = tagInfo{optional: true, closedBy: ruby}

	t[atom.Optgroup] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Optgroup}}
	t[atom.Option] = tagInfo{optional: true, closedBy: []atom.Atom{atom.Option, atom.Optgroup}}

	return t
}()

// tagAtom returns the atom for an element name, or 0 if it is not a known
// HTML name.
func tagAtom(name string) atom.Atom {
	return atom.Lookup([]byte(strings.ToLower(name)))
}

func lookupTag(name string) tagInfo {
	return tagTable[tagAtom(name)]
}

// closedByTag reports whether a start tag named next implicitly ends the element
// described by t.
func (t tagInfo) closedByTag(next string) bool {
	a := tagAtom(next)
	if a == 0 {
		return false
	}

	return slices.Contains(t.closedBy, a)
}

func isTagStart(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isTagNameRune(r rune) bool {
	return isTagStart(r) || r >= '0' && r <= '9' || r == '-' || r == ':' ||
		r == '_' || r == '.'
}
