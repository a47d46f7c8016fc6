// Package tmpl compiles mustache templates with embedded HTML into compact
// descriptor trees.
//
// A template mixes markup with mustaches:
//
//	<ul>
//	  {{#each items:i}}
//	    <li class="{{ i % 2 ? 'odd' : 'even' }}">{{name}}</li>
//	  {{/each}}
//	</ul>
//
// [Parse] runs a recursive-descent parser over the template. At each position
// a fixed chain of converters is tried in order: mustache, comment, element,
// then text. The first converter that recognizes the input consumes it.
// Sections and elements recurse through the same chain for their bodies.
//
// The result is a [Fragment] of [Descriptor] nodes. [Result.ToNative] and the
// JSON and YAML marshalers emit the compact keyed form consumed by renderers:
//
//	[{"t":7,"e":"ul","f":[{"t":4,"r":"items","i":"i","f":[...]}]}]
//
// Mustache contents that are not plain keypaths are compiled into expressions
// whose referenced keypaths are replaced by positional placeholders:
//
//	{{ a + b.c }}  =>  {"t":2,"x":{"r":["a","b.c"],"s":"${0} + ${1}"}}
//
// Identical expressions within one call to Parse share a single [Expression].
//
// # Inline partials
//
// A template may define named partials in place:
//
//	<!-- {{>row}} -->
//	<tr><td>{{name}}</td></tr>
//	<!-- {{/row}} -->
//
// Each definition is excised from the main template and compiled on its own.
// The result then serializes as {"main": [...], "partials": {"row": [...]}}.
//
// # Dialect
//
// [Options] select custom delimiters, element and event attribute
// sanitization, comment stripping, and whether script and style bodies may
// contain mustaches. Options decode from YAML or JSON with [DecodeOptions].
//
// Parse is safe for concurrent use. Each call owns its parser state.
package tmpl
