package tmpl

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/stache/log"
)

// DefaultSanitizeElements are the elements dropped when sanitizing without an
// explicit blacklist.
var DefaultSanitizeElements = strings.Fields(
	"applet base basefont body frame frameset head html isindex link meta " +
		"noframes noscript object param script style title",
)

// Options are the recognized compile options.
//
// The zero value selects the defaults. Options can be decoded from YAML or
// JSON:
//
//	delimiters: ["<%", "%>"]
//	sanitize: {elements: [script], eventAttributes: true}
//	stripComments: false
type Options struct {
	Delimiters         []string    `json:"delimiters,omitempty"         yaml:"delimiters,omitempty"`
	TripleDelimiters   []string    `json:"tripleDelimiters,omitempty"   yaml:"tripleDelimiters,omitempty"`
	Interpolate        Interpolate `json:"interpolate"                  yaml:"interpolate"`
	Sanitize           Sanitize    `json:"sanitize"                     yaml:"sanitize"`
	StripComments      *bool       `json:"stripComments,omitempty"      yaml:"stripComments,omitempty"`
	PreserveWhitespace bool        `json:"preserveWhitespace,omitempty" yaml:"preserveWhitespace,omitempty"`

	logger log.Logger
}

// Interpolate controls whether mustaches are recognized inside script and
// style element bodies. Unset fields default to true.
type Interpolate struct {
	Script *bool `json:"script,omitempty" yaml:"script,omitempty"`
	Style  *bool `json:"style,omitempty"  yaml:"style,omitempty"`
}

// Sanitize selects which elements and attributes are dropped during
// compilation.
//
// In YAML and JSON it is either a boolean, where true selects
// [DefaultSanitizeElements] plus event attribute stripping, or an object
// {elements, eventAttributes}.
type Sanitize struct {
	Enabled         bool
	Elements        []string
	EventAttributes bool
}

// SanitizeDefault is the policy selected by "sanitize: true".
func SanitizeDefault() Sanitize {
	return Sanitize{Enabled: true, EventAttributes: true}
}

type sanitizeObject struct {
	Elements        []string `json:"elements"        yaml:"elements"`
	EventAttributes bool     `json:"eventAttributes" yaml:"eventAttributes"`
}

func (s *Sanitize) set(enabled *bool, obj sanitizeObject) {
	if enabled != nil {
		*s = Sanitize{}
		if *enabled {
			*s = SanitizeDefault()
		}

		return
	}

	*s = Sanitize{
		Enabled:         true,
		Elements:        obj.Elements,
		EventAttributes: obj.EventAttributes,
	}
}

// UnmarshalYAML implements the goccy/go-yaml InterfaceUnmarshaler.
func (s *Sanitize) UnmarshalYAML(unmarshal func(any) error) error {
	var b bool
	if err := unmarshal(&b); err == nil {
		s.set(&b, sanitizeObject{})

		return nil
	}

	var obj sanitizeObject
	if err := unmarshal(&obj); err != nil {
		return ErrInvalidOptions.Wrapf("sanitize: %v", err)
	}

	s.set(nil, obj)

	return nil
}

// UnmarshalJSON implements [json.Unmarshaler].
func (s *Sanitize) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*s = Sanitize{}

		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		s.set(&b, sanitizeObject{})

		return nil
	}

	var obj sanitizeObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return ErrInvalidOptions.Wrapf("sanitize: %v", err)
	}

	s.set(nil, obj)

	return nil
}

// MarshalYAML emits the boolean shorthand when possible.
func (s Sanitize) MarshalYAML() (any, error) {
	if !s.Enabled {
		return false, nil
	}

	if s.Elements == nil && s.EventAttributes {
		return true, nil
	}

	return sanitizeObject{Elements: s.Elements, EventAttributes: s.EventAttributes}, nil
}

// MarshalJSON emits the boolean shorthand when possible.
func (s Sanitize) MarshalJSON() ([]byte, error) {
	v, _ := s.MarshalYAML()

	return json.Marshal(v)
}

// DecodeOptions reads Options from YAML or JSON (a subset of YAML).
// Unknown keys are rejected.
func DecodeOptions(data []byte) (Options, error) {
	var o Options

	err := yaml.UnmarshalWithOptions(data, &o, yaml.DisallowUnknownField())
	if err != nil {
		return Options{}, ErrInvalidOptions.Wrap(err)
	}

	return o, nil
}

// Option configures a single [Parse] call.
type Option func(*Options)

// WithOptions replaces all settings with o, keeping the configured logger.
func WithOptions(o Options) Option {
	return func(dst *Options) {
		logger := dst.logger
		*dst = o
		dst.logger = logger
	}
}

// WithDelimiters sets the interpolator delimiters.
func WithDelimiters(open, close string) Option {
	return func(o *Options) { o.Delimiters = []string{open, close} }
}

// WithTripleDelimiters sets the unescaped interpolator delimiters.
func WithTripleDelimiters(open, close string) Option {
	return func(o *Options) { o.TripleDelimiters = []string{open, close} }
}

// WithInterpolate controls mustache recognition inside script and style
// element bodies.
func WithInterpolate(script, style bool) Option {
	return func(o *Options) {
		o.Interpolate = Interpolate{Script: &script, Style: &style}
	}
}

// WithSanitize sets the sanitization policy.
func WithSanitize(s Sanitize) Option {
	return func(o *Options) { o.Sanitize = s }
}

// WithStripComments controls whether HTML comments are discarded.
func WithStripComments(strip bool) Option {
	return func(o *Options) { o.StripComments = &strip }
}

// WithPreserveWhitespace disables collapsing of whitespace runs in text.
func WithPreserveWhitespace(preserve bool) Option {
	return func(o *Options) { o.PreserveWhitespace = preserve }
}

// WithLogger sets the logger used for trace output.
func WithLogger(logger log.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

func makeOptions(opts ...Option) Options {
	var o Options

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
