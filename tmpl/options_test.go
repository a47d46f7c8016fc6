package tmpl

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func ptr[T any](v T) *T { return &v }

// TestDecodeOptions verifies decoding options from YAML and JSON documents.
func TestDecodeOptions(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Options
		wantErr error
	}{
		{
			name: "yaml",
			input: "delimiters: ['<%', '%>']\n" +
				"sanitize: true\n" +
				"stripComments: false\n" +
				"preserveWhitespace: true\n",
			want: Options{
				Delimiters:         []string{"<%", "%>"},
				Sanitize:           SanitizeDefault(),
				StripComments:      ptr(false),
				PreserveWhitespace: true,
			},
		},
		{
			name: "json",
			input: `{"tripleDelimiters": ["<%=", "%>"],` +
				` "sanitize": {"elements": ["script"], "eventAttributes": false},` +
				` "interpolate": {"script": false}}`,
			want: Options{
				TripleDelimiters: []string{"<%=", "%>"},
				Sanitize:         Sanitize{Enabled: true, Elements: []string{"script"}},
				Interpolate:      Interpolate{Script: ptr(false)},
			},
		},
		{
			name:  "sanitize false",
			input: "sanitize: false\n",
			want:  Options{},
		},
		{
			name:    "unknown key",
			input:   "bogus: 1\n",
			wantErr: ErrInvalidOptions,
		},
		{
			name:    "malformed",
			input:   "delimiters: [\n",
			wantErr: ErrInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeOptions([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeOptions error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("DecodeOptions error = %v", err)
			}

			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreUnexported(Options{})); diff != "" {
				t.Errorf("DecodeOptions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestSanitize_UnmarshalJSON verifies the boolean and object forms with
// encoding/json.
func TestSanitize_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Sanitize
	}{
		{input: `true`, want: SanitizeDefault()},
		{input: `false`, want: Sanitize{}},
		{input: `null`, want: Sanitize{}},
		{
			input: `{"elements": ["iframe"], "eventAttributes": true}`,
			want:  Sanitize{Enabled: true, Elements: []string{"iframe"}, EventAttributes: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got Sanitize
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("json.Unmarshal error = %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Sanitize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestSanitize_MarshalJSON verifies that the boolean shorthand is emitted when
// it describes the policy.
func TestSanitize_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   Sanitize
		want string
	}{
		{in: Sanitize{}, want: `false`},
		{in: SanitizeDefault(), want: `true`},
		{
			in:   Sanitize{Enabled: true, Elements: []string{"a"}},
			want: `{"elements":["a"],"eventAttributes":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("json.Marshal error = %v", err)
			}

			if string(got) != tt.want {
				t.Errorf("json.Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestWithOptions verifies that decoded options drive the parse.
func TestWithOptions(t *testing.T) {
	o, err := DecodeOptions([]byte("delimiters: ['[[', ']]']\nstripComments: false\n"))
	if err != nil {
		t.Fatalf("DecodeOptions error = %v", err)
	}

	got := mustParse(t, "[[x]]<!--c-->", WithOptions(o)).ToNative()
	want := arr{
		obj{"t": 2, "r": "x"},
		obj{"t": 9, "c": true, "f": arr{"c"}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}
