package log

import (
	"slices"
	"testing"
	"time"
)

// TestParseLevel verifies level names, offsets, and the fallback.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{" TRACE ", LevelTrace},
		{"debug", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"ERROR", LevelError},
		{"info+2", LevelInfo + 2},
		{"loud", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestLevel_String verifies names of defined and offset levels.
func TestLevel_String(t *testing.T) {
	if got := slices.Collect(Levels()); !slices.Equal(got,
		[]string{"trace", "debug", "info", "warn", "error"}) {
		t.Errorf("Levels() = %v", got)
	}

	if got := (LevelInfo + 2).String(); got != "INFO+2" {
		t.Errorf("String() = %q, want INFO+2", got)
	}
}

// TestParseFormat verifies format names and the fallback.
func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{" JSON", FormatJSON},
		{"text", FormatText},
		{"xml", DefaultFormat},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseFormat(tt.in); got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if got := slices.Collect(Formats()); !slices.Equal(got, []string{"text", "json"}) {
		t.Errorf("Formats() = %v", got)
	}

	if got := Format(7).String(); got != "Format(7)" {
		t.Errorf("String() = %q", got)
	}
}

// TestWithTimeLayout verifies named, custom, and disabled layouts.
func TestWithTimeLayout(t *testing.T) {
	now := time.Date(2023, 10, 15, 14, 30, 45, 123456789, time.UTC)

	tests := []struct {
		layout string
		want   string
	}{
		{"RFC3339", "2023-10-15T14:30:45Z"},
		{"rfc-3339-nano", "2023-10-15T14:30:45.123456789Z"},
		{"DateTime", "2023-10-15 14:30:45"},
		{"2006/01/02", "2023/10/15"},
		{"none", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			c := WithTimeLayout(tt.layout)(config{})
			if got := c.formatTime(now); got != tt.want {
				t.Errorf("formatTime = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestOptions verifies that each option sets its field.
func TestOptions(t *testing.T) {
	c := apply(config{},
		WithLevel(LevelDebug),
		WithFormat(FormatJSON),
		WithCaller(true),
		WithPretty(true),
		WithOutput(nil),
		nil,
	)

	if c.level != LevelDebug || c.format != FormatJSON || !c.caller || !c.pretty {
		t.Errorf("config = %+v", c)
	}

	if c.output == nil {
		t.Error("nil output was not replaced")
	}

	if c.mutex == nil {
		t.Error("mutex not initialized")
	}
}
