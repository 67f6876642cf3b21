package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  slog.Level
	}{
		{0, slog.LevelError},
		{-1, slog.LevelError},
		{1, slog.LevelWarn},
		{2, slog.LevelInfo},
		{3, slog.LevelDebug},
		{4, LevelTrace},
		{5, LevelTrace}, // anything > 4 maps to trace
	}

	for _, tt := range tests {
		got := VerbosityToLevel(tt.verbosity)
		if got != tt.expected {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.expected)
		}
	}
}

func TestLevelToVerbosity(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected int
	}{
		{slog.LevelError, VerbosityError},
		{slog.LevelWarn, VerbosityWarn},
		{slog.LevelInfo, VerbosityInfo},
		{slog.LevelDebug, VerbosityDebug},
		{LevelTrace, VerbosityTrace},
	}

	for _, tt := range tests {
		got := LevelToVerbosity(tt.level)
		if got != tt.expected {
			t.Errorf("LevelToVerbosity(%v) = %d, want %d", tt.level, got, tt.expected)
		}
	}
}

func TestLevelName(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{LevelTrace, "TRACE"},
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelWarn, "WARN"},
		{slog.LevelError, "ERROR"},
	}

	for _, tt := range tests {
		got := LevelName(tt.level)
		if got != tt.expected {
			t.Errorf("LevelName(%v) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestInitWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(2, "text", &buf); err != nil {
		t.Fatal(err)
	}

	if Verbosity() != 2 {
		t.Errorf("Verbosity() = %d, want 2", Verbosity())
	}
	Info("stage done", "files", 3)
	Debug("hidden")
	if !strings.Contains(buf.String(), "stage done") || !strings.Contains(buf.String(), "files=3") {
		t.Errorf("Info output missing, got: %s", buf.String())
	}
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("Debug should be filtered at verbosity 2, got: %s", buf.String())
	}
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	_ = Init(VerbosityTrace, "text", &buf)

	Trace("deep detail")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("Trace should render level=TRACE, got: %s", buf.String())
	}
}

func TestSetVerbosity(t *testing.T) {
	_ = Init(1, "text", &bytes.Buffer{})

	SetVerbosity(3)
	if Verbosity() != 3 {
		t.Errorf("Verbosity() = %d, want 3", Verbosity())
	}

	SetVerbosity(0)
	if Verbosity() != 0 {
		t.Errorf("Verbosity() = %d, want 0", Verbosity())
	}
}

func TestV(t *testing.T) {
	var buf bytes.Buffer
	_ = Init(2, "text", &buf)

	V(2).Info("should appear", "key", "value")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("V(2) should log when verbosity is 2, got: %s", buf.String())
	}

	buf.Reset()

	V(3).Info("should not appear", "key", "value")
	if strings.Contains(buf.String(), "should not appear") {
		t.Errorf("V(3) should not log when verbosity is 2, got: %s", buf.String())
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	_ = Init(2, "text", &buf)

	Component("placement").Info("test message")
	if !strings.Contains(buf.String(), "component=placement") {
		t.Errorf("Component should add component context, got: %s", buf.String())
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	handler := NewHandler(HandlerOptions{
		Level:  slog.LevelInfo,
		Format: "json",
		Output: &buf,
	})
	l := slog.New(handler)
	l.Info("test", "key", "value")

	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("JSON handler should output JSON, got: %s", buf.String())
	}
}

func TestNewHandler_DefaultOutput(t *testing.T) {
	handler := NewHandler(HandlerOptions{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: nil, // should default to stderr
	})
	if handler == nil {
		t.Error("NewHandler should not return nil")
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range Formats {
		if err := ValidateFormat(f); err != nil {
			t.Errorf("ValidateFormat(%q) error = %v", f, err)
		}
	}
	if err := ValidateFormat("xml"); err == nil {
		t.Error("ValidateFormat(xml) expected error")
	}
	if err := Init(2, "xml", &bytes.Buffer{}); err == nil {
		t.Error("Init with format xml expected error")
	}
}

func TestCompactAttrs(t *testing.T) {
	digest := "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

	var buf bytes.Buffer
	_ = Init(VerbosityDebug, "text", &buf)
	Debug("hashed file", "digest", digest, "size", uint64(3<<20), "saved_bytes", 2048, "file", "a.dll")

	out := buf.String()
	for _, want := range []string{"digest=sha256:2cf24dba5fb0 ", "size=\"3.0 MiB\"", "saved_bytes=\"2.0 KiB\"", "file=a.dll"} {
		if !strings.Contains(out, want) {
			t.Errorf("compact output missing %s, got: %s", want, out)
		}
	}

	// Trace keeps everything verbatim.
	buf.Reset()
	_ = Init(VerbosityTrace, "text", &buf)
	Debug("hashed file", "digest", digest, "size", uint64(3<<20))
	if !strings.Contains(buf.String(), digest) || !strings.Contains(buf.String(), "size=3145728") {
		t.Errorf("trace output should be verbatim, got: %s", buf.String())
	}

	// So does JSON.
	buf.Reset()
	_ = Init(VerbosityDebug, "json", &buf)
	Debug("hashed file", "digest", digest, "size", uint64(10))
	if !strings.Contains(buf.String(), digest) || !strings.Contains(buf.String(), `"size":10`) {
		t.Errorf("json output should be verbatim, got: %s", buf.String())
	}
}

func TestShortDigest(t *testing.T) {
	tests := []struct{ in, want string }{
		{"xxh64:26c7827d889f6da3", "xxh64:26c7827d889f"},
		{"md5:abc", "md5:abc"},
		{"not-a-digest", "not-a-digest"},
	}
	for _, tt := range tests {
		if got := shortDigest(tt.in); got != tt.want {
			t.Errorf("shortDigest(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStage(t *testing.T) {
	var buf bytes.Buffer
	_ = Init(VerbosityDebug, "text", &buf)

	done := Stage("inventory", "versions", 3)
	if !strings.Contains(buf.String(), "stage started") || !strings.Contains(buf.String(), "component=inventory") {
		t.Errorf("Stage should log its start, got: %s", buf.String())
	}
	done("files", 12)
	out := buf.String()
	for _, want := range []string{"stage finished", "elapsed=", "versions=3", "files=12"} {
		if !strings.Contains(out, want) {
			t.Errorf("Stage end missing %s, got: %s", want, out)
		}
	}
}
