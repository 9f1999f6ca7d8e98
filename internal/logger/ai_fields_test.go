package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestStringFieldsSkipsEmptyEntries(t *testing.T) {
	t.Parallel()

	fields := StringFields(
		StringField{Key: "a", Value: "1"},
		StringField{Key: "", Value: "dropped"},
		StringField{Key: "b", Value: "   "},
		StringField{Key: "  c  ", Value: "  2  "},
	)

	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != "a" || fields[1].Key != "c" {
		t.Fatalf("unexpected keys: %q, %q", fields[0].Key, fields[1].Key)
	}
}

func TestCommonFields(t *testing.T) {
	t.Parallel()

	fields := CommonFields("gemini", "gemini-2.5-flash")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if got := CommonFields("", ""); len(got) != 0 {
		t.Fatalf("expected no fields for empty values, got %d", len(got))
	}
}

func TestWithCommonFieldsHandlesNilLogger(t *testing.T) {
	t.Parallel()

	if got := WithCommonFields(nil, "gemini", "model"); got == nil {
		t.Fatal("expected a non-nil logger")
	}

	base := zap.NewNop()
	if got := WithCommonFields(base, "", ""); got != base {
		t.Fatal("expected the original logger when no fields are produced")
	}
}
