package logging

import "testing"

func TestMaskFieldRedactsFreeText(t *testing.T) {
	attr := MaskField("note", "missed standup, medical appointment")
	if got := attr.Value.String(); got != RedactedValue {
		t.Fatalf("expected masked note, got %q", got)
	}
}

func TestMaskFieldPassesAllowlistedKeys(t *testing.T) {
	attr := MaskField("owner", "owner-1")
	if got := attr.Value.String(); got != "owner-1" {
		t.Fatalf("expected owner to pass through, got %q", got)
	}
}

func TestMaskFieldKeepsEmptyValues(t *testing.T) {
	attr := MaskField("note", "")
	if got := attr.Value.String(); got != "" {
		t.Fatalf("expected empty value unchanged, got %q", got)
	}
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue("self-reported detail"); got != RedactedValue {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := MaskValue("  "); got != "  " {
		t.Fatalf("expected whitespace passed through, got %q", got)
	}
}

func TestRedactionAllowlist(t *testing.T) {
	keys := RedactionAllowlist()
	if len(keys) == 0 {
		t.Fatal("expected a non-empty allowlist")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("allowlist not sorted at %d: %q >= %q", i, keys[i-1], keys[i])
		}
	}
	if !IsAllowlisted("Owner") {
		t.Fatal("expected case-insensitive allowlist match")
	}
	if IsAllowlisted("note") {
		t.Fatal("note must never be allowlisted")
	}
}
