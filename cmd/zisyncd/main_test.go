package main

import "testing"

func TestParseInt64(t *testing.T) {
	n, err := parseInt64("42")
	if err != nil {
		t.Fatalf("parseInt64: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
}

func TestParseInt64Invalid(t *testing.T) {
	if _, err := parseInt64("not-a-number"); err == nil {
		t.Fatal("expected an error for a non-numeric argument")
	}
}

func TestNewUUIDIsUnique(t *testing.T) {
	a, b := newUUID(), newUUID()
	if a == b {
		t.Fatal("expected distinct uuids across calls")
	}
}
