package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("connection refused")
	err := Wrap(ErrTransient, "provider", "list", "page 2", inner)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("inner error lost: %v", err)
	}
	for _, want := range []string{"provider", "list", "page 2"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("detail %q missing from %q", want, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "fetcher", "window", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestFatal(t *testing.T) {
	cases := []struct {
		err   error
		fatal bool
	}{
		{Wrap(ErrConfiguration, "config", "load", "", nil), true},
		{Wrap(ErrValidation, "fetcher", "window", "bad range", nil), true},
		{Wrap(ErrTransient, "provider", "list", "", nil), false},
		{Wrap(ErrExternalService, "provider", "download", "", nil), false},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := Fatal(tc.err); got != tc.fatal {
			t.Errorf("Fatal(%v) = %t, want %t", tc.err, got, tc.fatal)
		}
	}
}
