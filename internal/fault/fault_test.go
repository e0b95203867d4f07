package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfSeesThroughWrapping(t *testing.T) {
	inner := New(RateLimited, "too many requests")
	wrapped := fmt.Errorf("transcribe: %w", inner)

	kind, ok := KindOf(wrapped)
	if !ok || kind != RateLimited {
		t.Fatalf("KindOf = %v, %v", kind, ok)
	}
	if !Is(wrapped, RateLimited) {
		t.Fatal("Is(wrapped, RateLimited) = false")
	}
	if Is(wrapped, Provider) {
		t.Fatal("Is(wrapped, Provider) = true")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatal("plain error should have no kind")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(Provider, nil, "ignored"); err != nil {
		t.Fatalf("Wrap(nil) = %v", err)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(Delivery, cause, "failed to send email")
	if err.Error() != "failed to send email: dial tcp: refused" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not unwrappable")
	}
}

func TestKindStrings(t *testing.T) {
	want := map[Kind]string{
		Validation:  "validation",
		RateLimited: "rate_limited",
		Provider:    "provider",
		Structural:  "structural",
		Delivery:    "delivery",
	}
	for kind, name := range want {
		if kind.String() != name {
			t.Fatalf("%d.String() = %q, want %q", kind, kind.String(), name)
		}
	}
}
