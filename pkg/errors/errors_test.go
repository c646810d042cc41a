package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeDependency, cause, "load promotions")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %q", err.Code())
	}
	if err.Error() != "DEPENDENCY_ERROR: load promotions" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapNilCause(t *testing.T) {
	err := Wrap(CodeValidation, nil, "cart is empty")
	if err.Unwrap() != nil {
		t.Fatalf("expected no cause")
	}
	if err.Code() != CodeValidation {
		t.Fatalf("unexpected code %q", err.Code())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeConflict, "code already redeemed")
	outer := fmt.Errorf("redeem: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeConflict {
		t.Fatalf("unexpected code %q", typed.Code())
	}

	if As(errors.New("plain")) != nil {
		t.Fatal("plain error should not convert")
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := Wrap(CodeConflict, cause, "insert digital code")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("unexpected code %q", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}
