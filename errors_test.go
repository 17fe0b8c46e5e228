package resourcex

import (
	"errors"
	"fmt"
	"testing"

	"github.com/resourcex/resourcex/locator"
)

func TestErrorClassification(t *testing.T) {
	id := locator.Locator{Name: "hello", Tag: "1.0.0"}

	var err error = ErrResourceUnknown{Locator: id}
	if !IsResourceUnknown(err) {
		t.Error("IsResourceUnknown missed a direct error")
	}
	wrapped := fmt.Errorf("resolving: %w", err)
	if !IsResourceUnknown(wrapped) {
		t.Error("IsResourceUnknown missed a wrapped error")
	}
	if IsCorruptState(wrapped) {
		t.Error("IsCorruptState matched a not-found error")
	}

	err = fmt.Errorf("verifying: %w", ErrCorruptState{Locator: id, Reason: "missing blob"})
	if !IsCorruptState(err) {
		t.Error("IsCorruptState missed a wrapped error")
	}
	if IsResourceUnknown(err) {
		t.Error("IsResourceUnknown matched a corrupt-state error")
	}

	var unknown ErrResourceUnknown
	if !errors.As(fmt.Errorf("x: %w", ErrResourceUnknown{Locator: id}), &unknown) {
		t.Fatal("errors.As failed for ErrResourceUnknown")
	}
	if unknown.Locator != id {
		t.Errorf("recovered locator = %v, want %v", unknown.Locator, id)
	}
}

func TestErrorMessages(t *testing.T) {
	id := locator.Locator{Registry: "registry.example.com", Name: "hello", Tag: "2.0.0"}
	for _, err := range []error{
		ErrResourceUnknown{Locator: id},
		ErrResourceExists{Locator: id},
		ErrCorruptState{Locator: id, Reason: "blob sha256:deadbeef missing"},
		ErrNoLatestPointer{Registry: "registry.example.com", Name: "hello"},
		ErrInvalidDefinition{Reason: "name is required"},
	} {
		if err.Error() == "" {
			t.Errorf("%T produced an empty message", err)
		}
	}
}
