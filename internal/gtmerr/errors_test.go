package gtmerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestTransient(t *testing.T) {
	transient := []error{ErrRateLimited, ErrNetworkTimeout, ErrServerError}
	for _, err := range transient {
		if !Transient(err) {
			t.Errorf("Expected %v to be transient", err)
		}
	}

	permanent := []error{ErrAuth, ErrNotFound, ErrConflict, ErrAPIRequest, ErrValidation, nil}
	for _, err := range permanent {
		if Transient(err) {
			t.Errorf("Expected %v to be permanent", err)
		}
	}
}

func TestTransientSeesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: HTTP 503", ErrServerError)
	if !Transient(wrapped) {
		t.Errorf("Expected wrapped server error to stay transient: %v", wrapped)
	}
	if !errors.Is(wrapped, ErrServerError) {
		t.Errorf("Wrapping lost the sentinel: %v", wrapped)
	}
}
