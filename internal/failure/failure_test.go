// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(ResourceExhausted, "op", errors.New("boom"))
	wrapped := fmt.Errorf("context: %w", base)

	for _, err := range []error{base, wrapped} {
		kind, ok := KindOf(err)
		if !ok || kind != ResourceExhausted {
			t.Errorf("KindOf(%v) = %v, %v, want ResourceExhausted, true", err, kind, ok)
		}
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain error) reported a Kind")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(ResourceExhausted, "op", nil)) {
		t.Error("ResourceExhausted should be retryable")
	}
	if Retryable(New(ArtifactCorrupt, "op", nil)) {
		t.Error("ArtifactCorrupt should not be retryable")
	}
	if Retryable(errors.New("plain")) {
		t.Error("a plain error should not be retryable")
	}
}

func TestIs(t *testing.T) {
	a := New(ConfigMismatch, "opA", errors.New("x"))
	b := New(ConfigMismatch, "opB", errors.New("y"))
	c := New(InputMalformed, "opC", errors.New("z"))

	if !errors.Is(a, b) {
		t.Error("two errors of the same Kind should satisfy errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("errors of different Kind should not satisfy errors.Is")
	}
}
