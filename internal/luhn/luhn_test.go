// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package luhn_test

import (
	"testing"

	"github.com/zisync/zisync/internal/luhn"
)

func TestGenerate(t *testing.T) {
	a := luhn.Alphabet("abcdef")
	c, err := a.Generate("abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if c != 'e' {
		t.Errorf("incorrect check digit %c != e", c)
	}

	a = luhn.Alphabet("0123456789")
	c, err = a.Generate("7992739871")
	if err != nil {
		t.Fatal(err)
	}
	if c != '3' {
		t.Errorf("incorrect check digit %c != 3", c)
	}
}

func TestInvalidString(t *testing.T) {
	a := luhn.Alphabet("ABC")
	if _, err := a.Generate("7992739871"); err == nil {
		t.Error("expected error")
	}
}

func TestBadAlphabet(t *testing.T) {
	a := luhn.Alphabet("01234566789")
	if _, err := a.Generate("7992739871"); err == nil {
		t.Error("expected error")
	}
}

func TestValidate(t *testing.T) {
	a := luhn.Alphabet("abcdef")
	if !a.Validate("abcdefe") {
		t.Errorf("incorrect validation response for abcdefe")
	}
	if a.Validate("abcdefd") {
		t.Errorf("incorrect validation response for abcdefd")
	}
}
