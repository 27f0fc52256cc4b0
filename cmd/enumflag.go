// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package cmd

import "fmt"

// enumFlag is a pflag.Value that only accepts one of a fixed set of
// strings, the same role util.EnumFlag plays for OPA's own --format
// flags.
type enumFlag struct {
	value   string
	options []string
}

func newEnumFlag(defaultValue string, options []string) *enumFlag {
	return &enumFlag{value: defaultValue, options: options}
}

func (f *enumFlag) Set(s string) error {
	for _, opt := range f.options {
		if opt == s {
			f.value = s
			return nil
		}
	}
	return fmt.Errorf("invalid value %q, expected one of %v", s, f.options)
}

func (f *enumFlag) String() string {
	return f.value
}

func (f *enumFlag) Type() string {
	return "enum"
}
