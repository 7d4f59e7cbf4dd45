// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithNow provides an optional func for determining the current time.
// Supported by: Request, Session
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *reqOptions:
			v.withNowFunc = now
		case *sessionOptions:
			v.withNowFunc = now
		}
	}
}

// WithLogger provides an optional logger.
// Supported by: StateStore, StateValidator, Session
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *storeOptions:
			v.withLogger = l
		case *validatorOptions:
			v.withLogger = l
		case *sessionOptions:
			v.withLogger = l
		}
	}
}
