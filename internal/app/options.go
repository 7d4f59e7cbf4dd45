// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package app

import (
	"io"
	"os"

	"github.com/communityapp/authsession/oidc"
	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(*options)

type options struct {
	withLogger    hclog.Logger
	withPresenter oidc.Presenter
	withOutput    io.Writer
}

func getOpts(opt ...Option) options {
	opts := options{
		withLogger: hclog.NewNullLogger(),
		withOutput: os.Stderr,
	}
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.withLogger = l
		}
	}
}

// WithPresenter replaces the system browser presenter.
func WithPresenter(p oidc.Presenter) Option {
	return func(o *options) {
		o.withPresenter = p
	}
}

// WithOutput sets where instructions for the user are written.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.withOutput = w
		}
	}
}
