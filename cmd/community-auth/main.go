// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"

	"github.com/communityapp/authsession/cmd/community-auth/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
