// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package securestore provides the persistence backends an oidc.StateStore
writes its encoded authentication state to.  Every Backend stores opaque
records by key and guarantees a Write either completes or leaves the
previous record in place.

Backends:

  - Memory: process memory, for tests and ephemeral sessions.
  - File: one file per key in a directory readable only by the owner, written
    atomically.  Watch reports changes written by other processes that share
    the directory.
  - Keyring: the OS secure store (Keychain, Secret Service, Credential
    Manager).  The service name plays the role of a shared access group.
  - SQLite: a single table in an embedded database.

Reading a record that does not exist returns ErrNotFound.  Deleting one is
not an error.
*/
package securestore
