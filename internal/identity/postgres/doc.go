// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the identity repositories on PostgreSQL.
//
// Session tokens are never stored; the sessions table keys them by
// identity.HashToken. The schema lives in internal/store/migrations.
package postgres
