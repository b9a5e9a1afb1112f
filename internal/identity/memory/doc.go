// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process implementations of the identity
// repositories. They are safe for concurrent use and lose all data on exit.
package memory
