// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package identity resolves bearer tokens into caller identities and
// provisions identities for first-time visitors.
//
// # Identity Variants
//
// A caller is exactly one of two kinds:
//   - Anonymous - a visitor with no durable profile
//   - Authenticated - a registered account with a name and email
//
// Identity is a sealed interface; use Match to handle both kinds.
//
// # Services
//
// Service types are stateless orchestrators over injected repositories:
//   - ProvisioningService - creates an anonymous identity and its first session
//   - ResolutionService - maps a session token to an Identity
//   - RegistrationService - promotes an identifier to an authenticated account
//   - LoginService - password login and logout
//
// Services are created with New*Service constructors that validate dependencies.
//
// # Storage
//
// Repositories are capability interfaces. Implementations live in the
// memory, postgres, and redis subpackages. A repository reports absence by
// returning an error that wraps ErrNotFound; any other error is operational.
package identity
