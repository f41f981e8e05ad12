// Package shared provides common utilities and test helpers used across the
// ComplaintLens codebase. It is a home for functionality that doesn't belong
// to any specific domain or architectural layer.
//
// # Structure
//
//   - testutil: log-capture helpers for asserting on structured logging, and
//     complaint dataset fixtures built through the production loader
//
// # Usage Guidelines
//
// This package should only contain:
//
//  1. Test utilities used by multiple packages
//  2. Generic helpers with no domain-specific logic
//
// It should NOT contain business logic or circular dependencies with other
// internal packages.
package shared
