// Package types provides core types used across the cafemesh services.
// This package has ZERO dependencies on other cafemesh packages to avoid
// circular imports. All other packages should import types from here.
package types
