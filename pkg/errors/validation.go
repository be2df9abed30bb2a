package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
//
// Registry-specific rules are applied by [ValidateCratesPackageName].
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// cratesPackageNameRegex matches valid crates.io package names.
var cratesPackageNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidateCratesPackageName validates a crates.io package name.
func ValidateCratesPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if !cratesPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid crates.io package name: %q", name)
	}

	return nil
}

// featureNameRegex matches Cargo feature names, including the
// "dependency/feature" form used to enable a feature of a dependency.
var featureNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_+.-]*(/[a-zA-Z0-9_][a-zA-Z0-9_+.-]*)?$`)

// ValidateFeatureName validates a Cargo feature name.
func ValidateFeatureName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "feature name cannot be empty")
	}
	if !featureNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid feature name: %q", name)
	}
	return nil
}

// ValidateVersionReq performs a syntactic sanity check on a Cargo version
// requirement such as "1.0", "=1.2.3" or ">=0.4, <0.6". It does not check
// that any published version satisfies it.
func ValidateVersionReq(req string) error {
	if strings.TrimSpace(req) == "" {
		return New(ErrCodeInvalidInput, "version requirement cannot be empty")
	}
	for _, r := range req {
		if unicode.IsControl(r) || r == '"' || r == '\\' {
			return New(ErrCodeInvalidInput, "version requirement contains invalid characters: %q", req)
		}
	}
	if !strings.ContainsAny(req, "0123456789*") {
		return New(ErrCodeInvalidInput, "version requirement has no version: %q", req)
	}
	return nil
}
