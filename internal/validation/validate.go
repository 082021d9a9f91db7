// Package validation provides centralized input validation logic for object
// keys and bucket names. Archive entry paths are validated here before any
// storage operation is attempted.
package validation

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

// maxKeyLength is the S3 object key limit in bytes.
const maxKeyLength = 1024

// ValidateObjectKey validates that a key is usable as an S3 object key.
// This includes preventing path traversal and rejecting control characters.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if HasPathTraversal(key) {
		return fmt.Errorf("object key cannot contain path traversal sequences")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("object key cannot exceed %d bytes", maxKeyLength)
	}
	if hasControlCharacters(key) {
		return fmt.Errorf("object key cannot contain control characters")
	}
	return nil
}

// ValidateBucketName validates that a bucket name is DNS-compliant according
// to AWS S3 rules.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return fmt.Errorf("bucket name cannot be empty")
	}
	if len(bucket) < 3 || len(bucket) > 63 {
		return fmt.Errorf("bucket name must be between 3 and 63 characters long")
	}
	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return fmt.Errorf("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	if bucket[0] == '-' || bucket[0] == '.' || bucket[len(bucket)-1] == '-' || bucket[len(bucket)-1] == '.' {
		return fmt.Errorf("bucket name cannot start or end with a hyphen or dot")
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, "--") {
		return fmt.Errorf("bucket name cannot contain two adjacent periods or hyphens")
	}
	return nil
}

// HasPathTraversal checks for path traversal attempts in object keys.
func HasPathTraversal(key string) bool {
	if strings.Contains(key, "..") {
		return true
	}

	cleaned := path.Clean(key)
	if strings.HasPrefix(cleaned, "..") {
		return true
	}
	if strings.HasPrefix(cleaned, "/") {
		return true
	}

	// Windows-style absolute paths (C:\ or C:/)
	if len(key) >= 3 && key[1] == ':' && (key[2] == '\\' || key[2] == '/') {
		return true
	}

	return false
}

// isValidBucketChar checks if a character is valid in a bucket name.
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// hasControlCharacters checks for control characters in the key.
func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
