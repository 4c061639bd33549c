// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the completion-service API key. The key is
// read from the ANTHROPIC_API_KEY environment variable first, then from
// a plain-text key file in the secrets directory (filename is the key
// name, trimmed contents are the value).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// apiKeyFile is the key-file name holding the completion-service key.
const apiKeyFile = "anthropic-api-key"

// envVar overrides the key file when set.
const envVar = "ANTHROPIC_API_KEY"

// APIKey returns the completion-service API key, or "" when none is
// configured. A missing secrets directory or key file is not an error.
func APIKey(dir string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, apiKeyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading key file %s: %w", apiKeyFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}
