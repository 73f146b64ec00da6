// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text
// files, with an optional .env overlay. Each file in the directory represents
// one secret: the filename is the key name and the file contents (trimmed) are
// the value.
//
// Supported key files: generation-api-key, semantic-scholar-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
//
// If a .env file exists in the working directory its entries are merged in
// first, so directory files win on key collisions. .env keys are lowercased
// with underscores mapped to hyphens (GENERATION_API_KEY → generation-api-key).
func Load(dir string) (map[string]string, error) {
	secrets := make(map[string]string)

	if env, err := godotenv.Read(); err == nil {
		for k, v := range env {
			key := strings.ReplaceAll(strings.ToLower(k), "_", "-")
			if v = strings.TrimSpace(v); v != "" {
				secrets[key] = v
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return secrets, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}
