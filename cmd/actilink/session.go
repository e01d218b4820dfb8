package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/actilink/actilink-api/internal/client"
)

// loadSession reads a saved session. A missing file reports os.ErrNotExist.
func loadSession(path string) (client.Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return client.Session{}, err
	}
	var s client.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return client.Session{}, err
	}
	return s, nil
}

// saveSession persists s, or removes the file when s is signed out.
func saveSession(path string, s client.Session) error {
	if !s.SignedIn() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}
