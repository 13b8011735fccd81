package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tokenFile is the on-disk layout: {"auth_token": string | null}.
type tokenFile struct {
	AuthToken *string `json:"auth_token"`
}

// FileStore keeps a single credential in a JSON file.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a store at path. A leading ~ expands to the user's
// home directory.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("token file path is empty")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand token file path: %w", err)
	}
	return &FileStore{
		path:   expanded,
		logger: logger.Named("token_store"),
	}, nil
}

// Path returns the resolved file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored credential. A missing or unreadable file, malformed
// JSON, or a null or empty token all report absence.
func (s *FileStore) Load() (Credential, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Could not read token file.", zap.String("path", s.path), zap.Error(err))
		}
		return Credential{}, false
	}

	var f tokenFile
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.Warn("Token file is corrupt; ignoring it.", zap.String("path", s.path), zap.Error(err))
		return Credential{}, false
	}
	if f.AuthToken == nil {
		return Credential{}, false
	}
	c := Credential{Token: *f.AuthToken}
	if !c.Valid() {
		return Credential{}, false
	}
	return c, true
}

// Save overwrites the file with c. The content is written to a temporary file
// in the same directory and renamed over the target, so readers never see a
// partial write.
func (s *FileStore) Save(c Credential) error {
	token := c.Token
	data, err := json.Marshal(tokenFile{AuthToken: &token})
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".auth_token-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	committed = true

	fields := []zap.Field{zap.String("path", s.path)}
	if exp, ok := c.ExpiresAt(); ok {
		fields = append(fields, zap.Time("expires_at", exp))
	}
	s.logger.Info("Credential saved.", fields...)
	return nil
}
