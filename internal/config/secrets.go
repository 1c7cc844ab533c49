package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	secretService  = "backroom"
	apiTokenSecret = "api_token"
)

// SecretStore reads and writes service/account secrets.
type SecretStore interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// fileSecrets keeps secrets in a 0600 JSON file next to the data directory:
// {"backroom": {"api_token": "..."}}.
type fileSecrets struct {
	path string
}

// NewSecretStore returns the default file-backed secret store.
func NewSecretStore() SecretStore {
	return fileSecrets{path: secretsFilePath()}
}

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "backroom", "secrets.json")
}

func (f fileSecrets) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (f fileSecrets) Get(service, account string) (string, error) {
	secrets, err := f.read()
	if err != nil {
		return "", fmt.Errorf("secret store not available: %w", err)
	}
	svc, ok := secrets[service]
	if !ok {
		return "", fmt.Errorf("service %q not found", service)
	}
	val, ok := svc[account]
	if !ok {
		return "", fmt.Errorf("account %q not found in service %q", account, service)
	}
	return val, nil
}

func (f fileSecrets) Set(service, account, value string) error {
	secrets, _ := f.read()
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}

// GetAPIToken returns the bearer token protecting the REST API. The
// BACKROOM_API_TOKEN environment variable wins; otherwise the token is read
// from the secret store.
func GetAPIToken(s SecretStore) (string, error) {
	if tok := os.Getenv("BACKROOM_API_TOKEN"); tok != "" {
		return tok, nil
	}
	tok, err := s.Get(secretService, apiTokenSecret)
	if err != nil {
		return "", fmt.Errorf("no API token (run `backroom start` once to generate one): %w", err)
	}
	return tok, nil
}

// EnsureAPIToken returns the existing API token or generates and stores a
// new random one.
func EnsureAPIToken(s SecretStore) (string, error) {
	if tok, err := GetAPIToken(s); err == nil {
		return tok, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := s.Set(secretService, apiTokenSecret, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}
