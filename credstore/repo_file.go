package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const credentialFileName = "credentials.json"

// FileRepo stores the credential pair as a JSON file under the data folder.
// Reads and writes are guarded by a mutex so the repo stays safe when the
// single logical thread of the session core is ported onto goroutines.
type FileRepo struct {
	path string
	lock sync.Mutex
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo creates the data folder if needed and returns a file-backed repo.
func NewFileRepo(folder string) (*FileRepo, error) {
	if folder == "" {
		return nil, errors.New("[NewFileRepo] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileRepo] os.MkdirAll")
	}
	return &FileRepo{path: filepath.Join(folder, credentialFileName)}, nil
}

func (fr *FileRepo) Save(credential Credential) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	data, err := json.Marshal(credential)
	if err != nil {
		return errors.Wrap(err, "[FileRepo.Save] json.Marshal")
	}
	// Write-then-rename keeps a crash from leaving a half-written pair.
	tmp := fr.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileRepo.Save] os.WriteFile")
	}
	if err := os.Rename(tmp, fr.path); err != nil {
		return errors.Wrap(err, "[FileRepo.Save] os.Rename")
	}
	return nil
}

func (fr *FileRepo) Load() (Credential, bool) {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	data, err := os.ReadFile(fr.path)
	if err != nil {
		return Credential{}, false
	}
	var credential Credential
	if err := json.Unmarshal(data, &credential); err != nil {
		return Credential{}, false
	}
	if credential.Empty() {
		return Credential{}, false
	}
	return credential, true
}

func (fr *FileRepo) Clear() error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if err := os.Remove(fr.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileRepo.Clear] os.Remove")
	}
	return nil
}
