package credrepofakes

import (
	"sync"

	"github.com/worldpet/go-auth-client/credstore"
)

var _ credstore.Repo = (*FakeCredRepo)(nil)

// FakeCredRepo is an in-memory credential store for tests.
type FakeCredRepo struct {
	credential credstore.Credential
	present    bool
	lock       sync.RWMutex
}

func NewFakeCredRepo() *FakeCredRepo {
	return &FakeCredRepo{}
}

func (cr *FakeCredRepo) Save(credential credstore.Credential) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	cr.credential = credential
	cr.present = !credential.Empty()
	return nil
}

func (cr *FakeCredRepo) Load() (credstore.Credential, bool) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	if !cr.present {
		return credstore.Credential{}, false
	}
	return cr.credential, true
}

func (cr *FakeCredRepo) Clear() error {
	cr.lock.Lock()
	defer cr.lock.Unlock()
	cr.credential = credstore.Credential{}
	cr.present = false
	return nil
}
