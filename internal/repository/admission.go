package repository

import "sync"

// AdmissionRepository remembers which client identities already claimed a vote slot.
type AdmissionRepository interface {
	Admit(identity string) bool
	Reset()
	Count() int
}

type admission struct {
	identities map[string]struct{}
	mutex      sync.Mutex
}

func newAdmissionRepository() AdmissionRepository {
	return &admission{
		identities: make(map[string]struct{}),
	}
}

func (a *admission) Admit(identity string) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if _, exists := a.identities[identity]; exists {
		return false
	}
	a.identities[identity] = struct{}{}
	return true
}

func (a *admission) Reset() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.identities = make(map[string]struct{})
}

func (a *admission) Count() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return len(a.identities)
}
