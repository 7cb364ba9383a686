package mirror

import (
	"sync"

	"github.com/emirpasic/gods/sets/hashset"
)

// InFlight tracks which DIDs currently have a refresh in progress, so
// the scan loop never enqueues a DID twice and no two workers resolve
// the same DID concurrently.
type InFlight struct {
	dids *hashset.Set
	lock sync.Mutex
}

func NewInFlight() *InFlight {
	return &InFlight{
		dids: hashset.New(),
	}
}

// returns true on success, does nothing and returns false if the DID was already in-flight
func (infl *InFlight) Add(did string) bool {
	infl.lock.Lock()
	defer infl.lock.Unlock()

	if infl.dids.Contains(did) {
		return false
	}
	infl.dids.Add(did)
	return true
}

func (infl *InFlight) Remove(did string) {
	infl.lock.Lock()
	defer infl.lock.Unlock()
	infl.dids.Remove(did)
}

func (infl *InFlight) Size() int {
	infl.lock.Lock()
	defer infl.lock.Unlock()
	return infl.dids.Size()
}
