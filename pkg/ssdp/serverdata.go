package ssdp

import (
	"container/heap"
	"net"
	"time"

	"github.com/forestnode-io/ssdpd/pkg/upnp"
)

// ServerData is the state shared between the controller and the owner of
// the device tree. Exported fields may only be changed while holding the
// lock.
type ServerData struct {
	Server    upnp.Server
	Endpoints []*EndpointConfiguration

	BootID   int
	ConfigID int
	// AdvertisementExpirationTime in seconds, the CACHE-CONTROL max-age.
	AdvertisementExpirationTime int
	ServerHeader                string

	mu      lock
	active  bool
	pending pendingSearches
}

func NewServerData(server upnp.Server) *ServerData {
	return &ServerData{
		Server:                      server,
		BootID:                      1,
		AdvertisementExpirationTime: DefaultAdvertisementExpirationTime,
		mu:                          newLock(),
	}
}

func (sd *ServerData) Lock()   { sd.mu.Lock() }
func (sd *ServerData) Unlock() { sd.mu.Unlock() }

// IsActive reports whether the controller is running. Callers hold the lock.
func (sd *ServerData) IsActive() bool { return sd.active }

// lock is a mutex whose acquisition can be bounded in time.
type lock chan struct{}

func newLock() lock { return make(lock, 1) }

func (l lock) Lock()   { l <- struct{}{} }
func (l lock) Unlock() { <-l }

func (l lock) TryLock(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case l <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

// PendingSearchRequest is an M-SEARCH waiting for its response delay to
// elapse.
type PendingSearchRequest struct {
	ST        string
	Endpoint  *EndpointConfiguration
	Requester *net.UDPAddr
	Deadline  time.Time
}

// pendingSearches is a min-heap ordered by deadline.
type pendingSearches []*PendingSearchRequest

func (p pendingSearches) Len() int           { return len(p) }
func (p pendingSearches) Less(i, j int) bool { return p[i].Deadline.Before(p[j].Deadline) }
func (p pendingSearches) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func (p *pendingSearches) Push(x any) {
	*p = append(*p, x.(*PendingSearchRequest))
}

func (p *pendingSearches) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*p = old[:n-1]
	return x
}

func (p *pendingSearches) push(ps *PendingSearchRequest) {
	heap.Push(p, ps)
}

// popDue removes and returns the requests whose deadline is not after now,
// earliest first.
func (p *pendingSearches) popDue(now time.Time) []*PendingSearchRequest {
	var due []*PendingSearchRequest
	for p.Len() > 0 && !(*p)[0].Deadline.After(now) {
		due = append(due, heap.Pop(p).(*PendingSearchRequest))
	}
	return due
}

func (p *pendingSearches) next() (time.Time, bool) {
	if p.Len() == 0 {
		return time.Time{}, false
	}
	return (*p)[0].Deadline, true
}

// dropEndpoint removes the requests received on ep.
func (p *pendingSearches) dropEndpoint(ep *EndpointConfiguration) {
	kept := (*p)[:0]
	for _, ps := range *p {
		if ps.Endpoint != ep {
			kept = append(kept, ps)
		}
	}
	for i := len(kept); i < len(*p); i++ {
		(*p)[i] = nil
	}
	*p = kept
	heap.Init(p)
}

func (p *pendingSearches) clear() {
	*p = nil
}
