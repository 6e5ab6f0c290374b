package events

import (
	"context"
	"sync"
)

// Event is something the server wants to tell the user about.
type Event interface {
	_event
}

type _event interface {
	isEvent()
}

type SetEventChanFunc func(context.Context, <-chan Event)

func RegisterEventListener(ctx context.Context, f SetEventChanFunc) {
	b := bndl(ctx)
	f(ctx, b.eventsChan)
}

// Bound is raised once the server started announcing.
type Bound struct {
	Endpoints []string
	BootID    int
	ConfigID  int
}

func (Bound) isEvent() {}

// EndpointsChanged is raised when the set of network endpoints changed.
type EndpointsChanged struct {
	Added   []string
	Removed []string
	BootID  int
}

func (EndpointsChanged) isEvent() {}

// DeviceTreeUpdated is raised when a new device tree is being advertised.
type DeviceTreeUpdated struct {
	ConfigID    int
	RootDevices int
}

func (DeviceTreeUpdated) isEvent() {}

func WithEvents(ctx context.Context) context.Context {
	cctx, cancel := context.WithCancel(ctx)
	b := bundle{
		eventsChan: make(chan Event, 16),
		cancel:     cancel,
		exitCode:   -1,
	}

	go func() {
		<-cctx.Done()
		b.mu.Lock()
		b.closed = true
		close(b.eventsChan)
		b.mu.Unlock()
	}()

	return context.WithValue(cctx, bundleKey{}, &b)
}

// Raise delivers e to the listener. Events are dropped if nobody keeps up
// or if ctx carries no event bundle.
func Raise(ctx context.Context, e Event) {
	b, ok := ctx.Value(bundleKey{}).(*bundle)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.eventsChan <- e:
	default:
	}
}

func Stop(ctx context.Context) {
	b := bndl(ctx)
	b.cancel()
}

type bundleKey struct{}
type bundle struct {
	mu         sync.Mutex
	eventsChan chan Event
	closed     bool
	cancel     func()
	exitCode   int
}

func bndl(ctx context.Context) *bundle {
	b, ok := ctx.Value(bundleKey{}).(*bundle)
	if !ok {
		panic("missing event bundle missing from context")
	}
	return b
}

func SetExitCode(ctx context.Context, code int) {
	b := bndl(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exitCode = code
}

func GetExitCode(ctx context.Context) int {
	b := bndl(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exitCode
}
