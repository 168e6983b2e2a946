package ws

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(id string) *Client {
	return &Client{
		ID:     id,
		logger: zap.NewNop(),
		send:   make(chan outbound, 32),
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("a")

	if _, ok := r.Lookup(1); ok {
		t.Fatalf("expected no entry before registration")
	}

	r.Register(1, c)
	got, ok := r.Lookup(1)
	if !ok || got.(*Client) != c {
		t.Fatalf("expected registered client back")
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	old := newTestClient("old")
	fresh := newTestClient("fresh")

	r.Register(1, old)
	r.Register(1, fresh)

	got, ok := r.Lookup(1)
	if !ok || got.(*Client) != fresh {
		t.Fatalf("expected the later registration to win")
	}
}

func TestRegistryUnregisterByHandle(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("a")
	r.Register(1, c)

	r.Unregister(c)
	if _, ok := r.Lookup(1); ok {
		t.Fatalf("expected entry removed")
	}

	// Repetir con un handle que ya no posee entrada es un no-op.
	r.Unregister(c)
	if got := r.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty registry, got %v", got)
	}
}

func TestRegistryStaleDisconnectKeepsNewEntry(t *testing.T) {
	r := NewRegistry()
	old := newTestClient("old")
	fresh := newTestClient("fresh")

	// El usuario se re-registra desde una conexión nueva y después llega
	// el disconnect tardío de la vieja: la entrada nueva debe sobrevivir.
	r.Register(1, old)
	r.Register(1, fresh)
	r.Unregister(old)

	got, ok := r.Lookup(1)
	if !ok || got.(*Client) != fresh {
		t.Fatalf("expected fresh entry to survive stale disconnect")
	}
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register(3, newTestClient("c"))
	r.Register(1, newTestClient("a"))
	r.Register(2, newTestClient("b"))

	got := r.Snapshot()
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newTestClient("c")
			userID := int64(i % 4)
			r.Register(userID, c)
			r.Lookup(userID)
			r.Unregister(c)
		}(i)
	}
	wg.Wait()
}
