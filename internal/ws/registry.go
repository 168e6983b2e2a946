package ws

import (
	"sort"
	"sync"

	"satya-chat/internal/service"
)

// Registry es el registro de presencia del proceso: usuario -> conexión
// activa. Última registración gana; no hay fan-out multi-dispositivo. Se
// pierde entero al reiniciar, los clientes deben re-registrarse.
type Registry struct {
	mu      sync.Mutex
	entries map[int64]*Client
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]*Client)}
}

// Register sobreescribe incondicionalmente la entrada del usuario. La
// conexión reemplazada queda abierta pero deja de recibir pushes.
func (r *Registry) Register(userID int64, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = c
}

// Lookup devuelve la conexión viva del usuario, si existe.
func (r *Registry) Lookup(userID int64) (service.Recipient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return c, true
}

// Unregister elimina la entrada que posee exactamente este handle. Si el
// usuario ya se re-registró desde otra conexión, el disconnect tardío de
// la conexión vieja no debe desalojar la entrada nueva; por eso se busca
// por identidad del handle y no por id de usuario.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, entry := range r.entries {
		if entry == c {
			delete(r.entries, userID)
			return
		}
	}
}

// Snapshot devuelve los ids registrados, ordenados.
func (r *Registry) Snapshot() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.entries))
	for userID := range r.entries {
		ids = append(ids, userID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
