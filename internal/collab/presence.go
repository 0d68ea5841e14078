package collab

import (
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
)

// PresenceManager tracks what each connected client is looking at, keyed
// by client id. A clinician with two tabs open has two entries.
type PresenceManager struct {
	mu      sync.RWMutex
	clients map[string]*PresencePayload
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{clients: make(map[string]*PresencePayload)}
}

// Update replaces a client's presence. The drawing it last edited is kept
// when the update does not name one.
func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if prev, ok := pm.clients[clientID]; ok && p.Drawing == "" {
		p.Drawing = prev.Drawing
	}
	pm.clients[clientID] = p
}

// Focus moves a client onto drawing. It returns the new presence, or nil
// when the client was already there.
func (pm *PresenceManager) Focus(clientID, displayName, drawing string) *PresencePayload {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.clients[clientID]
	if ok && p.Drawing == drawing {
		return nil
	}
	next := &PresencePayload{Drawing: drawing, DisplayName: displayName}
	if ok {
		cp := *p
		cp.Drawing = drawing
		cp.Selection = nil
		next = &cp
	}
	pm.clients[clientID] = next
	return next
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.clients, clientID)
}

// Viewers lists the clients whose presence is on drawing.
func (pm *PresenceManager) Viewers(drawing string) []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	var out []string
	for id, p := range pm.clients {
		if p.Drawing == drawing {
			out = append(out, id)
		}
	}
	return out
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return maps.Clone(pm.clients)
}

func (pm *PresenceManager) StateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
