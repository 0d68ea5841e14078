package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eyedraw/eyedraw/internal/controller"
	"github.com/eyedraw/eyedraw/internal/page"
)

const releaseTimeout = 10 * time.Second

// Pages opens and releases the page behind a room.
type Pages interface {
	Open(ctx context.Context, pageID string) (*page.Page, error)
	Release(ctx context.Context, pageID string) error
}

type Room struct {
	pageID   string
	page     *page.Page
	clients  map[string]*Client // clientID -> client
	presence *PresenceManager
	unwatch  func()
	seq      atomic.Int64
}

func NewRoom(p *page.Page) *Room {
	return &Room{
		pageID:   p.ID,
		page:     p,
		clients:  make(map[string]*Client),
		presence: NewPresenceManager(),
	}
}

type Hub struct {
	pages Pages

	mu         sync.RWMutex
	rooms      map[string]*Room // pageID -> room
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
}

func NewHub(pages Pages) *Hub {
	return &Hub{
		pages:      pages,
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run serves joins and leaves until Stop. Rooms are only created and
// dropped here.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			return
		}
	}
}

// Stop ends Run, disconnects every client and releases their pages, which
// flushes unsaved edits.
func (h *Hub) Stop(ctx context.Context) {
	close(h.stop)
	<-h.done

	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for id, room := range rooms {
		room.unwatch()
		for _, c := range room.clients {
			c.close()
		}
		if err := h.pages.Release(ctx, id); err != nil {
			slog.Error("release page", "page", id, "error", err)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	ctx := context.Background()

	h.mu.RLock()
	room, ok := h.rooms[client.PageID]
	h.mu.RUnlock()
	if !ok {
		p, err := h.pages.Open(ctx, client.PageID)
		if err != nil {
			slog.Error("open page", "page", client.PageID, "error", err)
			client.Send(errorMessage("page could not be opened"))
			client.close()
			return
		}
		room = NewRoom(p)
		room.unwatch = p.Watch(func(c page.Change) { h.broadcastChange(room, c) })
	}

	h.mu.Lock()
	h.rooms[client.PageID] = room
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID, UserID: client.UserID})
	client.Send(&Message{Type: TypeWelcome, PageID: room.pageID, Payload: welcome})

	state, err := pageState(ctx, room.page)
	if err != nil {
		slog.Error("page state", "page", room.pageID, "error", err)
		client.Send(errorMessage("page state unavailable"))
	} else {
		state.ServerSeq = room.seq.Load()
		payload, _ := json.Marshal(state)
		client.Send(&Message{Type: TypePageState, PageID: room.pageID, Payload: payload})
	}

	// Send current presence state to new client
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.PageID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "page", client.PageID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.PageID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := room.clients[client.ClientID]; !member {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.PageID)
	}
	h.mu.Unlock()

	if empty {
		room.unwatch()
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := h.pages.Release(ctx, room.pageID); err != nil {
			slog.Error("release page", "page", room.pageID, "error", err)
		}
	} else {
		leavePayload, _ := json.Marshal(PresenceLeavePayload{UserID: client.UserID})
		leaveMsg := &Message{
			Type:    TypePresenceLeave,
			UserID:  client.UserID,
			Payload: leavePayload,
		}
		h.broadcastToRoom(client.PageID, leaveMsg, "")
	}

	slog.Info("client left", "user", client.UserID, "page", client.PageID)
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOperation(ctx, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	room, ok := h.room(sender.PageID)
	if !ok {
		return
	}
	room.presence.Update(sender.ClientID, &presence)
	h.broadcastPresence(sender, &presence)
}

func (h *Hub) broadcastPresence(sender *Client, presence *PresencePayload) {
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:     TypePresenceUpdate,
		UserID:   sender.UserID,
		ClientID: sender.ClientID,
		Payload:  outPayload,
	}
	h.broadcastToRoom(sender.PageID, outMsg, sender.ClientID)
}

func (h *Hub) handleOperation(ctx context.Context, sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid operation payload", "error", err, "user", sender.UserID)
		sender.Send(errorMessage("invalid operation payload"))
		return
	}
	op := submit.Operation

	room, ok := h.room(sender.PageID)
	if !ok {
		return
	}

	var created string
	err := room.page.Controller(ctx, op.Drawing, func(c *controller.Controller) error {
		id, err := applyOperation(c.Drawing(), op)
		created = id
		return err
	})
	if err != nil {
		slog.Debug("operation rejected", "op", op.Type, "drawing", op.Drawing, "error", err)
		payload, _ := json.Marshal(OperationNackPayload{OperationID: op.ID, Reason: err.Error()})
		sender.Send(&Message{Type: TypeOpNack, PageID: room.pageID, Payload: payload})
		return
	}

	payload, _ := json.Marshal(OperationAckPayload{
		OperationID: op.ID,
		ServerSeq:   room.seq.Load(),
		DoodleID:    created,
	})
	sender.Send(&Message{Type: TypeOpAck, PageID: room.pageID, Payload: payload})

	// editing a drawing moves the editor's presence onto it
	if moved := room.presence.Focus(sender.ClientID, sender.DisplayName, op.Drawing); moved != nil {
		h.broadcastPresence(sender, moved)
	}
}

// broadcastChange runs on the page loop.
func (h *Hub) broadcastChange(room *Room, c page.Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		slog.Error("marshal change", "error", err)
		return
	}
	msg := &Message{
		Type:    c.Type,
		PageID:  room.pageID,
		Seq:     room.seq.Add(1),
		Payload: payload,
	}
	h.broadcastToRoom(room.pageID, msg, "")
}

func (h *Hub) room(pageID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[pageID]
	return room, ok
}

func (h *Hub) broadcastToRoom(pageID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[pageID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Message: text})
	return &Message{Type: TypeError, Payload: payload}
}
