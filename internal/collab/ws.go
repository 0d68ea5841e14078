package collab

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Identity is who a websocket connection acts as.
type Identity struct {
	UserID      string
	DisplayName string
}

// Identify authenticates a websocket upgrade for a page. A returned error
// is sent as 401.
type Identify func(r *http.Request, pageID string) (Identity, error)

// ServeWS upgrades /ws/page/{pageId} requests and joins them to the page's
// room.
func (h *Hub) ServeWS(identify Identify, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageID := mux.Vars(r)["pageId"]
		if pageID == "" {
			http.Error(w, "missing page id", http.StatusBadRequest)
			return
		}

		who, err := identify(r, pageID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			slog.Error("websocket accept", "error", err)
			return
		}

		client := NewClient(h, conn, who.UserID, who.DisplayName, pageID, uuid.New().String())
		h.Register(client)

		ctx := r.Context()
		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
