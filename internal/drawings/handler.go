package drawings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/eyedraw/eyedraw/internal/document"
	"github.com/eyedraw/eyedraw/internal/engine"
	"github.com/eyedraw/eyedraw/internal/page"
)

const contentMsgpack = "application/msgpack"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the handlers on r, which is expected to be the /api
// subrouter.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/pages/{pageId}", h.GetPage).Methods("GET")
	r.HandleFunc("/pages/{pageId}/report", h.GetReport).Methods("GET")
	r.HandleFunc("/pages/{pageId}/snapshots", h.ListSnapshots).Methods("GET")
	r.HandleFunc("/pages/{pageId}/drawings/{name}", h.GetDrawing).Methods("GET")
	r.HandleFunc("/pages/{pageId}/drawings/{name}/scene", h.GetScene).Methods("GET")
	r.HandleFunc("/pages/{pageId}/drawings/{name}/commands", h.RunCommands).Methods("POST")
	r.HandleFunc("/pages/{pageId}/drawings/{name}/parameters", h.SetParameters).Methods("PUT")
}

type parametersRequest struct {
	Class  string            `json:"class"`
	Values map[string]string `json:"values"`
}

func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Page(r.Context(), mux.Vars(r)["pageId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetDrawing answers in msgpack when the client asks for it.
func (h *Handler) GetDrawing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doc, err := h.service.Drawing(r.Context(), vars["pageId"], vars["name"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), contentMsgpack) {
		data, err := document.EncodeMsgpack(doc)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", contentMsgpack)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	scene, err := h.service.Scene(r.Context(), vars["pageId"], vars["name"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.Reports(r.Context(), mux.Vars(r)["pageId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.service.History(r.Context(), mux.Vars(r)["pageId"])
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// RunCommands takes a list of ["method", [args]] pairs, or a msgpack
// encoding of the same.
func (h *Handler) RunCommands(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var cmds []engine.Command
	if err := decodeCommands(r, &cmds); err != nil || len(cmds) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected a list of commands"})
		return
	}

	if err := h.service.RunCommands(r.Context(), vars["pageId"], vars["name"], cmds); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeCommands(r *http.Request, cmds *[]engine.Command) error {
	if r.Header.Get("Content-Type") != contentMsgpack {
		return json.NewDecoder(r.Body).Decode(cmds)
	}
	var pairs [][]any
	if err := msgpack.NewDecoder(r.Body).Decode(&pairs); err != nil {
		return err
	}
	for _, pair := range pairs {
		if len(pair) == 0 {
			return errors.New("empty command")
		}
		method, ok := pair[0].(string)
		if !ok {
			return errors.New("command method must be a string")
		}
		c := engine.Command{Method: method, Args: []any{}}
		if len(pair) > 1 {
			args, ok := pair[1].([]any)
			if !ok {
				return errors.New("command args must be a list")
			}
			c.Args = args
		}
		*cmds = append(*cmds, c)
	}
	return nil
}

func (h *Handler) SetParameters(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req parametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Class == "" || len(req.Values) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "class and values are required"})
		return
	}

	if err := h.service.SetParameters(r.Context(), vars["pageId"], vars["name"], req.Class, req.Values); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleServiceError(w http.ResponseWriter, err error) {
	var invalid *engine.ValidationError
	switch {
	case errors.Is(err, page.ErrNoDrawing), errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNoHistory):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no saved history"})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrUnknownCommand), errors.Is(err, engine.ErrUnknownClass):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("service error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
