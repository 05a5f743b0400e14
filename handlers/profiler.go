package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/nori-cloud/story/core"
	"github.com/nori-cloud/story/profiler"
)

// profilerRequest is the action-discriminated body of POST /api/profiler/chat.
// Fields beyond Action are interpreted per action.
type profilerRequest struct {
	Action string `json:"action"`

	// init
	URLs               []string `json:"urls,omitempty"`
	MaxHistoryMessages int      `json:"maxHistoryMessages,omitempty"`

	// chat / clear / getTokenCount / getHistory / delete
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
	// Tone optionally switches the session's tone before a chat turn.
	Tone string `json:"tone,omitempty"`
}

type profilerErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type initResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

type chatResponse struct {
	Success    bool            `json:"success"`
	Response   string          `json:"response"`
	History    []core.ChatTurn `json:"history"`
	TokenCount int             `json:"tokenCount"`
}

type okResponse struct {
	Success bool `json:"success"`
}

type tokenCountResponse struct {
	Success    bool `json:"success"`
	TokenCount int  `json:"tokenCount"`
}

type historyResponse struct {
	Success bool            `json:"success"`
	History []core.ChatTurn `json:"history"`
}

// ProfilerHandler serves the session-scoped profiler chat API.
type ProfilerHandler struct {
	store       *profiler.SessionStore
	defaultURLs []string
	logger      *core.Logger
}

// NewProfilerHandler creates the handler for POST /api/profiler/chat.
func NewProfilerHandler(store *profiler.SessionStore, logger *core.Logger) *ProfilerHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ProfilerHandler{
		store:  store,
		logger: logger.With(map[string]any{"component": "profiler-api"}),
	}
}

// SetDefaultURLs sets the document URLs used by init requests that carry
// none of their own.
func (h *ProfilerHandler) SetDefaultURLs(urls []string) {
	h.defaultURLs = urls
}

func (h *ProfilerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeProfilerError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeProfilerError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req profilerRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		writeProfilerError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Action {
	case "init":
		h.handleInit(w, r, req)
	case "chat":
		h.handleChat(w, r, req)
	case "clear":
		h.handleClear(w, req)
	case "getTokenCount":
		h.handleGetTokenCount(w, req)
	case "getHistory":
		h.handleGetHistory(w, req)
	case "delete":
		h.handleDelete(w, req)
	default:
		writeProfilerError(w, http.StatusBadRequest, "Invalid action")
	}
}

func (h *ProfilerHandler) handleInit(w http.ResponseWriter, r *http.Request, req profilerRequest) {
	if len(req.URLs) == 0 {
		req.URLs = h.defaultURLs
	}
	if len(req.URLs) == 0 {
		writeProfilerError(w, http.StatusBadRequest, "URLs array is required")
		return
	}
	for _, u := range req.URLs {
		if err := profiler.ValidateURL(u); err != nil {
			writeProfilerError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sessionID, err := h.store.Create(r.Context(), req.URLs, req.MaxHistoryMessages)
	if err != nil {
		h.logger.With(map[string]any{"error": err}).Error("session create failed")
		writeProfilerError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, initResponse{Success: true, SessionID: sessionID})
}

func (h *ProfilerHandler) handleChat(w http.ResponseWriter, r *http.Request, req profilerRequest) {
	if req.SessionID == "" || req.Message == "" {
		writeProfilerError(w, http.StatusBadRequest, "sessionId and message are required")
		return
	}

	if req.Tone != "" {
		if err := h.store.SetTone(req.SessionID, profiler.Tone(req.Tone)); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}

	response, err := h.store.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	history, err := h.store.History(req.SessionID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	tokenCount, err := h.store.TokenCount(req.SessionID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Success:    true,
		Response:   response,
		History:    history,
		TokenCount: tokenCount,
	})
}

func (h *ProfilerHandler) handleClear(w http.ResponseWriter, req profilerRequest) {
	if req.SessionID == "" {
		writeProfilerError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if err := h.store.ClearHistory(req.SessionID); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *ProfilerHandler) handleGetTokenCount(w http.ResponseWriter, req profilerRequest) {
	if req.SessionID == "" {
		writeProfilerError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	tokenCount, err := h.store.TokenCount(req.SessionID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenCountResponse{Success: true, TokenCount: tokenCount})
}

func (h *ProfilerHandler) handleGetHistory(w http.ResponseWriter, req profilerRequest) {
	if req.SessionID == "" {
		writeProfilerError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	history, err := h.store.History(req.SessionID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if history == nil {
		history = []core.ChatTurn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, History: history})
}

func (h *ProfilerHandler) handleDelete(w http.ResponseWriter, req profilerRequest) {
	if req.SessionID == "" {
		writeProfilerError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	// Idempotent: deleting an absent session is still a success.
	h.store.Delete(req.SessionID)
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

// writeStoreError maps store errors onto the uniform envelope: unknown
// session is a client error, everything else an internal one.
func (h *ProfilerHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, profiler.ErrSessionNotFound) {
		writeProfilerError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.logger.With(map[string]any{"error": err}).Error("profiler operation failed")
	writeProfilerError(w, http.StatusInternalServerError, err.Error())
}

func writeProfilerError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, profilerErrorResponse{Success: false, Error: msg})
}
