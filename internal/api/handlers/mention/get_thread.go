package mention

import (
	"net/http"

	"Hollows/internal/api/middleware"
	"Hollows/internal/core/mentions"
)

// GetThreadHandler handles thread retrieval with mentioned-by attached
type GetThreadHandler struct {
	service mentions.Service
}

// NewGetThreadHandler creates a new handler for fetching threads
func NewGetThreadHandler(service mentions.Service) *GetThreadHandler {
	return &GetThreadHandler{service: service}
}

// HandleGetThread handles GET /xrpc/social.hollows.thread.getThread
func (h *GetThreadHandler) HandleGetThread(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	thread := query.Get("thread")
	if thread == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "thread parameter is required")
		return
	}

	limit, ok := parseLimit(w, query.Get("limit"))
	if !ok {
		return
	}

	req := &mentions.GetThreadRequest{
		ThreadURI: thread,
		Limit:     limit,
		ViewerDID: middleware.GetViewerDID(r),
	}
	if cursor := query.Get("cursor"); cursor != "" {
		req.Cursor = &cursor
	}

	resp, err := h.service.GetThread(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, resp)
}
