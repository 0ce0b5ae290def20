// Package mention provides HTTP handlers for the mention query API.
// These handlers follow XRPC conventions and integrate with the mentions
// service layer.
package mention

import (
	"net/http"
	"strconv"

	"Hollows/internal/api/middleware"
	"Hollows/internal/core/mentions"
)

// GetMentionedByHandler handles mentioned-by retrieval for posts
type GetMentionedByHandler struct {
	service mentions.Service
}

// NewGetMentionedByHandler creates a new handler for fetching the posts
// that mention a subject post
func NewGetMentionedByHandler(service mentions.Service) *GetMentionedByHandler {
	return &GetMentionedByHandler{service: service}
}

// HandleGetMentionedBy handles GET /xrpc/social.hollows.mention.getMentionedBy
// The returned list is already narrowed to what the viewer may see
func (h *GetMentionedByHandler) HandleGetMentionedBy(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	post := query.Get("post")
	if post == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "post parameter is required")
		return
	}

	limit, ok := parseLimit(w, query.Get("limit"))
	if !ok {
		return
	}

	req := &mentions.GetMentionedByRequest{
		PostURI:   post,
		Limit:     limit,
		ViewerDID: middleware.GetViewerDID(r),
	}
	if cursor := query.Get("cursor"); cursor != "" {
		req.Cursor = &cursor
	}

	resp, err := h.service.GetMentionedBy(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, resp)
}

// parseLimit validates the optional limit query parameter
// Writes the error response itself and reports ok=false on bad input
func parseLimit(w http.ResponseWriter, limitStr string) (int, bool) {
	if limitStr == "" {
		return 0, true // Service applies the default
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be a valid integer")
		return 0, false
	}
	if parsed < 1 {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be positive")
		return 0, false
	}
	if parsed > mentions.MaxLimit {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "limit cannot exceed 100")
		return 0, false
	}
	return parsed, true
}
