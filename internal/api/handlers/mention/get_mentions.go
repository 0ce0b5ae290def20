package mention

import (
	"net/http"

	"Hollows/internal/core/mentions"
)

// GetMentionsHandler handles retrieval of what a post mentions
type GetMentionsHandler struct {
	service mentions.Service
}

// NewGetMentionsHandler creates a new handler for fetching a post's
// outgoing mentions
func NewGetMentionsHandler(service mentions.Service) *GetMentionsHandler {
	return &GetMentionsHandler{service: service}
}

// HandleGetMentions handles GET /xrpc/social.hollows.mention.getMentions
// Outgoing mentions are read-through: they render inside the post body and
// are not visibility-filtered
func (h *GetMentionsHandler) HandleGetMentions(w http.ResponseWriter, r *http.Request) {
	post := r.URL.Query().Get("post")
	if post == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "post parameter is required")
		return
	}

	resp, err := h.service.GetMentions(r.Context(), &mentions.GetMentionsRequest{PostURI: post})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, resp)
}
