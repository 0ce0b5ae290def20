package routes

import (
	"Hollows/internal/api/handlers/mention"
	"Hollows/internal/core/mentions"

	"github.com/go-chi/chi/v5"
)

// RegisterMentionRoutes registers mention-related XRPC endpoints
// All endpoints are public; the viewer identity, when present, is resolved
// by the router-wide OptionalViewer middleware before requests arrive here
func RegisterMentionRoutes(r chi.Router, mentionService mentions.Service) {
	// Create handlers
	getMentionedByHandler := mention.NewGetMentionedByHandler(mentionService)
	getMentionsHandler := mention.NewGetMentionsHandler(mentionService)
	getThreadHandler := mention.NewGetThreadHandler(mentionService)

	// GET /xrpc/social.hollows.mention.getMentionedBy
	// The viewer identity narrows which mentioning posts are returned
	r.Get("/xrpc/social.hollows.mention.getMentionedBy", getMentionedByHandler.HandleGetMentionedBy)

	// GET /xrpc/social.hollows.mention.getMentions
	// No viewer-specific state
	r.Get("/xrpc/social.hollows.mention.getMentions", getMentionsHandler.HandleGetMentions)

	// GET /xrpc/social.hollows.thread.getThread
	// The viewer identity narrows each post's mentioned-by list
	r.Get("/xrpc/social.hollows.thread.getThread", getThreadHandler.HandleGetThread)
}
