package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatcore/internal/service"
)

type reactionRequest struct {
	Reaction string `json:"reaction"`
}

func handleAddReaction(reactSvc *service.ReactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgID, err := parseIDParam(r, "messageID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		var req reactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		reaction, err := reactSvc.AddReaction(r.Context(), CurrentUserID(r), msgID, req.Reaction)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, reaction)
	}
}

func handleRemoveReaction(reactSvc *service.ReactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgID, err := parseIDParam(r, "messageID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}
		reaction := chi.URLParam(r, "reaction")
		if reaction == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing reaction"})
			return
		}

		if err := reactSvc.RemoveReaction(r.Context(), CurrentUserID(r), msgID, reaction); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func handleMarkMessageRead(reactSvc *service.ReactionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgID, err := parseIDParam(r, "messageID")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
			return
		}

		if err := reactSvc.MarkMessageRead(r.Context(), CurrentUserID(r), msgID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}
