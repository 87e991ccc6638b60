package ws

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"chatcore/internal/domain"
	"chatcore/internal/fanout"
	"chatcore/internal/security"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol),
// then manages the client's conversation subscriptions:
//   - subscribe    -> join a conversation channel (participants only)
//   - unsubscribe  -> leave a conversation channel
//
// Subscription membership is ephemeral: all of the client's channels are
// dropped on disconnect and must be re-established on reconnect.
func MakeHandler(
	registry *fanout.Registry,
	tokens *security.TokenService,
	participants domain.ParticipantRepository,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := &client{userID: userID, conn: conn}
		defer registry.Drop(c)

		ctx := r.Context()
		for {
			var payload struct {
				Type           string `json:"type"`
				ConversationID int64  `json:"conversation_id"`
			}
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}

			switch payload.Type {
			case "subscribe":
				if payload.ConversationID == 0 {
					sendError(c, "subscribe requires conversation_id")
					continue
				}
				ok, err := participants.IsParticipant(ctx, payload.ConversationID, userID)
				if err != nil {
					log.Printf("ws: check participant: %v", err)
					sendError(c, "failed to subscribe")
					continue
				}
				if !ok {
					sendError(c, "not allowed for this conversation")
					continue
				}
				registry.Subscribe(payload.ConversationID, c)
				_ = c.Send(map[string]any{
					"type":            "subscribed",
					"conversation_id": payload.ConversationID,
				})

			case "unsubscribe":
				if payload.ConversationID == 0 {
					continue
				}
				registry.Unsubscribe(payload.ConversationID, c)
				_ = c.Send(map[string]any{
					"type":            "unsubscribed",
					"conversation_id": payload.ConversationID,
				})

			default:
				log.Printf("ws: unknown event type %q from user %d", payload.Type, userID)
			}
		}
	}
}

func sendError(c *client, msg string) {
	_ = c.Send(map[string]any{
		"type":    "error",
		"message": msg,
	})
}
