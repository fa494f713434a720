package web

import (
	"net/http"

	"github.com/google/uuid"
)

const sessionCookie = "dp_session"

// sessionID returns a stable caller identity: an explicit session_id
// parameter wins, then the session cookie, then a freshly minted UUID
// which is also set as a cookie so the same browser keeps it.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if id := r.URL.Query().Get("session_id"); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 30,
		HttpOnly: true,
	})
	return id
}
