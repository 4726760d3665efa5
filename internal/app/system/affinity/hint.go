package affinity

import (
	"net/http"

	"github.com/gorilla/securecookie"
)

// HintCookie is the cookie carrying the workspace selection hint.
const HintCookie = "quire_ws"

// HintCodec reads and writes the selection hint cookie. The cookie is
// HMAC-signed so casual tampering is dropped at decode time, but a
// decoded value is still only a hint; SelectWorkspace re-validates it
// against the caller's real membership set on every request.
type HintCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewHintCodec builds a codec signing with hashKey (32+ random bytes).
func NewHintCodec(hashKey []byte, secure bool) *HintCodec {
	return &HintCodec{
		sc:     securecookie.New(hashKey, nil),
		secure: secure,
	}
}

// Read returns the hinted workspace id, or "" when the cookie is
// absent or fails to decode. A bad cookie behaves exactly like no
// cookie; it is never an error the caller sees.
func (c *HintCodec) Read(r *http.Request) string {
	cookie, err := r.Cookie(HintCookie)
	if err != nil {
		return ""
	}
	var workspaceID string
	if err := c.sc.Decode(HintCookie, cookie.Value, &workspaceID); err != nil {
		return ""
	}
	return workspaceID
}

// Write stores workspaceID as the new hint.
func (c *HintCodec) Write(w http.ResponseWriter, workspaceID string) error {
	encoded, err := c.sc.Encode(HintCookie, workspaceID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     HintCookie,
		Value:    encoded,
		Path:     "/",
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear drops the hint cookie.
func (c *HintCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     HintCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
