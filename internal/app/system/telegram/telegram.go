// Package telegram verifies Telegram Mini-App init-data payloads.
//
// The payload is a URL-encoded key/value string carrying arbitrary
// fields plus a trailing "hash" field. Verification follows the
// published algorithm: drop "hash", sort the remaining fields by key
// (byte order, not locale-aware), join them as "key=value" lines, then
// HMAC-SHA256 the result with a secret derived from the bot token.
// The comparison against the supplied hash is constant-time.
//
// There is exactly one verification routine. A payload that verifies
// but whose auth_date is older than the staleness window is a
// rejection, not a success with a warning.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quireworks/quire/internal/app/system/authcore"
)

// DefaultMaxAge is the replay window applied when the caller passes a
// non-positive maxAge.
const DefaultMaxAge = time.Hour

// secretSeed is the literal key used to derive the signing secret from
// the bot token, fixed by Telegram's algorithm.
const secretSeed = "WebAppData"

// Identity is the decoded, verified payload. It exists only transiently
// during verification; mapping it to an application user happens
// elsewhere.
type Identity struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	AuthDate  time.Time
}

// user mirrors the JSON object Telegram places in the "user" field.
type user struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Verify authenticates raw init-data against botToken. All failure
// modes (malformed payload, missing hash, signature mismatch, stale
// auth_date) collapse into ErrInvalidCredential.
func Verify(initDataRaw, botToken string, maxAge time.Duration) (Identity, error) {
	return VerifyAt(initDataRaw, botToken, maxAge, time.Now())
}

// VerifyAt is Verify with an explicit clock, for tests.
func VerifyAt(initDataRaw, botToken string, maxAge time.Duration, now time.Time) (Identity, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	values, err := url.ParseQuery(initDataRaw)
	if err != nil {
		return Identity{}, authcore.ErrInvalidCredential.WithCause(err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return Identity{}, authcore.ErrInvalidCredential
	}
	values.Del("hash")

	if !hashMatches(values, botToken, gotHash) {
		return Identity{}, authcore.ErrInvalidCredential
	}

	// Signature is good; now enforce the staleness window.
	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil || authDate <= 0 {
		return Identity{}, authcore.ErrInvalidCredential
	}
	issued := time.Unix(authDate, 0)
	if now.Sub(issued) > maxAge {
		return Identity{}, authcore.ErrInvalidCredential
	}

	id := Identity{AuthDate: issued}
	if raw := values.Get("user"); raw != "" {
		var u user
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return Identity{}, authcore.ErrInvalidCredential.WithCause(err)
		}
		id.UserID = u.ID
		id.Username = u.Username
		id.FirstName = u.FirstName
		id.LastName = u.LastName
	}
	if id.UserID == 0 {
		return Identity{}, authcore.ErrInvalidCredential
	}
	return id, nil
}

// hashMatches computes the reference signature over values and compares
// it, constant-time, with the supplied hex hash.
func hashMatches(values url.Values, botToken, gotHash string) bool {
	want := Sign(values, botToken)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(gotHash))) == 1
}

// Sign computes the hex signature of the given fields (without "hash")
// for botToken. Exported so tests can build reference payloads with the
// same canonicalization the verifier uses.
func Sign(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	dataCheck := strings.Join(lines, "\n")

	seed := hmac.New(sha256.New, []byte(secretSeed))
	seed.Write([]byte(botToken))
	secret := seed.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(dataCheck))
	return hex.EncodeToString(mac.Sum(nil))
}
