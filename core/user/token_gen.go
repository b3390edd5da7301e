package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Password reset tokens are "<base32 day number>-<hmac signature>". The
// signature covers the user's ID, password hash and last login, so a token
// stops working as soon as the password changes or the user logs in.

var (
	salt = []byte("semestrix.core.user.token_gen")

	// set by NewService; package vars so they are mockable in tests
	secretKey                 []byte
	passwordResetTimeoutDelta time.Duration
	nowFunc                   = time.Now

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// makeToken generates a password reset token for a given User.
func makeToken(usr User) (string, error) {
	return makeTokenWithTimestamp(usr, daysSince2001(nowFunc()))
}

func makeTokenWithTimestamp(usr User, ts int) (string, error) {
	sig, err := signUserState(usr, ts)
	if err != nil {
		return "", err
	}
	tsB32 := b32.EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

// verifyToken checks that a password reset token for a given User is valid.
func verifyToken(usr User, token string) error {
	ts, ok := tokenTimestamp(token)
	if !ok {
		return errInvalidToken
	}

	// a token regenerated from the user's current state must match exactly
	want, err := makeTokenWithTimestamp(usr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 0 {
		return errInvalidToken
	}

	if daysSince2001(nowFunc())-ts > int(passwordResetTimeoutDelta/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func tokenTimestamp(token string) (int, bool) {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return 0, false
	}
	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return 0, false
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, false
	}
	return ts, true
}

func daysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func signUserState(usr User, ts int) (string, error) {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		val.WriteString(usr.LastLogin.String())
	}
	val.WriteString(strconv.Itoa(ts))

	key := sha256.Sum256(append(salt, secretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val.Bytes()); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}
