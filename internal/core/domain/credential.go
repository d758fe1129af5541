package domain

import (
	"encoding/json"
	"fmt"
)

// CachedCredential is the persisted form of a User. Token optionally carries
// the backend's bearer credential so a restart does not drop it.
type CachedCredential struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Token    string `json:"token,omitempty"`
}

// EncodeCredential serialises user and token into the cache payload.
func EncodeCredential(user *User, token string) ([]byte, error) {
	if !user.Valid() {
		return nil, ErrMalformedCredential
	}
	return json.Marshal(CachedCredential{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		Token:    token,
	})
}

// DecodeCredential parses a cache payload. Payloads that do not decode into an
// object with an id and username are rejected with ErrMalformedCredential.
func DecodeCredential(raw []byte) (*User, string, error) {
	var cc CachedCredential
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}
	user := &User{ID: cc.ID, Username: cc.Username, Role: cc.Role}
	if !user.Valid() {
		return nil, "", ErrMalformedCredential
	}
	return user, cc.Token, nil
}
