package bsky

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/quillhq/skypress/domain"
	"github.com/quillhq/skypress/util"
)

const (
	createSessionEndpoint  = "com.atproto.server.createSession"
	refreshSessionEndpoint = "com.atproto.server.refreshSession"
)

// SessionManager handles the Bluesky token lifecycle for linked
// accounts: initial login, refresh, re-authentication from the stored
// password, and the staleness check that gates every publish attempt.
type SessionManager struct {
	store  Store
	conf   *util.AppConfig
	vault  *util.Vault
	client *http.Client
}

func NewSessionManager(store Store, conf *util.AppConfig, vault *util.Vault) *SessionManager {
	return &SessionManager{
		store:  store,
		conf:   conf,
		vault:  vault,
		client: &http.Client{Timeout: conf.AuthTimeout()},
	}
}

// CreateSession performs a fresh login and returns the token pair.
func (sm *SessionManager) CreateSession(handle, password string) (*domain.SessionResponse, error) {
	body, err := json.Marshal(domain.SessionRequest{Identifier: handle, Password: password})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	req, err := http.NewRequest("POST", sm.conf.Conf.ApiBase+createSessionEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sm.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: createSession returned status %d", ErrAuth, resp.StatusCode)
	}

	var session domain.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%w: malformed session response: %v", ErrAuth, err)
	}
	if !session.Complete() {
		return nil, fmt.Errorf("%w: session response missing tokens", ErrAuth)
	}

	return &session, nil
}

// Connect logs the author into Bluesky and persists the full link
// state: handle, token pair and the encrypted password for later
// re-authentication.
func (sm *SessionManager) Connect(accountId uuid.UUID, handle, password string) error {
	handle = util.TrimHandle(handle)

	session, err := sm.CreateSession(handle, password)
	if err != nil {
		return err
	}

	passwordEnc, err := sm.vault.Encrypt(password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	if err := sm.store.UpdateBskyCredentials(accountId, handle, session.AccessJwt, session.RefreshJwt, passwordEnc, time.Now()); err != nil {
		return err
	}

	log.Printf("SessionManager: Linked account %s to Bluesky handle %s", accountId, handle)
	return nil
}

// Disconnect removes the entire link state: handle, tokens, encrypted
// password, last communication.
func (sm *SessionManager) Disconnect(accountId uuid.UUID) error {
	if err := sm.store.ClearBskyCredentials(accountId); err != nil {
		return err
	}
	log.Printf("SessionManager: Unlinked account %s from Bluesky", accountId)
	return nil
}

// IsStale reports whether the account's session has gone unused long
// enough to require a refresh before the next API call.
func (sm *SessionManager) IsStale(acc *domain.Account) bool {
	if acc.BskyLastComm.IsZero() {
		return true
	}
	return time.Since(acc.BskyLastComm) > sm.conf.StaleAfter()
}

// Refresh exchanges the refresh token for a new token pair. On failure
// nothing in the store is mutated.
func (sm *SessionManager) Refresh(acc *domain.Account) error {
	req, err := http.NewRequest("POST", sm.conf.Conf.ApiBase+refreshSessionEndpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+acc.BskyRefreshJwt)

	resp, err := sm.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: refreshSession returned status %d", ErrAuth, resp.StatusCode)
	}

	var session domain.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("%w: malformed refresh response: %v", ErrAuth, err)
	}
	if !session.Complete() {
		return fmt.Errorf("%w: refresh response missing tokens", ErrAuth)
	}

	return sm.store.UpdateBskyTokens(acc.Id, session.AccessJwt, session.RefreshJwt, time.Now())
}

// Reauthenticate performs a full login from the stored encrypted
// password. Used when the refresh token itself has expired.
func (sm *SessionManager) Reauthenticate(acc *domain.Account) error {
	if acc.BskyPasswordEnc == "" {
		return fmt.Errorf("%w: no stored password for account %s", ErrAuth, acc.Id)
	}

	password, err := sm.vault.Decrypt(acc.BskyPasswordEnc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	session, err := sm.CreateSession(acc.BskyHandle, password)
	if err != nil {
		return err
	}

	return sm.store.UpdateBskyCredentials(acc.Id, acc.BskyHandle, session.AccessJwt, session.RefreshJwt, acc.BskyPasswordEnc, time.Now())
}

// EnsureFresh revalidates a stale session: refresh first, full
// re-authentication if the refresh token is rejected too.
func (sm *SessionManager) EnsureFresh(acc *domain.Account) error {
	err := sm.Refresh(acc)
	if err == nil {
		return nil
	}

	log.Printf("SessionManager: Refresh failed for account %s, re-authenticating: %v", acc.Id, err)
	return sm.Reauthenticate(acc)
}
