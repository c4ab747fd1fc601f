package bsky

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quillhq/skypress/domain"
)

// newSessionServer fakes the PDS session endpoints.
func newSessionServer(t *testing.T, createStatus, refreshStatus int, session domain.SessionResponse) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/xrpc/" + createSessionEndpoint:
			var req domain.SessionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("createSession: bad request body: %v", err)
			}
			w.WriteHeader(createStatus)
			json.NewEncoder(w).Encode(session)
		case "/xrpc/" + refreshSessionEndpoint:
			w.WriteHeader(refreshStatus)
			json.NewEncoder(w).Encode(session)
		default:
			t.Errorf("Unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAccount(store *fakeStore, connected bool) *domain.Account {
	acc := &domain.Account{
		Id:        uuid.New(),
		Username:  "alice",
		CreatedAt: time.Now(),
	}
	if connected {
		acc.BskyHandle = "alice.bsky.social"
		acc.BskyAccessJwt = "old-access"
		acc.BskyRefreshJwt = "old-refresh"
		acc.BskyLastComm = time.Now()
	}
	store.accounts[acc.Id] = acc
	return acc
}

func TestCreateSession(t *testing.T) {
	server := newSessionServer(t, http.StatusOK, http.StatusOK, domain.SessionResponse{
		AccessJwt:  "access-jwt",
		RefreshJwt: "refresh-jwt",
		Handle:     "alice.bsky.social",
	})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))

	session, err := sm.CreateSession("alice.bsky.social", "app-password")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if session.AccessJwt != "access-jwt" {
		t.Errorf("Expected access-jwt, got %s", session.AccessJwt)
	}
	if session.RefreshJwt != "refresh-jwt" {
		t.Errorf("Expected refresh-jwt, got %s", session.RefreshJwt)
	}
}

func TestCreateSessionRejected(t *testing.T) {
	server := newSessionServer(t, http.StatusUnauthorized, http.StatusOK, domain.SessionResponse{})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))

	_, err := sm.CreateSession("alice.bsky.social", "wrong-password")
	if !errors.Is(err, ErrAuth) {
		t.Errorf("Expected ErrAuth, got %v", err)
	}
}

func TestCreateSessionIncompleteResponse(t *testing.T) {
	// 200 but only one token: treated as auth failure, not a panic
	server := newSessionServer(t, http.StatusOK, http.StatusOK, domain.SessionResponse{
		AccessJwt: "access-only",
	})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))

	_, err := sm.CreateSession("alice.bsky.social", "app-password")
	if !errors.Is(err, ErrAuth) {
		t.Errorf("Expected ErrAuth for incomplete response, got %v", err)
	}
}

func TestCreateSessionTransportFailure(t *testing.T) {
	store := newFakeStore()
	conf := testConf("http://127.0.0.1:1/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))

	_, err := sm.CreateSession("alice.bsky.social", "app-password")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Expected ErrTransport, got %v", err)
	}
}

func TestConnectPersistsLinkState(t *testing.T) {
	server := newSessionServer(t, http.StatusOK, http.StatusOK, domain.SessionResponse{
		AccessJwt:  "access-jwt",
		RefreshJwt: "refresh-jwt",
	})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	vault := testVault(conf)
	sm := NewSessionManager(store, conf, vault)
	acc := newTestAccount(store, false)

	err := sm.Connect(acc.Id, "  @alice.bsky.social ", "app-password")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	got := store.account(acc.Id)
	if got.BskyHandle != "alice.bsky.social" {
		t.Errorf("Expected trimmed handle, got '%s'", got.BskyHandle)
	}
	if got.BskyAccessJwt != "access-jwt" || got.BskyRefreshJwt != "refresh-jwt" {
		t.Error("Expected token pair to be persisted")
	}
	if got.BskyLastComm.IsZero() {
		t.Error("Expected last communication to be set")
	}
	if got.BskyPasswordEnc == "" || got.BskyPasswordEnc == "app-password" {
		t.Error("Expected password to be stored encrypted")
	}

	plain, err := vault.Decrypt(got.BskyPasswordEnc)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if plain != "app-password" {
		t.Errorf("Expected decrypted password to round-trip, got '%s'", plain)
	}
}

func TestConnectFailureLeavesStoreUntouched(t *testing.T) {
	server := newSessionServer(t, http.StatusUnauthorized, http.StatusOK, domain.SessionResponse{})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))
	acc := newTestAccount(store, false)

	err := sm.Connect(acc.Id, "alice.bsky.social", "wrong-password")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Expected ErrAuth, got %v", err)
	}

	got := store.account(acc.Id)
	if got.Connected() {
		t.Error("Failed connect must not persist any link state")
	}
}

func TestDisconnect(t *testing.T) {
	store := newFakeStore()
	conf := testConf("http://unused/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))
	acc := newTestAccount(store, true)

	err := sm.Disconnect(acc.Id)
	if err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	got := store.account(acc.Id)
	if got.Connected() {
		t.Error("Expected account to be disconnected")
	}
	if got.BskyPasswordEnc != "" {
		t.Error("Expected stored password to be deleted")
	}
}

func TestIsStale(t *testing.T) {
	store := newFakeStore()
	conf := testConf("http://unused/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))

	fresh := &domain.Account{BskyLastComm: time.Now().Add(-time.Minute)}
	if sm.IsStale(fresh) {
		t.Error("Session used a minute ago should not be stale")
	}

	stale := &domain.Account{BskyLastComm: time.Now().Add(-16 * time.Minute)}
	if !sm.IsStale(stale) {
		t.Error("Session unused for 16 minutes should be stale")
	}

	never := &domain.Account{}
	if !sm.IsStale(never) {
		t.Error("Session without any recorded communication should be stale")
	}
}

func TestRefreshUpdatesTokens(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/"+refreshSessionEndpoint {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(domain.SessionResponse{
			AccessJwt:  "new-access",
			RefreshJwt: "new-refresh",
		})
	}))
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))
	acc := newTestAccount(store, true)

	err := sm.Refresh(acc)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if gotAuth != "Bearer old-refresh" {
		t.Errorf("Expected refresh token as bearer, got '%s'", gotAuth)
	}

	got := store.account(acc.Id)
	if got.BskyAccessJwt != "new-access" || got.BskyRefreshJwt != "new-refresh" {
		t.Error("Expected new token pair to be persisted")
	}
}

func TestRefreshFailureMutatesNothing(t *testing.T) {
	server := newSessionServer(t, http.StatusOK, http.StatusBadRequest, domain.SessionResponse{})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))
	acc := newTestAccount(store, true)

	err := sm.Refresh(acc)
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Expected ErrAuth, got %v", err)
	}

	got := store.account(acc.Id)
	if got.BskyAccessJwt != "old-access" || got.BskyRefreshJwt != "old-refresh" {
		t.Error("Failed refresh must not touch the stored tokens")
	}
}

func TestReauthenticate(t *testing.T) {
	server := newSessionServer(t, http.StatusOK, http.StatusOK, domain.SessionResponse{
		AccessJwt:  "fresh-access",
		RefreshJwt: "fresh-refresh",
	})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	vault := testVault(conf)
	sm := NewSessionManager(store, conf, vault)
	acc := newTestAccount(store, true)

	passwordEnc, _ := vault.Encrypt("app-password")
	acc.BskyPasswordEnc = passwordEnc
	store.accounts[acc.Id] = acc

	err := sm.Reauthenticate(acc)
	if err != nil {
		t.Fatalf("Reauthenticate failed: %v", err)
	}

	got := store.account(acc.Id)
	if got.BskyAccessJwt != "fresh-access" || got.BskyRefreshJwt != "fresh-refresh" {
		t.Error("Expected fresh token pair after re-authentication")
	}
	if got.BskyPasswordEnc != passwordEnc {
		t.Error("Expected stored password to survive re-authentication")
	}
}

func TestReauthenticateWithoutStoredPassword(t *testing.T) {
	store := newFakeStore()
	conf := testConf("http://unused/xrpc/")
	sm := NewSessionManager(store, conf, testVault(conf))
	acc := newTestAccount(store, true)

	err := sm.Reauthenticate(acc)
	if !errors.Is(err, ErrAuth) {
		t.Errorf("Expected ErrAuth without stored password, got %v", err)
	}
}

func TestEnsureFreshFallsBackToReauth(t *testing.T) {
	// Refresh endpoint rejects, createSession succeeds
	server := newSessionServer(t, http.StatusOK, http.StatusBadRequest, domain.SessionResponse{
		AccessJwt:  "reauth-access",
		RefreshJwt: "reauth-refresh",
	})
	defer server.Close()

	store := newFakeStore()
	conf := testConf(server.URL + "/xrpc/")
	vault := testVault(conf)
	sm := NewSessionManager(store, conf, vault)
	acc := newTestAccount(store, true)

	passwordEnc, _ := vault.Encrypt("app-password")
	acc.BskyPasswordEnc = passwordEnc
	store.accounts[acc.Id] = acc

	err := sm.EnsureFresh(acc)
	if err != nil {
		t.Fatalf("EnsureFresh failed: %v", err)
	}

	got := store.account(acc.Id)
	if got.BskyAccessJwt != "reauth-access" {
		t.Errorf("Expected re-authentication tokens, got %s", got.BskyAccessJwt)
	}
}
