package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidelas/safety-agent/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(server.URL, 5*time.Second, slog.Default())
	require.NoError(t, err)
	return client
}

func TestCreateAlertSuccess(t *testing.T) {
	var got model.Coordinates

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/alertas-emergencia", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"whatsappLinks":[{"nome":"Maria","link":"https://wa.me/5511999999999"}]}`))
	}))

	links, err := client.CreateAlert(context.Background(), model.Coordinates{Latitude: -23.5, Longitude: -46.6})
	require.NoError(t, err)

	assert.Equal(t, model.Coordinates{Latitude: -23.5, Longitude: -46.6}, got)
	require.Len(t, links, 1)
	assert.Equal(t, "Maria", links[0].Name)
	assert.Equal(t, "https://wa.me/5511999999999", links[0].Link)
}

func TestCreateAlertServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.CreateAlert(context.Background(), model.Coordinates{Latitude: -23.5, Longitude: -46.6})
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusInternalServerError, backendErr.Status)
}

func TestCreateAlertRejectsInvalidCoordinates(t *testing.T) {
	called := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := client.CreateAlert(context.Background(), model.Coordinates{Latitude: 120, Longitude: 0})
	assert.Error(t, err)
	assert.False(t, called, "invalid coordinates never reach the backend")
}

func TestReceivedAlerts(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/alertas-emergencia/recebidos", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"a1","usuarioId":"u2","usuarioNome":"Ana","dataHora":"2026-08-30T21:15:00Z","latitude":-23.5,"longitude":-46.6}
		]`))
	}))

	alerts, err := client.ReceivedAlerts(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	assert.Equal(t, "Ana", alerts[0].SenderName)
	assert.Equal(t, -23.5, alerts[0].Latitude)
	assert.Equal(t, 2026, alerts[0].SentAt.Year())
}

func TestLoginStoresSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ana@unidelas.app", creds.Email)
		assert.Equal(t, "secret", creds.Password)

		http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok-1"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","email":"ana@unidelas.app","message":"ok"}`))
	})
	mux.HandleFunc("/alertas-emergencia/recebidos", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		require.NoError(t, err, "session cookie must accompany every request")
		assert.Equal(t, "tok-1", cookie.Value)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	client := newTestClient(t, mux)

	user, err := client.Login(context.Background(), Credentials{Email: "ana@unidelas.app", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, model.UserIdentity{ID: "u1", Email: "ana@unidelas.app"}, user)

	_, err = client.ReceivedAlerts(context.Background())
	require.NoError(t, err)
}

func TestLoginRequiresCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	_, err := client.Login(context.Background(), Credentials{})
	assert.Error(t, err)
}

func TestSupportNetworkRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rede-apoio/solicitacao/pendentes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"s1","solicitanteId":"u2","solicitadoId":"u1","status":"PENDENTE",
			 "dataSolicitacao":"2026-08-30T10:00:00Z","solicitante":{"nome":"Ana","email":"ana@unidelas.app"}}
		]`))
	})
	mux.HandleFunc("/rede-apoio/solicitacao/s1/aceitar", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/contatos-confianca/meus-contatos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"u2","nome":"Ana","email":"ana@unidelas.app"}]`))
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	pending, err := client.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Ana", pending[0].Requester.Name)

	require.NoError(t, client.AcceptSupportRequest(ctx, "s1"))

	contacts, err := client.TrustedContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Ana", contacts[0].Name)
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	_, err := New("", time.Second, slog.Default())
	assert.Error(t, err)
}
