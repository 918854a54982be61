package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Counsel/internal/adapters/signal"
	"github.com/dkeye/Counsel/internal/app"
	"github.com/dkeye/Counsel/internal/app/draft"
	"github.com/dkeye/Counsel/internal/config"
	"github.com/dkeye/Counsel/internal/core"
	"github.com/dkeye/Counsel/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	relay *app.Relay
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>counsel</html>"), 0o600))
	cfg := &config.Config{Mode: "test", StaticPath: static, Secret: "test-secret"}

	gen := draft.GeneratorFunc(func(context.Context, []draft.Turn) (string, error) {
		return "Is it true?", nil
	})
	pipeline := draft.NewPipeline(gen, draft.Config{Timeout: time.Second, Prompts: draft.DefaultPrompts()})
	relay := app.NewRelay(core.NewRoomRegistry(), app.NewRegistry(), pipeline, nil, app.Options{HistoryLimit: 10})

	ctx, cancel := context.WithCancel(context.Background())
	go relay.Run(ctx)

	ctl := signal.NewSignalWSController(relay, nil, signal.Options{ReadLimit: 4096})
	engine, err := SetupRouter(ctx, cfg, relay, ctl)
	require.NoError(t, err)
	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		pipeline.Wait()
	})
	return &testServer{Server: srv, relay: relay}
}

func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 2 * time.Second}
}

func postJSON(t *testing.T, c *http.Client, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := c.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *testServer) dial(t *testing.T, c *http.Client) *websocket.Conn {
	t.Helper()
	d := websocket.Dialer{Jar: c.Jar, HandshakeTimeout: 2 * time.Second}
	ws, _, err := d.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readType(t *testing.T, ws *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var ev map[string]any
		require.NoError(t, ws.ReadJSON(&ev))
		if ev["type"] == typ {
			return ev
		}
	}
}

func TestEnterValidation(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	cases := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"unknown role", map[string]string{"name": "A", "role": "admin", "room": "R7"}, http.StatusBadRequest},
		{"missing name", map[string]string{"role": "client", "room": "R7"}, http.StatusBadRequest},
		{"blank name", map[string]string{"name": "   ", "role": "client", "room": "R7"}, http.StatusBadRequest},
		{"long name", map[string]string{"name": strings.Repeat("가", 37), "role": "client", "room": "R7"}, http.StatusBadRequest},
		{"long room", map[string]string{"name": "A", "role": "client", "room": strings.Repeat("r", 65)}, http.StatusBadRequest},
		{"ok", map[string]string{"name": "A", "role": "client", "room": "R7"}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := postJSON(t, c, s.URL+"/enter", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRejectedEnterCreatesNoRoom(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	for _, body := range []map[string]string{
		{"name": "A", "role": "admin", "room": "R7"},
		{"name": "  ", "role": "client", "room": "R8"},
		{"name": strings.Repeat("n", 37), "role": "counselor", "room": "R9"},
	} {
		resp, _ := postJSON(t, c, s.URL+"/enter", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
	assert.Zero(t, s.relay.Rooms.Len())
}

func TestRegisterValidators(t *testing.T) {
	require.NoError(t, registerValidators())
	require.NoError(t, registerValidators())
}

func TestRoomMembers(t *testing.T) {
	s := newTestServer(t)

	client := s.client(t)
	resp, _ := postJSON(t, client, s.URL+"/enter", map[string]string{"name": "A", "role": "client", "room": "R7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counselor := s.client(t)
	resp, _ = postJSON(t, counselor, s.URL+"/enter", map[string]string{"name": "K", "role": "counselor", "room": "R7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cws := s.dial(t, client)
	readType(t, cws, "system")
	kws := s.dial(t, counselor)
	readType(t, kws, "system")

	resp, err := client.Get(s.URL + "/api/rooms/R7/members")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got MembersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, MembersResponse{
		Room: "R7",
		Members: []core.MemberDTO{
			{Name: "A", Role: domain.RoleClient},
			{Name: "K", Role: domain.RoleCounselor},
		},
	}, got)

	missing, err := client.Get(s.URL + "/api/rooms/nope/members")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestEnterGeneratesRoom(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp, body := postJSON(t, c, s.URL+"/enter", map[string]string{"name": " Kim ", "role": "counselor"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Kim", body["name"])
	room, _ := body["room"].(string)
	assert.NotEmpty(t, room)

	resp, err := c.Get(s.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rooms RoomsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, room, string(rooms.Rooms[0].Code))
}

func TestWhoAmIAndLeave(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp, err := c.Get(s.URL + "/api/whoami")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, c, s.URL+"/enter", map[string]string{"name": "A", "role": "client", "room": "R7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = c.Get(s.URL + "/api/whoami")
	require.NoError(t, err)
	var who map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
	resp.Body.Close()
	assert.Equal(t, map[string]any{"name": "A", "role": "client", "room": "R7"}, who)

	resp, err = c.Post(s.URL+"/api/leave", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = c.Get(s.URL + "/api/whoami")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateRoom(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp, body := postJSON(t, c, s.URL+"/api/rooms", map[string]string{"code": "R42"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "R42", body["room"])

	resp, err := c.Post(s.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, s.relay.Rooms.Len())
}

func TestSessionIdentityFlowsToWebsocket(t *testing.T) {
	s := newTestServer(t)

	client := s.client(t)
	resp, _ := postJSON(t, client, s.URL+"/enter", map[string]string{"name": "A", "role": "client", "room": "R7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counselor := s.client(t)
	resp, _ = postJSON(t, counselor, s.URL+"/enter", map[string]string{"name": "K", "role": "counselor", "room": "R7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cws := s.dial(t, client)
	ev := readType(t, cws, "system")
	assert.Equal(t, "A (client) entered the room.", ev["text"])

	kws := s.dial(t, counselor)
	ev = readType(t, kws, "system")
	assert.Equal(t, "K (counselor) entered the room.", ev["text"])

	require.NoError(t, cws.WriteJSON(map[string]string{"type": "client_message", "text": "I feel worthless"}))

	ev = readType(t, kws, "message")
	assert.Equal(t, "I feel worthless", ev["text"])
	ev = readType(t, kws, "ai_draft")
	assert.Equal(t, "Is it true?", ev["text"])

	require.NoError(t, kws.WriteJSON(map[string]string{"type": "counselor_send_final", "text": "Is it really true?"}))
	ev = readType(t, cws, "message")
	assert.Equal(t, "I feel worthless", ev["text"])
	ev = readType(t, cws, "message")
	assert.Equal(t, "counselor", ev["role"])
	assert.Equal(t, "Is it really true?", ev["text"])
}

func TestWebsocketWithoutSessionStaysInert(t *testing.T) {
	s := newTestServer(t)
	anon := s.dial(t, s.client(t))

	require.NoError(t, anon.WriteJSON(map[string]string{"type": "client_message", "text": "hello"}))
	require.NoError(t, anon.WriteJSON(map[string]string{"type": "ping"}))
	ev := readType(t, anon, "pong")
	assert.Equal(t, "pong", ev["type"])
	assert.Zero(t, s.relay.Rooms.Len())
}

func TestIndexServed(t *testing.T) {
	s := newTestServer(t)
	resp, err := http.Get(s.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
