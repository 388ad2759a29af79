package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwgpt/jwgpt/internal/chat"
	"github.com/jwgpt/jwgpt/internal/middleware"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/internal/service"
	"github.com/jwgpt/jwgpt/pkg/logger"
)

type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, _ model.ModelVariant) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) set(reply string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reply, g.err = reply, err
}

type testAPI struct {
	server *httptest.Server
	gen    *fakeGenerator
}

func newTestAPI(t *testing.T, mutate ...func(*RouterConfig)) *testAPI {
	t.Helper()

	gen := &fakeGenerator{reply: "Read about [Hope](https://www.jw.org/en/bible-teachings/hope/)."}
	sessions := service.NewSessionService(gen, service.NewBroker(16), logger.Nop())
	cfg := RouterConfig{
		Sessions: sessions,
		Messages: service.NewMessageService(sessions, time.Second, logger.Nop()),
		Renderer: render.NewHTML(),
		Logger:   logger.Nop(),
		AppName:  "JW GPT",
		AppURL:   "https://jwgpt.app",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	server := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(server.Close)
	return &testAPI{server: server, gen: gen}
}

func (a *testAPI) do(t *testing.T, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (a *testAPI) createSession(t *testing.T, headers ...string) model.SessionResponse {
	t.Helper()
	resp, body := a.do(t, http.MethodPost, "/api/v1/sessions", "", headers...)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out model.SessionResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestCreateAndGetSession(t *testing.T) {
	api := newTestAPI(t)

	created := api.createSession(t)
	require.Len(t, created.Messages, 1)
	assert.Equal(t, model.RoleAssistant, created.Messages[0].Role)
	assert.Contains(t, chat.Greetings, created.Messages[0].Content)
	assert.NotEmpty(t, created.Messages[0].HTML)

	resp, body := api.do(t, http.MethodGet, "/api/v1/sessions/"+created.Session.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.SessionResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, created.Session.ID, got.Session.ID)
	assert.Len(t, got.Messages, 1)

	resp, _ = api.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/v1/sessions/0190a6f2-7d2c-7b3e-9c1a-2f4b5e6d7a8b", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(t, http.MethodDelete, "/api/v1/sessions/"+created.Session.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = api.do(t, http.MethodGet, "/api/v1/sessions/"+created.Session.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSendMessage(t *testing.T) {
	api := newTestAPI(t)
	sess := api.createSession(t)
	path := "/api/v1/sessions/" + sess.Session.ID + "/messages"

	resp, body := api.do(t, http.MethodPost, path, `{"content":"Tell me about hope","model":"gemini-flash"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var state model.SessionResponse
	require.NoError(t, json.Unmarshal(body, &state))
	require.Len(t, state.Messages, 3)

	reply := state.Messages[2]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, model.ModelGeminiFlash, reply.Model)
	assert.Contains(t, reply.Content, "[Search 'Hope'](https://www.jw.org/en/search/?q=Hope)")
	assert.Contains(t, reply.HTML, `href="https://www.jw.org/en/search/?q=Hope"`)
	require.Len(t, reply.SearchLinks, 1)
	assert.Equal(t, "Hope", reply.SearchLinks[0].Keyword)
	assert.Equal(t, model.SearchJWOrg, reply.SearchLinks[0].Category)

	resp, body = api.do(t, http.MethodGet, path+"/"+reply.ID+"/links", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var links struct {
		Links []model.SearchLink `json:"links"`
	}
	require.NoError(t, json.Unmarshal(body, &links))
	assert.Equal(t, reply.SearchLinks, links.Links)
}

func TestSendMessage_Errors(t *testing.T) {
	api := newTestAPI(t)
	sess := api.createSession(t)
	path := "/api/v1/sessions/" + sess.Session.ID + "/messages"

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"empty content", `{"content":"   "}`, http.StatusBadRequest},
		{"unknown model", `{"content":"hi","model":"gpt-4"}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := api.do(t, http.MethodPost, path, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}

	t.Run("generation failure", func(t *testing.T) {
		api.gen.set("", errors.New("upstream exploded"))
		resp, body := api.do(t, http.MethodPost, path, `{"content":"hi"}`)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Contains(t, string(body), chat.ErrTextGenerate)
		assert.NotContains(t, string(body), "exploded")

		_, body = api.do(t, http.MethodGet, "/api/v1/sessions/"+sess.Session.ID, "")
		var state model.SessionResponse
		require.NoError(t, json.Unmarshal(body, &state))
		assert.Equal(t, chat.ErrTextGenerate, state.Error)
		assert.Equal(t, "hi", state.Messages[len(state.Messages)-1].Content)
	})
}

func TestRegenerateEditClear(t *testing.T) {
	api := newTestAPI(t)
	sess := api.createSession(t)
	base := "/api/v1/sessions/" + sess.Session.ID + "/messages"

	api.gen.set("first answer", nil)
	_, body := api.do(t, http.MethodPost, base, `{"content":"question"}`)
	var state model.SessionResponse
	require.NoError(t, json.Unmarshal(body, &state))
	greeting, user, reply := state.Messages[0], state.Messages[1], state.Messages[2]

	api.gen.set("second answer", nil)
	resp, body := api.do(t, http.MethodPost, base+"/"+reply.ID+"/regenerate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, reply.ID, state.Messages[2].ID)
	assert.Equal(t, "second answer", state.Messages[2].Content)

	resp, _ = api.do(t, http.MethodPost, base+"/"+greeting.ID+"/regenerate", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = api.do(t, http.MethodPost, base+"/"+user.ID+"/regenerate", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = api.do(t, http.MethodPost, base+"/0190a6f2-7d2c-7b3e-9c1a-2f4b5e6d7a8b/regenerate", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	api.gen.set("third answer", nil)
	resp, body = api.do(t, http.MethodPut, base+"/"+user.ID, `{"content":"better question"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, "better question", state.Messages[1].Content)
	assert.Equal(t, "third answer", state.Messages[2].Content)

	resp, body = api.do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Empty(t, state.Messages)
}

func TestAuthScopesSessions(t *testing.T) {
	const secret = "s3cret"
	api := newTestAPI(t, func(cfg *RouterConfig) {
		cfg.AuthEnabled = true
		cfg.JWTSecret = secret
	})

	token := func(sub string) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}})
		s, err := tok.SignedString([]byte(secret))
		require.NoError(t, err)
		return "Bearer " + s
	}

	resp, _ := api.do(t, http.MethodPost, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	sess := api.createSession(t, "Authorization", token("alice"))
	assert.Equal(t, "alice", sess.Session.OwnerID)

	resp, _ = api.do(t, http.MethodGet, "/api/v1/sessions/"+sess.Session.ID, "", "Authorization", token("bob"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = api.do(t, http.MethodGet, "/api/v1/sessions/"+sess.Session.ID, "", "Authorization", token("alice"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndStructuredData(t *testing.T) {
	api := newTestAPI(t)

	resp, body := api.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")

	resp, body = api.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ready","nats":"disabled","sessions":0}`, string(body))

	api.createSession(t)
	_, body = api.do(t, http.MethodGet, "/ready", "")
	assert.Contains(t, string(body), `"sessions":1`)

	resp, body = api.do(t, http.MethodGet, "/structured-data", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/ld+json", resp.Header.Get("Content-Type"))
	var sd model.StructuredData
	require.NoError(t, json.Unmarshal(body, &sd))
	assert.Equal(t, "https://schema.org", sd.Context)
	assert.Equal(t, "WebApplication", sd.Type)
	assert.Equal(t, "JW GPT", sd.Name)
	assert.Equal(t, "0", sd.Offers.Price)

	resp, _ = api.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventsStream(t *testing.T) {
	api := newTestAPI(t)
	sess := api.createSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.server.URL+"/api/v1/sessions/"+sess.Session.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := api.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	name, _ := next()
	require.Equal(t, "connected", name)

	sendResp, _ := api.do(t, http.MethodPost, "/api/v1/sessions/"+sess.Session.ID+"/messages", `{"content":"hi"}`)
	require.Equal(t, http.StatusOK, sendResp.StatusCode)

	var names []string
	var last streamEvent
	for len(names) < 4 {
		name, data := next()
		names = append(names, name)
		if name == string(model.EventMessageAdded) {
			last = streamEvent{}
			require.NoError(t, json.Unmarshal([]byte(data), &last))
		}
	}

	assert.Equal(t, []string{"message_added", "loading", "message_added", "loading"}, names)
	require.NotNil(t, last.ConversationEvent)
	require.NotNil(t, last.View)
	assert.Equal(t, model.RoleAssistant, last.Message.Role)
	assert.Len(t, last.View.SearchLinks, 1)
}
