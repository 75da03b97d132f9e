package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deal-checker/internal/domain"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func() // optional; called on each GetParameter invocation
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	if f.onCall != nil {
		f.onCall()
	}
	return f.val, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithAPIKey("sk-test"),
		WithBaseURL(srv.URL + "/v1/"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	}, opts...)
	c, err := NewClient(opts...)
	require.NoError(t, err)
	return c
}

const completionBody = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1670000000,
	"model": "gpt-4o",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {
			"role": "assistant",
			"content": "<p>Looks fine.</p>",
			"annotations": [{
				"type": "url_citation",
				"url_citation": {"start_index": 1, "end_index": 5, "title": "Docs", "url": "https://example.com"}
			}]
		}
	}]
}`

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_ParamStoreRequiresPrefix(t *testing.T) {
	_, err := NewClient(WithParamStore(&fakeGetter{}, " / "))
	require.Error(t, err)
	require.Contains(t, err.Error(), "prefix")
}

func TestNewClient_Valid(t *testing.T) {
	c, err := NewClient(WithParamStore(&fakeGetter{}, "/deal-checker/"))
	require.NoError(t, err)
	require.Equal(t, "/deal-checker/open-ai-token", c.tokenParameterName())
}

// ---------------------------------------------------------------------------
// resolveAPIKey
// ---------------------------------------------------------------------------

func TestResolveAPIKey_StaticKeyWins(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`, onCall: func() { calls++ }}
	c, err := NewClient(WithAPIKey("sk-env"), WithParamStore(g, "/deal-checker"))
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)
	require.Zero(t, calls)
}

func TestResolveAPIKey_FetchedOnFirstCall(t *testing.T) {
	calls := 0
	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`, onCall: func() { calls++ }}
	c, err := NewClient(WithParamStore(g, "/deal-checker"))
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)

	_, _ = c.resolveAPIKey(context.Background())
	_, _ = c.resolveAPIKey(context.Background())
	require.Equal(t, 1, calls, "a resolved key is cached")
}

func TestResolveAPIKey_RetriesAfterFailure(t *testing.T) {
	calls := 0
	g := &fakeGetter{err: errors.New("ThrottlingException: rate exceeded")}
	g.onCall = func() {
		calls++
		if calls > 1 {
			g.val, g.err = `{"token":"sk-from-ssm"}`, nil
		}
	}
	c, err := NewClient(WithParamStore(g, "/deal-checker"))
	require.NoError(t, err)

	_, err = c.resolveAPIKey(context.Background())
	require.ErrorContains(t, err, "Throttling")

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)
	require.Equal(t, 2, calls)

	key, err = c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)
	require.Equal(t, 2, calls)
}

func TestResolveAPIKey_NothingConfigured(t *testing.T) {
	c, err := NewClient()
	require.NoError(t, err)
	_, err = c.resolveAPIKey(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no API key")
}

// ---------------------------------------------------------------------------
// fetchAPIKeyFromParamStore
// ---------------------------------------------------------------------------

func TestFetchAPIKey_JSONToken(t *testing.T) {
	g := &fakeGetter{val: `{"token":"sk-from-json"}`}
	key, err := fetchAPIKeyFromParamStore(context.Background(), g, "/deal-checker/open-ai-token")
	require.NoError(t, err)
	require.Equal(t, "sk-from-json", key)
}

func TestFetchAPIKey_Errors(t *testing.T) {
	cases := []struct {
		name   string
		getter Getter
		param  string
		want   string
	}{
		{name: "missing token field", getter: &fakeGetter{val: `{"other":"value"}`}, param: "/p", want: "API token is empty"},
		{name: "malformed json", getter: &fakeGetter{val: `{"broken`}, param: "/p", want: "unmarshal"},
		{name: "getter error", getter: &fakeGetter{err: errors.New("ssm unavailable")}, param: "/p", want: "ssm unavailable"},
		{name: "nil getter", getter: nil, param: "/p", want: "nil"},
		{name: "empty name", getter: &fakeGetter{val: `{"token":"x"}`}, param: " ", want: "empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fetchAPIKeyFromParamStore(context.Background(), tc.getter, tc.param)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Client.Complete
// ---------------------------------------------------------------------------

func TestClient_Complete_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(reqBody), `"model":"gpt-4.1-nano"`)
		require.Contains(t, string(reqBody), `"temperature":0.2`)
		require.Contains(t, string(reqBody), `"max_completion_tokens":400`)
		require.NotContains(t, string(reqBody), `"response_format"`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Complete(context.Background(), domain.CompletionRequest{
		Model:       "gpt-4.1-nano",
		Prompt:      "Is it worth it?",
		Temperature: 0.2,
		MaxTokens:   400,
	})
	require.NoError(t, err)
	require.Equal(t, "<p>Looks fine.</p>", out.Text)
	require.Len(t, out.Annotations, 1)
	require.Equal(t, "url_citation", out.Annotations[0].Type)
	require.Equal(t, "https://example.com", out.Annotations[0].URLCitation.URL)
	require.Equal(t, int64(5), out.Annotations[0].URLCitation.EndIndex)
}

func TestClient_Complete_JSONMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(reqBody), `"response_format":{"type":"json_object"}`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"action\":\"buy\"}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	out, err := c.Complete(context.Background(), domain.CompletionRequest{Model: "gpt-4o", Prompt: "p", JSONMode: true})
	require.NoError(t, err)
	require.Equal(t, `{"action":"buy"}`, out.Text)
	require.Empty(t, out.Annotations)
}

func TestClient_Complete_StatusErrorsAreNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
		}))

		c := newTestClient(t, srv)
		_, err := c.Complete(context.Background(), domain.CompletionRequest{Model: "gpt-4o", Prompt: "hi"})
		srv.Close()

		require.Error(t, err)
		var statusErr *HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, status, statusErr.HTTPStatusCode())
		require.Equal(t, int32(1), calls.Load())
	}
}

func TestClient_Complete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), domain.CompletionRequest{Model: "gpt-4o", Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestClient_Complete_NetworkError(t *testing.T) {
	c, err := NewClient(
		WithAPIKey("sk-test"),
		WithBaseURL("http://127.0.0.1:1/v1/"),
		WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}),
	)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), domain.CompletionRequest{Model: "gpt-4o", Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

func TestClient_Complete_EmptyModel(t *testing.T) {
	c, err := NewClient(WithAPIKey("sk-test"))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), domain.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClient_Complete_MissingKey(t *testing.T) {
	c, err := NewClient(WithParamStore(&fakeGetter{err: errors.New("ssm down")}, "/deal-checker"))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), domain.CompletionRequest{Model: "gpt-4o", Prompt: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm down")
}

func TestChatParams_OmitsTokenCapWhenUnset(t *testing.T) {
	p := chatParams(domain.CompletionRequest{Model: "gpt-4o", Prompt: "hi"})
	require.False(t, p.MaxCompletionTokens.Valid())
	require.Nil(t, p.ResponseFormat.OfJSONObject)
}
