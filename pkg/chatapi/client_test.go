package chatapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/chatwidget/pkg/chatapi"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, options ...chatapi.Option) *chatapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	options = append([]chatapi.Option{chatapi.WithRetryWait(time.Millisecond, 5*time.Millisecond)}, options...)
	c, err := chatapi.NewClient(srv.URL+"/ ", options...)
	require.NoError(t, err)
	return c
}

func TestNormalizeBaseURL(t *testing.T) {
	require.Equal(t, "https://example.com", chatapi.NormalizeBaseURL("https://example.com/ "))
	require.Equal(t, "https://example.com/api", chatapi.NormalizeBaseURL("  https://example.com/api//"))
	require.Equal(t, "", chatapi.NormalizeBaseURL("   "))
}

func TestNewClient_RejectsInvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "  / ", "ftp://example.com", "http://"} {
		_, err := chatapi.NewClient(raw)
		require.Error(t, err, raw)
	}
}

func TestCreateThread(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, chatapi.CreateThreadPath, r.URL.Path)
		_, _ = io.WriteString(w, `{"thread_id":"t1"}`)
	}))

	threadID, err := c.CreateThread(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t1", threadID)
}

func TestCreateThread_MissingThreadID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"t1"}`)
	}))

	_, err := c.CreateThread(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, chatapi.ErrThreadUnavailable))
}

func TestCreateThread_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := chatapi.NewClient(url)
	require.NoError(t, err)
	_, err = c.CreateThread(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, chatapi.ErrThreadUnavailable))
}

func TestSendMessage_PostsThreadAndContent(t *testing.T) {
	var got chatapi.SendMessageRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, chatapi.SendMessagePath, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `not json, ignored`)
	}))

	require.NoError(t, c.SendMessage(context.Background(), "t1", "hello"))
	require.Equal(t, chatapi.SendMessageRequest{ThreadID: "t1", Content: "hello"}, got)
}

func TestSendMessage_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := c.SendMessage(context.Background(), "t1", "hello")
	require.Error(t, err)
	require.True(t, errors.Is(err, chatapi.ErrDeliveryFailed))

	var statusErr *chatapi.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	require.Equal(t, "boom", statusErr.Body)
}

func TestSendMessage_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}), chatapi.WithRetries(2))

	require.NoError(t, c.SendMessage(context.Background(), "t1", "hello"))
	require.Equal(t, int32(3), calls.Load())
}

func TestSendMessage_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	require.Error(t, c.SendMessage(context.Background(), "t1", "hello"))
	require.Equal(t, int32(1), calls.Load())
}

func TestGetResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "content", body: `{"content":"hi there"}`, want: "hi there"},
		{name: "empty content", body: `{"content":""}`, want: ""},
		{name: "missing content", body: `{}`, want: ""},
		{name: "empty body", body: ``, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req chatapi.GetResponseRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				require.Equal(t, "t1", req.ThreadID)
				_, _ = io.WriteString(w, tt.body)
			}))

			content, err := c.GetResponse(context.Background(), "t1")
			require.NoError(t, err)
			require.Equal(t, tt.want, content)
		})
	}
}

func TestGetResponse_MalformedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"content":`)
	}))

	_, err := c.GetResponse(context.Background(), "t1")
	require.Error(t, err)
	require.True(t, errors.Is(err, chatapi.ErrResponseFailed))
}

func TestClient_TimeoutIsFailure(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), chatapi.WithTimeout(20*time.Millisecond))
	defer close(release)

	_, err := c.GetResponse(context.Background(), "t1")
	require.Error(t, err)
	require.True(t, errors.Is(err, chatapi.ErrResponseFailed))
}

func TestClient_HTTPClientKeepsEarlierTimeout(t *testing.T) {
	release := make(chan struct{})
	hc := &http.Client{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), chatapi.WithTimeout(20*time.Millisecond), chatapi.WithHTTPClient(hc))
	defer close(release)

	_, err := c.GetResponse(context.Background(), "t1")
	require.True(t, errors.Is(err, chatapi.ErrResponseFailed))
	require.Zero(t, hc.Timeout)
}

func TestClient_RequiresThreadID(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())
	require.True(t, errors.Is(c.SendMessage(context.Background(), "", "x"), chatapi.ErrDeliveryFailed))
	_, err := c.GetResponse(context.Background(), "")
	require.True(t, errors.Is(err, chatapi.ErrResponseFailed))
}
