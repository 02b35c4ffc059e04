package alert

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendTelegramMessagePostsForm(t *testing.T) {
	var gotPath string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotForm = r.PostForm
	}))
	defer srv.Close()

	prev := apiBase
	apiBase = srv.URL
	defer func() { apiBase = prev }()

	SendTelegramMessage("vote-engine", "bot-1", "chat-1", "hash chain anomaly, poll=poll-1")

	require.Equal(t, "/botbot-1/sendMessage", gotPath)
	require.Equal(t, "chat-1", gotForm.Get("chat_id"))
	require.Contains(t, gotForm.Get("text"), "vote-engine: ")
	require.Contains(t, gotForm.Get("text"), "hash chain anomaly")
}

func TestSendTelegramMessageSkipsWithoutConfig(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	prev := apiBase
	apiBase = srv.URL
	defer func() { apiBase = prev }()

	SendTelegramMessage("vote-engine", "", "chat-1", "msg")
	SendTelegramMessage("vote-engine", "bot-1", "", "msg")
	SendTelegramMessage("vote-engine", "bot-1", "chat-1", "")
	require.Equal(t, 0, calls)
}
