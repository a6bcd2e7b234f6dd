package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "New charge request\n0912 requested 500 ks\nhttps://shop.example/admin",
		FormatMessage("New charge request", "0912 requested 500 ks", "https://shop.example/admin"))
	assert.Equal(t, "title\nlink", FormatMessage("title", "  ", "link"))
}

// fakeBotAPI answers getMe and records sendMessage calls
type fakeBotAPI struct {
	mu   sync.Mutex
	sent []map[string]string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"shop","username":"shop_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		f.sent = append(f.sent, map[string]string{
			"chat_id":                  r.PostForm.Get("chat_id"),
			"text":                     r.PostForm.Get("text"),
			"disable_web_page_preview": r.PostForm.Get("disable_web_page_preview"),
		})
		f.mu.Unlock()
		resp, _ := json.Marshal(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 10, "date": 0, "chat": map[string]any{"id": 42, "type": "private"}},
		})
		w.Write(resp)
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func TestTelegramNotifier_Notify(t *testing.T) {
	bot := &fakeBotAPI{}
	srv := httptest.NewServer(bot)
	defer srv.Close()

	n, err := NewTelegramNotifierWithEndpoint("token", srv.URL+"/bot%s/%s", 42, srv.Client())
	require.NoError(t, err)

	err = n.Notify(context.Background(), "New charge request", "0912 requested 500 ks", "https://shop.example/admin/charge-requests")
	require.NoError(t, err)

	bot.mu.Lock()
	defer bot.mu.Unlock()
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "42", bot.sent[0]["chat_id"])
	assert.Equal(t, "New charge request\n0912 requested 500 ks\nhttps://shop.example/admin/charge-requests", bot.sent[0]["text"])
	assert.Equal(t, "true", bot.sent[0]["disable_web_page_preview"])
}

func TestTelegramNotifier_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(&fakeBotAPI{})
	defer srv.Close()

	n, err := NewTelegramNotifierWithEndpoint("token", srv.URL+"/bot%s/%s", 42, srv.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, "t", "b", ""), context.Canceled)
}

func TestNewTelegramNotifier_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewTelegramNotifierWithEndpoint("bad", srv.URL+"/bot%s/%s", 42, srv.Client())
	assert.Error(t, err)
}
