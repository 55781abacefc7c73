package telegram_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dunya-jewellery/shop/internal/dal/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotForm = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	client := telegram.NewClient(srv.URL, "123:abc", srv.Client())

	err := client.SendMessage(context.Background(), "-100500", "<b>hi</b>", telegram.ParseModeHTML)
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "-100500", gotForm["chat_id"])
	assert.Equal(t, "<b>hi</b>", gotForm["text"])
	assert.Equal(t, "HTML", gotForm["parse_mode"])
}

func TestSendPhoto(t *testing.T) {
	var photo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "/bottoken/sendPhoto", r.URL.Path)
		photo = r.PostForm.Get("photo")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := telegram.NewClient(srv.URL, "token", srv.Client())

	require.NoError(t, client.SendPhoto(context.Background(), "1", "https://cdn.example/1.jpg"))
	assert.Equal(t, "https://cdn.example/1.jpg", photo)
}

func TestNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	client := telegram.NewClient(srv.URL, "token", srv.Client())

	err := client.SendMessage(context.Background(), "1", "text", "")
	require.ErrorIs(t, err, telegram.ErrAPI)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestOkFalseWithSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Forbidden"}`))
	}))
	defer srv.Close()

	client := telegram.NewClient(srv.URL, "token", srv.Client())

	require.ErrorIs(t, client.SendPhoto(context.Background(), "1", "u"), telegram.ErrAPI)
}

func TestTimeoutDoesNotLeakToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := telegram.NewClient(srv.URL, "secret-token", srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.SendMessage(ctx, "1", "text", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotContains(t, err.Error(), "secret-token")
}
