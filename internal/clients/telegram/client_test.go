package telegram

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.Form.Get("chat_id"))
		assert.Equal(t, "hello", r.Form.Get("text"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient("token", "folio_bot", zerolog.Nop())
	client.baseURL = server.URL

	err := client.SendMessage(42, "hello")
	assert.NoError(t, err)
}

func TestSendMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	client := NewClient("token", "folio_bot", zerolog.Nop())
	client.baseURL = server.URL

	err := client.SendMessage(42, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestDeepLink(t *testing.T) {
	client := NewClient("token", "folio_bot", zerolog.Nop())

	assert.Equal(t, "https://t.me/folio_bot?start=abc123", client.DeepLink("abc123"))
}

func TestParseStartCode(t *testing.T) {
	assert.Equal(t, "abc123", ParseStartCode("/start abc123"))
	assert.Equal(t, "abc123", ParseStartCode("/start abc123 "))
	assert.Equal(t, "", ParseStartCode("/start"))
	assert.Equal(t, "", ParseStartCode("hello"))
	assert.Equal(t, "", ParseStartCode(""))
}
