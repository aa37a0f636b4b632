package util

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpPost(t *testing.T) {
	var gotBody string
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotHeader = r.Header.Get("X-Token")
		switch r.URL.Path {
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/fail":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		default:
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	t.Run("JSON 响应", func(t *testing.T) {
		res, err := HttpPost(srv.URL+"/ok", map[string]string{"text": "hi"}, Header{Key: "X-Token", Value: "abc"})
		require.NoError(t, err)
		assert.True(t, res.Get("ok").Bool())
		assert.JSONEq(t, `{"text":"hi"}`, gotBody)
		assert.Equal(t, "abc", gotHeader)
	})

	t.Run("空响应体也算成功", func(t *testing.T) {
		res, err := HttpPostTimeout(srv.URL+"/empty", nil, time.Second)
		require.NoError(t, err)
		assert.False(t, res.Get("ok").Exists())
	})

	t.Run("非 2xx 返回错误", func(t *testing.T) {
		_, err := HttpPost(srv.URL+"/fail", map[string]string{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}
