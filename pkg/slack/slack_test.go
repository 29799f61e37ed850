package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlack struct {
	mu      sync.Mutex
	calls   []string
	posts   map[string]string
	failFor string
}

func (f *fakeSlack) server(t *testing.T) *httptest.Server {
	t.Helper()
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		method := strings.TrimPrefix(r.URL.Path, "/")

		f.mu.Lock()
		f.calls = append(f.calls, method)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "conversations.open":
			assert.Equal(t, "U42", r.FormValue("users"))
			fmt.Fprint(w, `{"ok":true,"channel":{"id":"D42"}}`)
		case "chat.postMessage":
			ch := r.FormValue("channel")
			if ch == f.failFor {
				fmt.Fprint(w, `{"ok":false,"error":"channel_not_found"}`)
				return
			}
			f.mu.Lock()
			f.posts[ch] = r.FormValue("text")
			f.mu.Unlock()
			fmt.Fprintf(w, `{"ok":true,"channel":%q,"ts":"1700000000.000100"}`, ch)
		case "files.getUploadURLExternal":
			assert.Equal(t, "daily-brief.mp3", r.FormValue("filename"))
			fmt.Fprintf(w, `{"ok":true,"upload_url":%q,"file_id":"F1"}`, ts.URL+"/upload")
		case "upload":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "OK")
		case "files.completeUploadExternal":
			assert.Equal(t, "D42", r.FormValue("channel_id"))
			assert.Equal(t, "Here's your morning audio summary.", r.FormValue("initial_comment"))
			fmt.Fprint(w, `{"ok":true,"files":[{"id":"F1","title":"Daily Brief (Audio)"}]}`)
		default:
			t.Errorf("unexpected method %s", method)
			fmt.Fprint(w, `{"ok":false,"error":"unknown_method"}`)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, f *fakeSlack) *Client {
	t.Helper()
	f.posts = map[string]string{}
	ts := f.server(t)
	c, err := New("xoxb-test", zerolog.Nop(), WithAPIURL(ts.URL+"/"))
	require.NoError(t, err)
	return c
}

func TestPostDM(t *testing.T) {
	f := &fakeSlack{}
	c := newTestClient(t, f)

	require.NoError(t, c.PostDM(context.Background(), "U42", "Good morning"))
	assert.Equal(t, []string{"conversations.open", "chat.postMessage"}, f.calls)
	assert.Equal(t, "Good morning", f.posts["D42"])
}

func TestPostChannelError(t *testing.T) {
	f := &fakeSlack{failFor: "#missing"}
	c := newTestClient(t, f)

	err := c.PostChannel(context.Background(), "#missing", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestUploadDM(t *testing.T) {
	f := &fakeSlack{}
	c := newTestClient(t, f)

	path := filepath.Join(t.TempDir(), "daily-brief.mp3")
	require.NoError(t, os.WriteFile(path, []byte("mp3 bytes"), 0o644))

	err := c.UploadDM(context.Background(), "U42", path, "Daily Brief (Audio)", "Here's your morning audio summary.")
	require.NoError(t, err)
	assert.Contains(t, f.calls, "files.completeUploadExternal")

	err = c.UploadDM(context.Background(), "U42", filepath.Join(t.TempDir(), "missing.mp3"), "t", "")
	assert.Error(t, err)
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New("", zerolog.Nop())
	assert.Error(t, err)
}
