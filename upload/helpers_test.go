package upload_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// fakeHost stands in for the ImgBB upload endpoint and records every POST.
type fakeHost struct {
	srv *httptest.Server

	mu     sync.Mutex
	names  []string
	status map[string]int
	drop   map[string]bool
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	h := &fakeHost{status: map[string]int{}, drop: map[string]bool{}}
	h.srv = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *fakeHost) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := r.PostForm.Get("name")

	h.mu.Lock()
	h.names = append(h.names, name)
	status, drop := h.status[name], h.drop[name]
	h.mu.Unlock()

	if drop {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"success":false}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"success":true,"status":200,"data":{"id":%q,"url":%q}}`, name, hostedURL(name))
}

func (h *fakeHost) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.names...)
}

func hostedURL(name string) string {
	return "https://i.ibb.co/" + name
}

// fakeCDN serves attachment bodies by file name.
type fakeCDN struct {
	srv   *httptest.Server
	files map[string][]byte

	mu   sync.Mutex
	hits int
}

func newFakeCDN(t *testing.T, files map[string][]byte) *fakeCDN {
	t.Helper()
	c := &fakeCDN{files: files}
	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()

		body, ok := c.files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(c.srv.Close)
	return c
}

func (c *fakeCDN) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *fakeCDN) attachment(name, contentType string) *discordgo.MessageAttachment {
	return &discordgo.MessageAttachment{
		ID:          "att-" + name,
		URL:         c.srv.URL + "/" + name,
		Filename:    name,
		ContentType: contentType,
		Size:        len(c.files[name]),
	}
}

func message(author string, atts ...*discordgo.MessageAttachment) *discordgo.Message {
	return &discordgo.Message{
		ID:          "orig-" + author,
		ChannelID:   "chan",
		GuildID:     "guild",
		Author:      &discordgo.User{ID: author, Username: author, GlobalName: strings.ToUpper(author)},
		Attachments: atts,
	}
}
