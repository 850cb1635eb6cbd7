package upload_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/uploader/upload"
)

func newPipeline(host *fakeHost) *upload.Pipeline {
	return upload.NewPipeline(upload.PipelineConfig{
		APIKey:   "key",
		Endpoint: host.srv.URL,
		Timeout:  5 * time.Second,
	}, nil)
}

func TestPipelineUploadsImagesInOrder(t *testing.T) {
	host := newFakeHost(t)
	cdn := newFakeCDN(t, map[string][]byte{
		"one.png":   pngBytes,
		"notes.txt": []byte("hello"),
		"two.jpg":   pngBytes,
		"three.gif": pngBytes,
	})

	results := newPipeline(host).Run(context.Background(), []*discordgo.MessageAttachment{
		cdn.attachment("one.png", "image/png"),
		cdn.attachment("notes.txt", "text/plain; charset=utf-8"),
		cdn.attachment("two.jpg", "image/jpeg"),
		cdn.attachment("three.gif", "IMAGE/GIF"),
	})

	assert.Equal(t, []string{"one.png", "two.jpg", "three.gif"}, host.Names())
	require.Len(t, results, 3)
	for i, name := range []string{"one.png", "two.jpg", "three.gif"} {
		assert.Equal(t, name, results[i].Filename)
		assert.True(t, results[i].OK())
		assert.Equal(t, hostedURL(name), results[i].URL)
	}
	// The text file is never downloaded.
	assert.Equal(t, 3, cdn.Hits())
}

func TestPipelineFailureDoesNotAbortBatch(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *fakeHost)
		wantMarker string
	}{
		{
			name:       "http 403",
			setup:      func(h *fakeHost) { h.status["b.png"] = http.StatusForbidden },
			wantMarker: "❌ Upload failed (403)",
		},
		{
			name:       "connection dropped",
			setup:      func(h *fakeHost) { h.drop["b.png"] = true },
			wantMarker: "❌ Upload failed (",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost(t)
			tt.setup(host)
			cdn := newFakeCDN(t, map[string][]byte{"a.png": pngBytes, "b.png": pngBytes, "c.png": pngBytes})

			results := newPipeline(host).Run(context.Background(), []*discordgo.MessageAttachment{
				cdn.attachment("a.png", "image/png"),
				cdn.attachment("b.png", "image/png"),
				cdn.attachment("c.png", "image/png"),
			})

			require.Len(t, results, 3)
			assert.True(t, results[0].OK())
			assert.False(t, results[1].OK())
			assert.True(t, strings.HasPrefix(results[1].String(), tt.wantMarker), results[1].String())
			assert.True(t, results[2].OK())
			assert.Equal(t, []string{"a.png", "b.png", "c.png"}, host.Names())
		})
	}
}

func TestPipelineSniffsUndeclaredContentType(t *testing.T) {
	host := newFakeHost(t)
	cdn := newFakeCDN(t, map[string][]byte{
		"mystery":   pngBytes,
		"readme":    []byte("just some text, definitely not an image\n"),
		"photo.png": pngBytes,
	})

	results := newPipeline(host).Run(context.Background(), []*discordgo.MessageAttachment{
		cdn.attachment("mystery", ""),
		cdn.attachment("readme", ""),
		cdn.attachment("photo.png", "image/png"),
	})

	assert.Equal(t, []string{"mystery", "photo.png"}, host.Names())
	require.Len(t, results, 2)
	assert.Equal(t, "mystery", results[0].Filename)
}

func TestPipelineDownloadFailureBecomesMarker(t *testing.T) {
	host := newFakeHost(t)
	cdn := newFakeCDN(t, map[string][]byte{"ok.png": pngBytes})

	results := newPipeline(host).Run(context.Background(), []*discordgo.MessageAttachment{
		cdn.attachment("gone.png", "image/png"),
		cdn.attachment("ok.png", "image/png"),
	})

	require.Len(t, results, 2)
	assert.Equal(t, "❌ Upload failed (attachment download returned status 404)", results[0].String())
	assert.True(t, results[1].OK())
	assert.Equal(t, []string{"ok.png"}, host.Names())
}

func TestPipelineNoImages(t *testing.T) {
	host := newFakeHost(t)
	cdn := newFakeCDN(t, map[string][]byte{"a.zip": []byte("PK")})

	results := newPipeline(host).Run(context.Background(), []*discordgo.MessageAttachment{
		cdn.attachment("a.zip", "application/zip"),
	})

	assert.Empty(t, results)
	assert.Empty(t, host.Names())
}
