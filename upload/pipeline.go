package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/brensch/uploader/imgbb"
	"github.com/brensch/uploader/metrics"
	"github.com/brensch/uploader/telemetry"
)

// Result is the outcome of one image attachment: a hosted URL or an error.
type Result struct {
	Filename string
	URL      string
	Err      error
}

// OK reports whether the upload produced a URL.
func (r Result) OK() bool {
	return r.Err == nil && r.URL != ""
}

// String is the text shown to the user: the URL, or a failure marker.
func (r Result) String() string {
	if r.OK() {
		return r.URL
	}
	return FailureMarker(r.Err)
}

// FailureMarker renders err as an inline marker. Rejections from the image
// host show only their status code.
func FailureMarker(err error) string {
	if err == nil {
		err = errors.New("unknown error")
	}
	var statusErr *imgbb.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("❌ Upload failed (%d)", statusErr.StatusCode)
	}
	return fmt.Sprintf("❌ Upload failed (%s)", err)
}

// PipelineConfig is what the pipeline needs to reach the image host.
type PipelineConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Pipeline uploads the image attachments of one message, one at a time.
type Pipeline struct {
	cfg     PipelineConfig
	metrics *metrics.Metrics
}

func NewPipeline(cfg PipelineConfig, m *metrics.Metrics) *Pipeline {
	if cfg.Endpoint == "" {
		cfg.Endpoint = imgbb.DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = imgbb.DefaultTimeout
	}
	return &Pipeline{cfg: cfg, metrics: m}
}

// Run processes attachments in order and returns one Result per image.
// Non-images are skipped. A failed attachment becomes a failed Result and
// the rest of the batch carries on. The HTTP connections opened for the
// batch are released before Run returns.
func (p *Pipeline) Run(ctx context.Context, attachments []*discordgo.MessageAttachment) []Result {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	defer transport.CloseIdleConnections()

	hc := &http.Client{Transport: telemetry.Transport(transport)}
	client := imgbb.NewClient(p.cfg.APIKey,
		imgbb.WithHTTPClient(hc),
		imgbb.WithEndpoint(p.cfg.Endpoint),
		imgbb.WithTimeout(p.cfg.Timeout),
	)

	var results []Result
	for i, att := range attachments {
		if att == nil {
			continue
		}
		if declared := att.ContentType; declared != "" && !isImage(declared) {
			slog.Debug("skipping non-image attachment", "filename", att.Filename, "content_type", declared)
			p.metrics.Skipped()
			continue
		}

		result, skipped := p.process(ctx, hc, client, i, att)
		if skipped {
			p.metrics.Skipped()
			continue
		}
		results = append(results, result)
	}
	return results
}

func (p *Pipeline) process(ctx context.Context, hc *http.Client, client *imgbb.Client, index int, att *discordgo.MessageAttachment) (Result, bool) {
	ctx, span := telemetry.Tracer().Start(ctx, "upload.attachment")
	defer span.End()
	span.SetAttributes(
		attribute.String("attachment.filename", att.Filename),
		attribute.Int("attachment.index", index),
		attribute.Int("attachment.size", att.Size),
	)

	start := time.Now()
	result := Result{Filename: att.Filename}

	data, err := p.download(ctx, hc, att.URL)
	if err != nil {
		result.Err = err
	} else if att.ContentType == "" {
		detected := mimetype.Detect(data)
		if !isImage(detected.String()) {
			slog.Debug("skipping attachment sniffed as non-image", "filename", att.Filename, "detected", detected.String())
			span.SetAttributes(attribute.String("attachment.detected_type", detected.String()))
			return Result{}, true
		}
	}

	if result.Err == nil {
		result.URL, result.Err = client.Upload(ctx, att.Filename, data)
	}

	took := time.Since(start)
	if result.Err != nil {
		slog.Error("attachment upload failed", "filename", att.Filename, "error", result.Err)
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		p.metrics.Upload(metrics.OutcomeFailure, took)
		return result, false
	}

	slog.Info("attachment uploaded", "filename", att.Filename, "url", result.URL, "took", took)
	p.metrics.Upload(metrics.OutcomeSuccess, took)
	return result, false
}

// download reads the full attachment body from the CDN.
func (p *Pipeline) download(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("attachment download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return data, nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
