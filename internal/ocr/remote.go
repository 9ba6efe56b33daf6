package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/parcelops/labelsplit/internal/imaging"
	"github.com/parcelops/labelsplit/internal/logger"
)

// DefaultRemoteEndpoint is the local OCR service URL used when no endpoint
// is configured.
const DefaultRemoteEndpoint = "http://127.0.0.1:1224/api/ocr"

// remoteSuccessCode is the status code the service returns for a successful
// recognition.
const remoteSuccessCode = 100

// RemoteBackend posts base64-encoded region images to a local HTTP OCR
// service. Any network or protocol error yields empty text rather than an
// error: a flaky sidecar service must not fail pages.
type RemoteBackend struct {
	logger   *logger.Logger
	endpoint string
	client   *http.Client
}

// RemoteConfig holds configuration for the remote backend.
type RemoteConfig struct {
	Logger   *logger.Logger
	Endpoint string
	Timeout  time.Duration
}

// remoteRequest is the JSON request body for the OCR service.
type remoteRequest struct {
	Base64  string            `json:"base64"`
	Options map[string]string `json:"options"`
}

// remoteResponse is the JSON response from the OCR service.
type remoteResponse struct {
	Code int `json:"code"`
	Data []struct {
		Text string `json:"text"`
	} `json:"data"`
}

// NewRemoteBackend creates a new remote service backend.
func NewRemoteBackend(cfg *RemoteConfig) *RemoteBackend {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultRemoteEndpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &RemoteBackend{
		logger:   log,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name returns the backend name.
func (r *RemoteBackend) Name() string { return string(EngineRemote) }

// Recognize serializes the region as base64 PNG and posts it to the service.
// Recognized fragments are concatenated in order. Errors are logged and
// reported as empty text.
func (r *RemoteBackend) Recognize(ctx context.Context, img image.Image, _ Options) (string, error) {
	data, err := imaging.EncodePNG(img)
	if err != nil {
		r.logger.WithError(err).Debug("Remote OCR: failed to encode image")
		return "", nil
	}

	body, err := json.Marshal(remoteRequest{
		Base64:  base64.StdEncoding.EncodeToString(data),
		Options: map[string]string{"data.format": "text"},
	})
	if err != nil {
		r.logger.WithError(err).Debug("Remote OCR: failed to marshal request")
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		r.logger.WithError(err).Debug("Remote OCR: failed to build request")
		return "", nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.WithError(err).Debug("Remote OCR: request failed")
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.WithFields("status", resp.StatusCode).Debug("Remote OCR: unexpected status")
		return "", nil
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		r.logger.WithError(err).Debug("Remote OCR: failed to decode response")
		return "", nil
	}

	if parsed.Code != remoteSuccessCode {
		r.logger.WithFields("code", parsed.Code).Debug("Remote OCR: service reported failure")
		return "", nil
	}

	var text bytes.Buffer
	for _, item := range parsed.Data {
		fmt.Fprint(&text, item.Text)
	}

	r.logger.WithFields("backend", r.Name(), "raw_len", text.Len()).Debug("Recognition completed")
	return text.String(), nil
}

// Release is a no-op; the remote service owns its own lifecycle.
func (r *RemoteBackend) Release() {}
