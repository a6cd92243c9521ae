// Package web talks to the project-sharing service: multipart project
// uploads, form-posted downloads and plain form posts.
//
// Every operation blocks until the transfer is complete. Callers that must
// stay responsive run them through the transfer runner.
package web

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/diskspace"
	"github.com/catrobat/catroid-share/internal/http"
	"github.com/catrobat/catroid-share/internal/logging"
	"github.com/catrobat/catroid-share/internal/progress"
	"github.com/catrobat/catroid-share/internal/util/buffers"
	"github.com/catrobat/catroid-share/internal/version"
)

// Form keys understood by the sharing service.
const (
	FieldProjectTitle       = "projectTitle"
	FieldProjectDescription = "projectDescription"
	FieldChecksum           = "fileChecksum"
	FieldUsername           = "username"
	FieldToken              = "token"
	FieldDeviceLanguage     = "deviceLanguage"
	FieldUpload             = "upload"
)

// Connection performs blocking HTTP transfers against the sharing service.
type Connection struct {
	client      *nethttp.Client
	retryClient *nethttp.Client
	logger      *logging.Logger
	chunk       int64
	maxRetries  int
	userAgent   string
}

// Option configures a Connection.
type Option func(*Connection)

// WithRetries enables up to n retries for SimplePost and Download. Uploads
// are never retried since their body is a one-shot stream.
func WithRetries(n int) Option {
	return func(c *Connection) {
		c.maxRetries = n
	}
}

// WithProgressChunk sets the number of bytes between progress notifications.
func WithProgressChunk(n int64) Option {
	return func(c *Connection) {
		if n > 0 {
			c.chunk = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Connection) {
		c.userAgent = ua
	}
}

// NewConnection creates a Connection sending requests through client.
// A nil client uses a plain default client; a nil logger discards output.
func NewConnection(client *nethttp.Client, logger *logging.Logger, opts ...Option) *Connection {
	if client == nil {
		client = &nethttp.Client{}
	}
	c := &Connection{
		client:    client,
		logger:    logging.OrNop(logger).Named("web"),
		chunk:     constants.ProgressChunkSize,
		userAgent: "catroid-share/" + version.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retryClient = http.NewRetryClient(c.client, c.maxRetries, c.logger)
	return c
}

// Upload posts filePath as a multipart request to rawURL and returns the
// response body. Each form field becomes its own part; the file is attached
// under fileField, named after the projectTitle form field.
//
// The server must answer 200 or 201, otherwise a protocol TransferError
// carrying the status code is returned. An empty filePath sends nothing and
// returns an empty body.
//
// sink receives a notification every progress chunk of the file, then a
// single EndOfFile notification once the server accepted the upload.
func (c *Connection) Upload(ctx context.Context, rawURL string, formFields map[string]string, fileField, filePath string, sink progress.Sink, notificationID int) (string, error) {
	if filePath == "" {
		return "", nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer file.Close()

	size := int64(-1)
	if info, err := file.Stat(); err == nil && info.Mode().IsRegular() {
		size = info.Size()
	}

	projectName := formFields[FieldProjectTitle]
	fileName := projectName
	if fileName == "" {
		fileName = filepath.Base(filePath)
	}

	counter := progress.NewReader(file, size, c.chunk, sink, notificationID, projectName)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, formFields, fileField, fileName, counter))
	}()

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, rawURL, pr)
	if err != nil {
		pr.Close()
		return "", networkError(err)
	}
	defer pr.Close()
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("url", rawURL).Str("file", filePath).Int64("size", size).Msg("Uploading project")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).
			Str("class", http.ErrorTypeName(http.ClassifyError(err))).Msg("Upload failed")
		return "", networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != constants.StatusUploadOK && resp.StatusCode != constants.StatusUploadCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", protocolError(resp.StatusCode, "Error response code should be 200 or 201!")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	counter.Finish()
	c.logger.Debug().Str("response", string(body)).Msg("Upload response")
	return string(body), nil
}

func writeMultipart(mw *multipart.Writer, formFields map[string]string, fileField, fileName string, file io.Reader) error {
	for _, key := range sortedKeys(formFields) {
		if err := mw.WriteField(key, formFields[key]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return err
	}

	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)
	if _, err := io.CopyBuffer(part, file, *buf); err != nil {
		return err
	}

	return mw.Close()
}

// Download posts formFields to rawURL and writes the response body to
// destPath, creating missing parent directories. gzip is negotiated with
// the server and decoded transparently. The file only appears at destPath
// once the whole body has been received.
func (c *Connection) Download(ctx context.Context, rawURL string, formFields map[string]string, destPath string, sink progress.Sink, notificationID int, projectName string) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	req, err := newFormRequest(ctx, rawURL, formFields)
	if err != nil {
		return err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug().Str("url", rawURL).Str("dest", destPath).Msg("Downloading project")

	resp, err := c.retryClient.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return protocolError(resp.StatusCode, fmt.Sprintf("download failed: %s", resp.Status))
	}

	gzipped := strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip")
	if resp.ContentLength > 0 && !gzipped {
		if err := diskspace.CheckAvailableSpace(destPath, resp.ContentLength, 1+constants.DiskSpaceBufferPercent); err != nil {
			return err
		}
	}

	// Progress counts bytes on the wire, compressed or not.
	counter := progress.NewReader(resp.Body, resp.ContentLength, c.chunk, sink, notificationID, projectName)
	var body io.Reader = counter
	if gzipped {
		gz, err := gzip.NewReader(counter)
		if err != nil {
			return fmt.Errorf("failed to decode gzip response: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)
	if _, err := io.CopyBuffer(tmp, body, *buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	committed = true

	counter.Finish()
	return nil
}

// SimplePost posts formFields to rawURL and returns the response body
// whatever the status code. A request that cannot be established returns a
// network TransferError.
func (c *Connection) SimplePost(ctx context.Context, rawURL string, formFields map[string]string) (string, error) {
	_, body, err := c.postForm(ctx, rawURL, formFields)
	return body, err
}

// CheckToken asks the service whether token is valid for username. A 200
// answer means valid; 401 and 403 mean invalid. Other codes are protocol
// errors.
func (c *Connection) CheckToken(ctx context.Context, rawURL, username, token string) (bool, error) {
	code, _, err := c.postForm(ctx, rawURL, map[string]string{
		FieldUsername: username,
		FieldToken:    token,
	})
	if err != nil {
		return false, err
	}
	switch code {
	case nethttp.StatusOK:
		return true, nil
	case nethttp.StatusUnauthorized, nethttp.StatusForbidden:
		return false, nil
	default:
		return false, protocolError(code, "unexpected token check response")
	}
}

func (c *Connection) postForm(ctx context.Context, rawURL string, formFields map[string]string) (int, string, error) {
	req, err := newFormRequest(ctx, rawURL, formFields)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.retryClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).
			Str("class", http.ErrorTypeName(http.ClassifyError(err))).Msg("Post failed")
		return 0, "", networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", networkError(err)
	}
	return resp.StatusCode, string(body), nil
}

func newFormRequest(ctx context.Context, rawURL string, formFields map[string]string) (*nethttp.Request, error) {
	values := url.Values{}
	for k, v := range formFields {
		values.Set(k, v)
	}
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, networkError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
