package project

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/progress"
	"github.com/catrobat/catroid-share/internal/util/archive"
	"github.com/catrobat/catroid-share/internal/web"
)

// UploadRequest describes a project upload.
type UploadRequest struct {
	URL            string
	Description    string
	Username       string
	Token          string
	Language       string
	Sink           progress.Sink
	NotificationID int
}

// UploadResult is the sharing service's answer to an upload.
type UploadResult struct {
	ProjectID  string `json:"projectId"`
	StatusCode int    `json:"statusCode"`
	Answer     string `json:"answer"`
	Token      string `json:"token,omitempty"`

	// Raw is the unparsed response body.
	Raw string `json:"-"`
}

// Export saves the opened project and packs it into a .catrobat archive at dest.
func (m *Manager) Export(dest string) error {
	p := m.CurrentProject()
	if p == nil {
		return ErrNoProject
	}
	if err := m.Save(); err != nil {
		return err
	}
	return archive.Pack(p.Directory, dest, archive.DefaultExcludePatterns)
}

// Upload packs the opened project and uploads it to req.URL.
func (c *Controller) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("no connection configured for upload")
	}
	p := c.manager.CurrentProject()
	if p == nil {
		return nil, ErrNoProject
	}

	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmpDir, err := os.MkdirTemp(c.cacheDir, "upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, "project"+constants.CatrobatExtension)
	if err := c.manager.Export(archivePath); err != nil {
		return nil, err
	}

	checksum, err := fileMD5(archivePath)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		web.FieldProjectTitle:       p.Name,
		web.FieldProjectDescription: req.Description,
		web.FieldChecksum:           checksum,
		web.FieldUsername:           req.Username,
		web.FieldToken:              req.Token,
	}
	if req.Language != "" {
		fields[web.FieldDeviceLanguage] = req.Language
	}

	c.logger.Info().Str("project", p.Name).Str("url", req.URL).Msg("Uploading project")
	body, err := c.conn.Upload(ctx, req.URL, fields, web.FieldUpload, archivePath, req.Sink, req.NotificationID)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{Raw: body}
	if err := json.Unmarshal([]byte(body), result); err != nil {
		c.logger.Warn().Err(err).Msg("Upload answer is not JSON")
	}
	return result, nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
