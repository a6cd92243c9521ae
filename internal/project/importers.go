package project

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/models"
	"github.com/catrobat/catroid-share/internal/progress"
	"github.com/catrobat/catroid-share/internal/util/sanitize"
)

// ImportSource is where a new sprite's image comes from.
type ImportSource int

const (
	SourcePaint ImportSource = iota
	SourceLibrary
	SourceFile
	SourceCamera
)

func (s ImportSource) String() string {
	switch s {
	case SourcePaint:
		return "paint"
	case SourceLibrary:
		return "library"
	case SourceFile:
		return "file"
	case SourceCamera:
		return "camera"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// ParseImportSource maps "paint", "library", "file" and "camera" to an
// ImportSource.
func ParseImportSource(s string) (ImportSource, error) {
	switch strings.ToLower(s) {
	case "paint":
		return SourcePaint, nil
	case "library":
		return SourceLibrary, nil
	case "file":
		return SourceFile, nil
	case "camera":
		return SourceCamera, nil
	default:
		return 0, fmt.Errorf("unknown import source %q", s)
	}
}

// ImportResult is what an import tool hands back.
type ImportResult struct {
	// OK is false when the tool was cancelled.
	OK bool
	// Data is the picked file URI for SourceFile and the downloaded media
	// file path for SourceLibrary. Paint and camera write to fixed cache files.
	Data string
}

// PaintCacheFile is the file the paint tool writes its image to.
func (c *Controller) PaintCacheFile() string {
	return filepath.Join(c.cacheDir, constants.PaintCacheFileName)
}

// CameraCacheFile is the file the camera writes its photo to.
func (c *Controller) CameraCacheFile() string {
	return filepath.Join(c.cacheDir, constants.CameraCacheFileName)
}

// HandleImportResult adds a sprite from the result of an import tool.
// Cancelled results are ignored and return a nil sprite.
func (c *Controller) HandleImportResult(ctx context.Context, source ImportSource, result ImportResult) (*models.Sprite, error) {
	if !result.OK {
		return nil, nil
	}

	var uri string
	switch source {
	case SourcePaint:
		uri = c.PaintCacheFile()
	case SourceLibrary, SourceFile:
		uri = result.Data
	case SourceCamera:
		uri = c.CameraCacheFile()
	default:
		return nil, fmt.Errorf("unknown import source %s", source)
	}

	c.logger.Debug().Str("source", source.String()).Str("uri", uri).Msg("Import finished")
	return c.AddSpriteFromURI(ctx, uri)
}

// ImportFromLibrary downloads a look from the media library into the media
// library cache and returns the local file path.
func (c *Controller) ImportFromLibrary(ctx context.Context, mediaURL string) (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("no connection configured for media library import")
	}

	u, err := url.Parse(mediaURL)
	if err != nil {
		return "", fmt.Errorf("invalid media url: %w", err)
	}
	name := sanitize.FileName(path.Base(u.Path))
	if name == "" || name == "_" || name == "/" {
		name = constants.DefaultSpriteName + constants.DefaultImageExtension
	}

	dest := filepath.Join(c.MediaLibraryCacheDir(), name)
	var sink progress.Sink
	if c.bus != nil {
		sink = progress.NewEventSink(c.bus)
	}
	if err := c.conn.Download(ctx, mediaURL, nil, dest, sink, 0, name); err != nil {
		return "", fmt.Errorf("media library download failed: %w", err)
	}
	return dest, nil
}

func isRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}
