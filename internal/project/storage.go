package project

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/models"
	"github.com/catrobat/catroid-share/internal/util/buffers"
	"github.com/catrobat/catroid-share/internal/util/paths"
)

// loadProject reads code.json from dir.
func loadProject(dir string) (*models.Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, constants.ProjectCodeFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	var p models.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", constants.ProjectCodeFile, err)
	}
	p.AttachDirectories(dir)
	return &p, nil
}

// saveProject writes code.json atomically and creates the scene image
// directories.
func saveProject(p *models.Project) error {
	for _, s := range p.Scenes {
		if err := os.MkdirAll(s.ImageDirectory(), 0755); err != nil {
			return fmt.Errorf("failed to create scene directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	path := filepath.Join(p.Directory, constants.ProjectCodeFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}

// uriToPath turns a file URI or bare path into a local path. Other schemes
// are rejected.
func uriToPath(uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("empty uri")
	}

	u, err := url.Parse(uri)
	// Windows drive letters parse as a one-letter scheme
	if err != nil || u.Scheme == "" || (runtime.GOOS == "windows" && len(u.Scheme) == 1) {
		return uri, nil
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

// resolveFileName returns the display file name of uri, or false when it
// cannot be determined.
func resolveFileName(uri string) (string, bool) {
	path, err := uriToPath(uri)
	if err != nil {
		return "", false
	}
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// copyURIToDir copies the content behind uri into dir as fileName, picking a
// free name when fileName is taken. It returns the written path.
func copyURIToDir(uri, dir, fileName string) (string, error) {
	src, err := uriToPath(uri)
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	dest := paths.UniqueFilePath(dir, fileName)
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)
	if _, err := io.CopyBuffer(out, in, *buf); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}
