// Package archive packs project directories into Catrobat archives (.catrobat,
// zip format) and unpacks them again.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/catrobat/catroid-share/internal/util/buffers"
)

// DefaultExcludePatterns are never packed: partial downloads and OS litter.
var DefaultExcludePatterns = []string{"*.part", ".DS_Store", "Thumbs.db"}

// Pack writes the contents of projectDir into a zip archive at outputPath.
// Entry names are relative to projectDir and use forward slashes. Files whose
// base name matches one of excludePatterns are skipped.
func Pack(projectDir, outputPath string, excludePatterns []string) error {
	info, err := os.Stat(projectDir)
	if err != nil {
		return fmt.Errorf("project directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project path is not a directory: %s", projectDir)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(outFile)
	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)

	absOutput, _ := filepath.Abs(outputPath)

	err = filepath.Walk(projectDir, func(filePath string, fileInfo os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if filePath == projectDir {
			return nil
		}

		// The archive may live inside the directory being packed
		if abs, _ := filepath.Abs(filePath); abs == absOutput {
			return nil
		}

		relPath, err := filepath.Rel(projectDir, filePath)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		name := filepath.ToSlash(relPath)

		if fileInfo.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		if !fileInfo.Mode().IsRegular() || !shouldIncludeFile(fileInfo.Name(), excludePatterns) {
			return nil
		}

		header, err := zip.FileInfoHeader(fileInfo)
		if err != nil {
			return fmt.Errorf("failed to create zip header: %w", err)
		}
		header.Name = name
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write zip header: %w", err)
		}

		file, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer file.Close()

		if _, err := io.CopyBuffer(w, file, *buf); err != nil {
			return fmt.Errorf("failed to write file contents: %w", err)
		}
		return nil
	})

	if err == nil {
		err = zw.Close()
	}
	if closeErr := outFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to create archive: %w", err)
	}

	return nil
}

// Unpack extracts archivePath into destDir. Entries that would land outside
// destDir are rejected.
func Unpack(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", destDir, err)
	}
	root, err := filepath.Abs(destDir)
	if err != nil {
		return err
	}

	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)

	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := extractFile(f, target, *buf); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}

	return nil
}

func extractFile(f *zip.File, target string, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.CopyBuffer(out, rc, buf); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// shouldIncludeFile reports whether fileName matches none of excludePatterns.
func shouldIncludeFile(fileName string, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		matched, err := filepath.Match(pattern, fileName)
		if err == nil && matched {
			return false
		}
	}
	return true
}
