// Package paths provides name and path uniqueness helpers for project items
// and downloaded archives.
package paths

import (
	"fmt"
	"path/filepath"
)

// ProjectDownload is one project archive to be downloaded.
type ProjectDownload struct {
	ProjectID string // Project identifier on the sharing service
	Name      string // Project name
	LocalPath string // Full local destination path
}

// ResolveCollisions ensures all LocalPaths in a batch are unique. When
// several downloads share a LocalPath, each gets its ProjectID appended
// before the extension:
//
//   - Pong_42.catrobat
//   - Pong_97.catrobat
//
// Entries that still clash after that, such as one project listed twice,
// additionally get their position in the batch appended. This keeps
// concurrent downloads from overwriting each other. The slice is modified in
// place and returned together with the number of downloads that were
// involved in collisions.
func ResolveCollisions(downloads []ProjectDownload) ([]ProjectDownload, int) {
	if len(downloads) == 0 {
		return downloads, 0
	}

	pathToIndices := make(map[string][]int)
	for i, d := range downloads {
		pathToIndices[d.LocalPath] = append(pathToIndices[d.LocalPath], i)
	}

	collisionCount := 0
	for path, indices := range pathToIndices {
		if len(indices) <= 1 {
			continue
		}

		collisionCount += len(indices)
		for _, idx := range indices {
			d := &downloads[idx]
			ext := filepath.Ext(path)
			base := path[:len(path)-len(ext)]
			d.LocalPath = fmt.Sprintf("%s_%s%s", base, d.ProjectID, ext)
		}
	}

	used := make(map[string]bool, len(downloads))
	for i := range downloads {
		d := &downloads[i]
		if used[d.LocalPath] {
			ext := filepath.Ext(d.LocalPath)
			base := d.LocalPath[:len(d.LocalPath)-len(ext)]
			for n := i + 1; ; n++ {
				candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
				if !used[candidate] {
					d.LocalPath = candidate
					break
				}
			}
		}
		used[d.LocalPath] = true
	}

	return downloads, collisionCount
}
