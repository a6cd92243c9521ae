package transfer

import (
	"context"
	"path/filepath"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/progress"
	"github.com/catrobat/catroid-share/internal/util/paths"
	"github.com/catrobat/catroid-share/internal/util/sanitize"
)

// BatchResult is the outcome of one download in a batch.
type BatchResult struct {
	Download paths.ProjectDownload
	Err      error
}

// SinkFactory returns the progress sink of the i-th (1-based) download.
type SinkFactory func(index int, d paths.ProjectDownload) progress.Sink

// PlanDownloads builds one ProjectDownload per distinct project id, naming
// each archive after its project and resolving clashing local paths.
// Repeated ids are downloaded once.
func PlanDownloads(destDir string, names map[string]string, ids []string) ([]paths.ProjectDownload, int) {
	downloads := make([]paths.ProjectDownload, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		name := names[id]
		if name == "" {
			name = id
		}
		downloads = append(downloads, paths.ProjectDownload{
			ProjectID: id,
			Name:      name,
			LocalPath: filepath.Join(destDir, sanitize.FileName(name)+constants.CatrobatExtension),
		})
	}
	return paths.ResolveCollisions(downloads)
}

// DownloadURL returns the download endpoint of a project.
func DownloadURL(baseURL, downloadPath, projectID string) string {
	return baseURL + downloadPath + projectID + constants.CatrobatExtension
}

// DownloadAll submits one download task per entry and waits for all of
// them. Results are returned in input order.
func (r *Runner) DownloadAll(ctx context.Context, baseURL, downloadPath string, downloads []paths.ProjectDownload, sinks SinkFactory) ([]BatchResult, error) {
	tasks := make([]*Task, 0, len(downloads))
	for i, d := range downloads {
		task := NewDownloadTask(d.Name, DownloadURL(baseURL, downloadPath, d.ProjectID), nil, d.LocalPath)
		if sinks != nil {
			task.Sink = sinks(i+1, d)
		}
		if err := r.Submit(task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	results := make([]BatchResult, len(tasks))
	for i, task := range tasks {
		if err := task.Wait(ctx); err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		results[i] = BatchResult{Download: downloads[i], Err: task.Err()}
	}
	return results, nil
}
