// Package devserver emulates the project-sharing service for local work
// and end-to-end tests: uploads, downloads, token checks and media library
// looks.
package devserver

import (
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/catrobat/catroid-share/internal/constants"
	"github.com/catrobat/catroid-share/internal/logging"
	"github.com/catrobat/catroid-share/internal/util/buffers"
	"github.com/catrobat/catroid-share/internal/util/sanitize"
	"github.com/catrobat/catroid-share/internal/version"
	"github.com/catrobat/catroid-share/internal/web"
)

// maxUploadMemory is how much of a multipart upload is held in memory
// before spilling to temp files.
const maxUploadMemory = 8 << 20

// Options configures a Server.
type Options struct {
	// StoreDir receives uploaded archives.
	StoreDir string
	// LibraryDir serves media library looks; empty disables the library.
	LibraryDir string
	// Username and Token are the only accepted credentials. An empty Token
	// accepts every upload.
	Username string
	Token    string
}

// Answer is the JSON body of upload and token check responses.
type Answer struct {
	ProjectID  string `json:"projectId,omitempty"`
	StatusCode int    `json:"statusCode"`
	Answer     string `json:"answer"`
	Token      string `json:"token,omitempty"`
}

// Server is an in-process sharing service.
type Server struct {
	opts   Options
	router *mux.Router
	logger *logging.Logger

	mu       sync.Mutex
	nextID   int
	projects map[string]string // project id -> title
}

// New creates a server storing uploads in opts.StoreDir.
func New(opts Options, logger *logging.Logger) (*Server, error) {
	if opts.StoreDir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if err := os.MkdirAll(opts.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &Server{
		opts:     opts,
		logger:   logging.OrNop(logger).Named("devserver"),
		nextID:   1,
		projects: make(map[string]string),
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc(constants.DefaultUploadPath, s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc(constants.DefaultDownloadPath+"{id:[0-9]+}"+constants.CatrobatExtension, s.handleDownload).
		Methods(http.MethodPost, http.MethodGet)
	r.HandleFunc(constants.DefaultCheckTokenPath, s.handleCheckToken).Methods(http.MethodPost)
	r.HandleFunc(constants.DefaultLibraryPath+"{name}", s.handleLibrary).Methods(http.MethodGet, http.MethodPost)
	s.router = r

	return s, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Development sharing server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		stats := buffers.GetStats()
		s.logger.Debug().Int64("copy_allocations", stats.CopyAllocations).Int64("copy_gets", stats.CopyGets).
			Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Projects returns a copy of the uploaded project titles by id.
func (s *Server) Projects() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.projects))
	for k, v := range s.projects {
		out[k] = v
	}
	return out
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Server", "catroid-share-devserver/"+version.Version)
		next.ServeHTTP(w, r)
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).Msg("Request")
	})
}

func (s *Server) authorized(username, token string) bool {
	if s.opts.Token == "" {
		return true
	}
	return username == s.opts.Username && token == s.opts.Token
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeAnswer(w, http.StatusBadRequest, Answer{StatusCode: http.StatusBadRequest, Answer: "malformed upload"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	if !s.authorized(r.FormValue(web.FieldUsername), r.FormValue(web.FieldToken)) {
		writeAnswer(w, http.StatusUnauthorized, Answer{StatusCode: http.StatusUnauthorized, Answer: "authentication failed"})
		return
	}

	title := sanitize.SanitizeName(r.FormValue(web.FieldProjectTitle))
	if title == "" {
		writeAnswer(w, http.StatusBadRequest, Answer{StatusCode: http.StatusBadRequest, Answer: "project title missing"})
		return
	}

	file, _, err := r.FormFile(web.FieldUpload)
	if err != nil {
		writeAnswer(w, http.StatusBadRequest, Answer{StatusCode: http.StatusBadRequest, Answer: "project file missing"})
		return
	}
	defer file.Close()

	s.mu.Lock()
	id := strconv.Itoa(s.nextID)
	s.nextID++
	s.mu.Unlock()

	dest := filepath.Join(s.opts.StoreDir, id+constants.CatrobatExtension)
	sum, err := storeFile(file, dest)
	if err != nil {
		s.logger.Error().Err(err).Str("dest", dest).Msg("Failed to store upload")
		writeAnswer(w, http.StatusInternalServerError, Answer{StatusCode: http.StatusInternalServerError, Answer: "storage failure"})
		return
	}

	if want := r.FormValue(web.FieldChecksum); want != "" && !strings.EqualFold(want, sum) {
		os.Remove(dest)
		writeAnswer(w, http.StatusBadRequest, Answer{StatusCode: http.StatusBadRequest, Answer: "checksum mismatch"})
		return
	}

	s.mu.Lock()
	s.projects[id] = title
	s.mu.Unlock()

	s.logger.Info().Str("project", title).Str("id", id).Msg("Stored upload")
	writeAnswer(w, http.StatusOK, Answer{
		ProjectID:  id,
		StatusCode: http.StatusOK,
		Answer:     "Your project was uploaded successfully!",
		Token:      s.opts.Token,
	})
}

func storeFile(src io.Reader, dest string) (string, error) {
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}

	h := md5.New()
	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)
	if _, err := io.CopyBuffer(io.MultiWriter(out, h), src, *buf); err != nil {
		out.Close()
		os.Remove(dest)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.serveFile(w, r, filepath.Join(s.opts.StoreDir, id+constants.CatrobatExtension), "application/zip")
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	if s.opts.LibraryDir == "" {
		http.NotFound(w, r)
		return
	}
	name := sanitize.FileName(mux.Vars(r)["name"])
	s.serveFile(w, r, filepath.Join(s.opts.LibraryDir, name), "image/png")
}

// serveFile writes path, gzip-encoded when the client accepts it.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, contentType string) {
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)

	buf := buffers.GetCopyBuffer()
	defer buffers.PutCopyBuffer(buf)

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		if _, err := io.CopyBuffer(gz, f, *buf); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Transfer aborted")
		}
		gz.Close()
		return
	}

	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}
	if _, err := io.CopyBuffer(w, f, *buf); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Transfer aborted")
	}
}

func (s *Server) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAnswer(w, http.StatusBadRequest, Answer{StatusCode: http.StatusBadRequest, Answer: "malformed request"})
		return
	}
	if s.opts.Token == "" || !s.authorized(r.PostForm.Get(web.FieldUsername), r.PostForm.Get(web.FieldToken)) {
		writeAnswer(w, http.StatusUnauthorized, Answer{StatusCode: http.StatusUnauthorized, Answer: "token invalid"})
		return
	}
	writeAnswer(w, http.StatusOK, Answer{StatusCode: http.StatusOK, Answer: "ok"})
}

func writeAnswer(w http.ResponseWriter, status int, a Answer) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(a)
}
