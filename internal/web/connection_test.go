package web

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/catrobat/catroid-share/internal/progress"
)

type recordingSink struct {
	mu  sync.Mutex
	got []progress.Notification
}

func (r *recordingSink) Notify(n progress.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingSink) endOfFileCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.got {
		if n.EndOfFile {
			count++
		}
	}
	return count
}

func writeTempFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.catrobat")
	if err := os.WriteFile(path, bytes.Repeat([]byte("c"), size), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpload_AcceptsOKAndCreated(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var gotTitle, gotFileName, gotToken string
			var gotSize int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("parse multipart: %v", err)
				}
				gotTitle = r.FormValue(FieldProjectTitle)
				gotToken = r.FormValue(FieldToken)
				f, hdr, err := r.FormFile(FieldUpload)
				if err != nil {
					t.Errorf("missing file part: %v", err)
				} else {
					gotFileName = hdr.Filename
					gotSize, _ = io.Copy(io.Discard, f)
					f.Close()
				}
				w.WriteHeader(status)
				io.WriteString(w, `{"projectId":"42","statusCode":200}`)
			}))
			defer srv.Close()

			path := writeTempFile(t, 50*1024)
			conn := NewConnection(srv.Client(), nil)
			body, err := conn.Upload(context.Background(), srv.URL, map[string]string{
				FieldProjectTitle: "Pong",
				FieldToken:        "secret",
			}, FieldUpload, path, nil, 1)
			if err != nil {
				t.Fatalf("Upload failed: %v", err)
			}
			if body != `{"projectId":"42","statusCode":200}` {
				t.Errorf("unexpected body %q", body)
			}
			if gotTitle != "Pong" || gotToken != "secret" {
				t.Errorf("form fields not sent: title=%q token=%q", gotTitle, gotToken)
			}
			if gotFileName != "Pong" {
				t.Errorf("file part named %q, want project title", gotFileName)
			}
			if gotSize != 50*1024 {
				t.Errorf("server received %d bytes, want %d", gotSize, 50*1024)
			}
		})
	}
}

func TestUpload_OtherStatusIsProtocolError(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusBadRequest, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(status)
		}))

		sink := &recordingSink{}
		conn := NewConnection(srv.Client(), nil)
		_, err := conn.Upload(context.Background(), srv.URL, map[string]string{FieldProjectTitle: "p"}, FieldUpload, writeTempFile(t, 10), sink, 1)
		srv.Close()

		if !IsProtocolError(err) {
			t.Fatalf("status %d: expected protocol error, got %v", status, err)
		}
		if IsNetworkError(err) {
			t.Errorf("status %d: protocol error reported as network error", status)
		}
		if StatusCode(err) != status {
			t.Errorf("StatusCode = %d, want %d", StatusCode(err), status)
		}
		if sink.endOfFileCount() != 0 {
			t.Errorf("status %d: failed upload must not report EndOfFile", status)
		}
	}
}

func TestUpload_EmptyPathSendsNothing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	body, err := NewConnection(srv.Client(), nil).Upload(context.Background(), srv.URL, nil, FieldUpload, "", nil, 0)
	if err != nil || body != "" {
		t.Fatalf("expected empty result, got %q, %v", body, err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("no request should be sent for an empty file path")
	}
}

func TestUpload_FileNameFallsBackToBaseName(t *testing.T) {
	var gotFileName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, hdr, err := r.FormFile(FieldUpload); err == nil {
			gotFileName = hdr.Filename
		}
	}))
	defer srv.Close()

	path := writeTempFile(t, 3)
	if _, err := NewConnection(srv.Client(), nil).Upload(context.Background(), srv.URL, nil, FieldUpload, path, nil, 0); err != nil {
		t.Fatal(err)
	}
	if gotFileName != "project.catrobat" {
		t.Errorf("file part named %q", gotFileName)
	}
}

func TestUpload_ProgressEndsWithSingleEndOfFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	conn := NewConnection(srv.Client(), nil, WithProgressChunk(20*1024))
	if _, err := conn.Upload(context.Background(), srv.URL, map[string]string{FieldProjectTitle: "Pong"}, FieldUpload, writeTempFile(t, 100*1024), sink, 7); err != nil {
		t.Fatal(err)
	}

	if got := sink.endOfFileCount(); got != 1 {
		t.Fatalf("expected exactly one EndOfFile notification, got %d", got)
	}
	last := sink.got[len(sink.got)-1]
	if !last.EndOfFile {
		t.Error("EndOfFile must be the last notification")
	}
	if last.Bytes != 100*1024 || last.SizeUnknown {
		t.Errorf("final notification %+v", last)
	}
	if last.NotificationID != 7 || last.ProjectName != "Pong" {
		t.Errorf("final notification lost identity: %+v", last)
	}
	if len(sink.got) < 4 {
		t.Errorf("expected chunk notifications before EndOfFile, got %d total", len(sink.got))
	}
}

func TestUpload_ConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewConnection(nil, nil).Upload(context.Background(), url, nil, FieldUpload, writeTempFile(t, 10), nil, 0)
	if !IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestDownload_WritesBodyAndCreatesParents(t *testing.T) {
	payload := bytes.Repeat([]byte("zip"), 30*1024)
	var gotForm string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm.Get(FieldToken)
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "a", "b", "Pong.catrobat")
	sink := &recordingSink{}
	err := NewConnection(srv.Client(), nil).Download(context.Background(), srv.URL, map[string]string{FieldToken: "t"}, dest, sink, 2, "Pong")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("downloaded %d bytes, want %d", len(got), len(payload))
	}
	if gotForm != "t" {
		t.Errorf("form field not posted, got %q", gotForm)
	}
	if sink.endOfFileCount() != 1 {
		t.Errorf("expected one EndOfFile notification, got %d", sink.endOfFileCount())
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(dest), ".*.part"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestDownload_DecodesGzip(t *testing.T) {
	payload := []byte("compressed project contents")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip" {
			t.Errorf("expected gzip negotiation, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write(payload)
		gz.Close()
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "Pong.catrobat")
	if err := NewConnection(srv.Client(), nil).Download(context.Background(), srv.URL, nil, dest, nil, 0, "Pong"); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dest)
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestDownload_StreamedBodyReportsUnknownSize(t *testing.T) {
	payload := bytes.Repeat([]byte("p"), 50*1024)
	tests := []struct {
		name    string
		gzipped bool
	}{
		{"plain", false},
		{"gzip", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var out io.Writer = w
				if tt.gzipped {
					w.Header().Set("Content-Encoding", "gzip")
					gz := gzip.NewWriter(w)
					defer gz.Close()
					out = gz
				}
				// Flushing before the body is complete forces chunked
				// encoding, so no Content-Length is sent.
				out.Write(payload[:1024])
				if gz, ok := out.(*gzip.Writer); ok {
					gz.Flush()
				}
				w.(http.Flusher).Flush()
				out.Write(payload[1024:])
			}))
			defer srv.Close()

			dest := filepath.Join(t.TempDir(), "Pong.catrobat")
			sink := &recordingSink{}
			err := NewConnection(srv.Client(), nil).Download(context.Background(), srv.URL, nil, dest, sink, 7, "Pong")
			if err != nil {
				t.Fatalf("Download failed: %v", err)
			}
			if got, _ := os.ReadFile(dest); !bytes.Equal(got, payload) {
				t.Fatalf("downloaded %d bytes, want %d", len(got), len(payload))
			}

			if sink.endOfFileCount() != 1 {
				t.Errorf("expected one EndOfFile notification, got %d", sink.endOfFileCount())
			}
			last := sink.got[len(sink.got)-1]
			if !last.EndOfFile {
				t.Error("last notification is not EndOfFile")
			}
			for i, n := range sink.got {
				if !n.SizeUnknown {
					t.Errorf("notification %d: SizeUnknown not set", i)
				}
				if n.NotificationID != 7 || n.ProjectName != "Pong" {
					t.Errorf("notification %d: wrong identity %+v", i, n)
				}
			}
		})
	}
}

func TestDownload_ErrorStatusLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "Pong.catrobat")
	err := NewConnection(srv.Client(), nil).Download(context.Background(), srv.URL, nil, dest, nil, 0, "Pong")
	if !IsProtocolError(err) || StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected protocol error 404, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("destination must not exist after a failed download")
	}
}

func TestDownload_RetriesWhenEnabled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "p.catrobat")
	if err := NewConnection(srv.Client(), nil, WithRetries(2)).Download(context.Background(), srv.URL, nil, dest, nil, 0, "p"); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestSimplePost_ConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewConnection(nil, nil).SimplePost(context.Background(), url, map[string]string{"a": "b"})
	if !IsNetworkError(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if IsProtocolError(err) {
		t.Error("connection failure must never be a protocol error")
	}
	if StatusCode(err) != ErrorNetwork {
		t.Errorf("StatusCode = %d, want %d", StatusCode(err), ErrorNetwork)
	}
}

func TestSimplePost_ReturnsBodyWhateverStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "echo:"+r.PostForm.Get("a"))
	}))
	defer srv.Close()

	body, err := NewConnection(srv.Client(), nil).SimplePost(context.Background(), srv.URL, map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("SimplePost failed: %v", err)
	}
	if body != "echo:b" {
		t.Errorf("body = %q", body)
	}
}

func TestCheckToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		switch r.PostForm.Get(FieldToken) {
		case "good":
			w.WriteHeader(http.StatusOK)
		case "broken":
			w.WriteHeader(http.StatusTeapot)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	conn := NewConnection(srv.Client(), nil)
	tests := []struct {
		token   string
		want    bool
		wantErr bool
	}{
		{"good", true, false},
		{"bad", false, false},
		{"broken", false, true},
	}
	for _, tt := range tests {
		ok, err := conn.CheckToken(context.Background(), srv.URL, "user", tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("token %q: err = %v, wantErr %v", tt.token, err, tt.wantErr)
		}
		if ok != tt.want {
			t.Errorf("token %q: valid = %v, want %v", tt.token, ok, tt.want)
		}
	}
}
