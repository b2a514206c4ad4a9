package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpsroster/internal/config"
	apperrors "cpsroster/internal/errors"
	"cpsroster/internal/validation"
)

const listingPage = `<html><body>
<a href="/About_CPS/Employee/EmployeePositionRoster_09302014.xls">Sep 2014</a>
<a href="/About_CPS/Employee/EmployeePositionRoster_09302014.xls">duplicate</a>
<a href="/About_CPS/Budget/Budget2014.pdf">budget</a>
<a href="Documents/EmployeePositionRoster_07_11_12.pdf">Jul 2012</a>
<a href="https://files.example.org/EmployeePositionRoster_03-31-2011.pdf">Mar 2011</a>
<a>no href</a>
</body></html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient() *resty.Client {
	return NewClient(config.SourceConfig{HTTPTimeout: 5 * time.Second})
}

func TestParseLinks(t *testing.T) {
	base, err := url.Parse("https://cps.edu")
	require.NoError(t, err)

	links, err := ParseLinks(strings.NewReader(listingPage), base, "Employee")
	require.NoError(t, err)

	assert.Equal(t, []Link{
		{URL: "https://cps.edu/About_CPS/Employee/EmployeePositionRoster_09302014.xls", Name: "EmployeePositionRoster_09302014.xls"},
		{URL: "https://cps.edu/Documents/EmployeePositionRoster_07_11_12.pdf", Name: "EmployeePositionRoster_07_11_12.pdf"},
		{URL: "https://files.example.org/EmployeePositionRoster_03-31-2011.pdf", Name: "EmployeePositionRoster_03-31-2011.pdf"},
	}, links)
}

func TestParseLinks_SameFileName(t *testing.T) {
	base, _ := url.Parse("https://cps.edu")
	page := `<a href="/2014/EmployeePositionRoster_09302014.xls">a</a>
<a href="/mirror/EmployeePositionRoster_09302014.xls">b</a>
<a href="/2014/EmployeePositionRoster_09302014.xls?v=2">c</a>`

	links, err := ParseLinks(strings.NewReader(page), base, "Employee")
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{URL: "https://cps.edu/2014/EmployeePositionRoster_09302014.xls", Name: "EmployeePositionRoster_09302014.xls"},
	}, links)
}

func TestParseLinks_NoMatches(t *testing.T) {
	base, _ := url.Parse("https://cps.edu")
	links, err := ParseLinks(strings.NewReader(`<a href="/x.pdf">x</a>`), base, "Employee")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestResolve(t *testing.T) {
	base, _ := url.Parse("https://cps.edu/root/")

	tests := []struct {
		href string
		want string
	}{
		{"/a/b.pdf", "https://cps.edu/root/a/b.pdf"},
		{"a/b.pdf", "https://cps.edu/root/a/b.pdf"},
		{"/a/Employee%20Roster.pdf", "https://cps.edu/root/a/Employee%20Roster.pdf"},
		{"http://other.org/c.pdf", "http://other.org/c.pdf"},
	}
	for _, tt := range tests {
		u, err := resolve(base, tt.href)
		require.NoError(t, err)
		assert.Equal(t, tt.want, u.String(), tt.href)
	}
}

func TestLister_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listing", r.URL.Path)
		fmt.Fprint(w, `<a href="/docs/EmployeePositionRoster_09302014.xls">x</a><a href="/docs/Other.pdf">y</a>`)
	}))
	defer srv.Close()

	lister, err := NewLister(testClient(), srv.URL+"/listing", srv.URL, "Employee")
	require.NoError(t, err)

	links, err := lister.List(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, srv.URL+"/docs/EmployeePositionRoster_09302014.xls", links[0].URL)
}

func TestLister_ListHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	lister, err := NewLister(testClient(), srv.URL, srv.URL, "Employee")
	require.NoError(t, err)

	_, err = lister.List(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
}

func TestNewLister_InvalidBase(t *testing.T) {
	_, err := NewLister(testClient(), "https://cps.edu", "://bad", "Employee")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestDownloader_Download(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "content of %s", r.URL.Path)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.pdf"), []byte("local"), 0644))

	links := []Link{
		{URL: srv.URL + "/a.pdf", Name: "a.pdf"},
		{URL: srv.URL + "/existing.pdf", Name: "existing.pdf"},
		{URL: srv.URL + "/missing.pdf", Name: "missing.pdf"},
		{URL: srv.URL + "/b.xls", Name: "b.xls"},
	}

	d := NewDownloader(testClient(), DownloaderOptions{Dir: dir, Concurrency: 2, Logger: quietLogger()})
	results, err := d.Download(context.Background(), links)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.False(t, results[0].Skipped)
	assert.NoError(t, results[0].Err)
	data, err := os.ReadFile(results[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "content of /a.pdf", string(data))

	assert.True(t, results[1].Skipped)
	data, err = os.ReadFile(results[1].Path)
	require.NoError(t, err)
	assert.Equal(t, "local", string(data), "existing files are never re-fetched")

	require.Error(t, results[2].Err)
	assert.True(t, apperrors.IsType(results[2].Err, apperrors.ErrTypeNetwork))
	assert.NoFileExists(t, results[2].Path)

	assert.NoError(t, results[3].Err)
	assert.FileExists(t, results[3].Path)

	assert.Equal(t, int64(3), hits.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temporary files are left behind")
}

func TestDownloader_RejectsBodiesThatAreNotDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "good.pdf") {
			w.Write([]byte("%PDF-1.4\n1 0 obj"))
			return
		}
		fmt.Fprint(w, "<html><body>Session expired</body></html>")
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(testClient(), DownloaderOptions{
		Dir:         dir,
		Concurrency: 1,
		Validator:   validation.NewFileValidator(quietLogger()),
		Logger:      quietLogger(),
	})
	results, err := d.Download(context.Background(), []Link{
		{URL: srv.URL + "/good.pdf", Name: "good.pdf"},
		{URL: srv.URL + "/portal.pdf", Name: "portal.pdf"},
	})
	require.NoError(t, err)

	assert.NoError(t, results[0].Err)
	assert.FileExists(t, results[0].Path)

	require.Error(t, results[1].Err)
	assert.True(t, apperrors.IsType(results[1].Err, apperrors.ErrTypeNetwork))
	assert.Contains(t, results[1].Err.Error(), "is not a pdf file")
	assert.NoFileExists(t, results[1].Path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloader_SecondRunSkipsEverything(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "x")
	}))
	defer srv.Close()

	dir := t.TempDir()
	links := []Link{{URL: srv.URL + "/a.pdf", Name: "a.pdf"}}
	d := NewDownloader(testClient(), DownloaderOptions{Dir: dir, Concurrency: 2, RequestsPerSecond: 100, Logger: quietLogger()})

	_, err := d.Download(context.Background(), links)
	require.NoError(t, err)
	results, err := d.Download(context.Background(), links)
	require.NoError(t, err)

	assert.True(t, results[0].Skipped)
	assert.Equal(t, int64(1), hits.Load())
}

func TestDownloader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader(testClient(), DownloaderOptions{Dir: t.TempDir(), Concurrency: 1, RequestsPerSecond: 1, Logger: quietLogger()})
	_, err := d.Download(ctx, []Link{{URL: "http://127.0.0.1:1/a.pdf", Name: "a.pdf"}})
	assert.Error(t, err)
}
