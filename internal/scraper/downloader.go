package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	apperrors "cpsroster/internal/errors"
)

// DownloadResult is the outcome of fetching one link
type DownloadResult struct {
	Link    Link   `json:"link"`
	Path    string `json:"path"`
	Skipped bool   `json:"skipped"`
	Err     error  `json:"-"`
}

// DocumentValidator rejects fetched bodies that are not the document their name claims
type DocumentValidator interface {
	ValidateDocument(path, name string) error
}

// DownloaderOptions configures a Downloader
type DownloaderOptions struct {
	Dir               string
	Concurrency       int
	RequestsPerSecond float64
	// Validator, when set, checks each body before it is moved into Dir
	Validator DocumentValidator
	Logger    *slog.Logger
}

// Downloader fetches roster documents into the raw directory
type Downloader struct {
	client      *resty.Client
	dir         string
	concurrency int
	limiter     *rate.Limiter
	validator   DocumentValidator
	logger      *slog.Logger
}

// NewDownloader creates a downloader writing into opts.Dir
func NewDownloader(client *resty.Client, opts DownloaderOptions) *Downloader {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Downloader{
		client:      client,
		dir:         opts.Dir,
		concurrency: opts.Concurrency,
		limiter:     rate.NewLimiter(limit, opts.Concurrency),
		validator:   opts.Validator,
		logger:      opts.Logger,
	}
}

// Download fetches every link whose target file does not exist yet. A failed
// link is recorded in its result and does not stop the others; only context
// cancellation aborts the batch. Results are in link order.
func (d *Downloader) Download(ctx context.Context, links []Link) ([]DownloadResult, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create download directory", err).WithContext("dir", d.dir)
	}

	results := make([]DownloadResult, len(links))
	var fetched atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, link := range links {
		g.Go(func() error {
			res := DownloadResult{Link: link, Path: filepath.Join(d.dir, link.Name)}
			defer func() { results[i] = res }()

			if _, err := os.Stat(res.Path); err == nil {
				res.Skipped = true
				d.logger.DebugContext(gctx, "Document already downloaded", slog.String("path", res.Path))
				return nil
			}

			if err := d.limiter.Wait(gctx); err != nil {
				return err
			}
			if err := d.fetch(gctx, link.URL, res.Path); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res.Err = err
				d.logger.WarnContext(gctx, "Download failed",
					slog.String("url", link.URL),
					slog.String("path", res.Path),
					slog.String("error", err.Error()))
				return nil
			}
			fetched.Add(1)
			d.logger.InfoContext(gctx, "Downloaded document",
				slog.String("url", link.URL),
				slog.String("path", res.Path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	d.logger.InfoContext(ctx, "Download phase complete",
		slog.Int("links", len(links)),
		slog.Int64("fetched", fetched.Load()))
	return results, nil
}

// fetch streams url into a temporary sibling of target, then renames it
func (d *Downloader) fetch(ctx context.Context, url, target string) error {
	f, err := os.CreateTemp(d.dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return apperrors.NewStorageError("failed to create download file", err).WithContext("path", target)
	}
	tmp := f.Name()
	f.Close()
	defer os.Remove(tmp)

	resp, err := d.client.R().SetContext(ctx).SetOutput(tmp).Get(url)
	if err != nil {
		return apperrors.NewNetworkError("failed to download document", err).WithContext("url", url)
	}
	if resp.IsError() {
		return apperrors.NewNetworkError(fmt.Sprintf("download returned %s", resp.Status()), nil).WithContext("url", url)
	}

	if d.validator != nil {
		if err := d.validator.ValidateDocument(tmp, filepath.Base(target)); err != nil {
			return apperrors.NewNetworkError("downloaded body is not a roster document", err).WithContext("url", url)
		}
	}

	if err := os.Rename(tmp, target); err != nil {
		return apperrors.NewStorageError("failed to move download into place", err).WithContext("path", target)
	}
	return nil
}
