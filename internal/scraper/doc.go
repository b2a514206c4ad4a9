// Package scraper discovers and downloads roster documents.
//
// Lister fetches the listing page and keeps the anchors whose href contains a
// filter string such as "Employee". Downloader fetches those links into the
// raw directory with bounded concurrency and a request rate limit, skipping
// any link whose target file already exists.
//
//	client := scraper.NewClient(cfg.Source)
//	lister, _ := scraper.NewLister(client, cfg.Source.ListingURL, cfg.Source.BaseURL, cfg.Source.LinkFilter)
//	links, err := lister.List(ctx)
//	...
//	results, err := scraper.NewDownloader(client, scraper.DownloaderOptions{Dir: paths.RawDir, Concurrency: 2}).
//	    Download(ctx, links)
package scraper
