package invoker

import "context"

func (i *Invoker) lines(ctx context.Context, kind Kind, t string, opts []CallOption) ([]string, error) {
	res, err := i.Invoke(ctx, kind, t, opts...)
	if err != nil {
		return nil, err
	}
	return res.Lines, nil
}

// ScanNuclei runs nuclei with the default templates against a URL.
func (i *Invoker) ScanNuclei(ctx context.Context, url string, opts ...CallOption) ([]string, error) {
	return i.lines(ctx, NucleiURLScan, url, opts)
}

// ScanHttpx probes a URL for status code, redirect chain and title.
func (i *Invoker) ScanHttpx(ctx context.Context, url string, opts ...CallOption) (string, error) {
	res, err := i.Invoke(ctx, HttpxProbe, url, opts...)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// ScanKatana crawls a URL.
func (i *Invoker) ScanKatana(ctx context.Context, url string, opts ...CallOption) ([]string, error) {
	return i.lines(ctx, KatanaCrawl, url, opts)
}

// ScanWaybackurls lists archived URLs. Some may no longer exist.
func (i *Invoker) ScanWaybackurls(ctx context.Context, url string, opts ...CallOption) ([]string, error) {
	return i.lines(ctx, WaybackurlsFetch, url, opts)
}

// ScanDirsearch bruteforces paths with the default wordlist and keeps only
// the discovered URLs.
func (i *Invoker) ScanDirsearch(ctx context.Context, url string, opts ...CallOption) ([]string, error) {
	return i.lines(ctx, DirsearchBruteforce, url, opts)
}

// ScanSubfinder enumerates subdomains of a host.
func (i *Invoker) ScanSubfinder(ctx context.Context, host string, opts ...CallOption) ([]string, error) {
	return i.lines(ctx, SubfinderEnumerate, host, opts)
}

// ScanNaabu always fails with ErrNotImplemented.
func (i *Invoker) ScanNaabu(ctx context.Context, host string, opts ...CallOption) ([]string, error) {
	return i.lines(ctx, NaabuPortscan, host, opts)
}

// ScanNucleiHost always fails with ErrNotImplemented.
func (i *Invoker) ScanNucleiHost(ctx context.Context, host string, opts ...CallOption) ([]string, error) {
	return i.lines(ctx, NucleiHostScan, host, opts)
}
