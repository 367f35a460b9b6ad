// Package updater checks GitHub releases for a newer ensemble binary and
// replaces the running executable with it.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	// Repo is the GitHub repository releases are published to.
	Repo = "HendryAvila/ensemble"

	// BinaryName is the executable inside release archives.
	BinaryName = "ensemble"

	checkTimeout = 10 * time.Second

	// maxArchiveBytes bounds a downloaded release archive.
	maxArchiveBytes = 200 << 20
)

// ErrUpToDate is returned by SelfUpdate when no newer release exists.
var ErrUpToDate = errors.New("already at the latest version")

// Release holds the relevant fields from a GitHub release.
type Release struct {
	TagName string  `json:"tag_name"`
	HTMLURL string  `json:"html_url"`
	Assets  []Asset `json:"assets"`
}

// Asset is a downloadable file in a GitHub release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Check is the outcome of a version check.
type Check struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// Updater talks to the GitHub releases API.
type Updater struct {
	endpoint   string
	httpClient *http.Client
	goos       string
	goarch     string
}

// New returns an Updater for Repo.
func New() *Updater {
	return &Updater{
		endpoint:   "https://api.github.com/repos/" + Repo + "/releases/latest",
		httpClient: &http.Client{Timeout: checkTimeout},
		goos:       runtime.GOOS,
		goarch:     runtime.GOARCH,
	}
}

// WithEndpoint points the updater at another latest-release URL.
func (u *Updater) WithEndpoint(url string) *Updater {
	u.endpoint = url
	return u
}

// Latest fetches the latest release.
func (u *Updater) Latest(ctx context.Context, currentVersion string) (Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.endpoint, nil)
	if err != nil {
		return Release{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", BinaryName+"/"+currentVersion)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("checking latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}
	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, fmt.Errorf("parsing release info: %w", err)
	}
	return rel, nil
}

// CheckVersion compares currentVersion with the latest release. Failures
// are reported as "no update available".
func (u *Updater) CheckVersion(ctx context.Context, currentVersion string) Check {
	c := Check{CurrentVersion: normalizeVersion(currentVersion)}
	rel, err := u.Latest(ctx, currentVersion)
	if err != nil {
		return c
	}
	c.LatestVersion = normalizeVersion(rel.TagName)
	c.ReleaseURL = rel.HTMLURL
	c.UpdateAvailable = isNewer(c.CurrentVersion, c.LatestVersion)
	return c
}

// SelfUpdate downloads the release asset for this platform and swaps it
// in for the executable at execPath. It returns the installed version.
func (u *Updater) SelfUpdate(ctx context.Context, currentVersion, execPath string) (string, error) {
	rel, err := u.Latest(ctx, currentVersion)
	if err != nil {
		return "", err
	}
	latest := normalizeVersion(rel.TagName)
	if !isNewer(normalizeVersion(currentVersion), latest) {
		return "", ErrUpToDate
	}

	assetName := u.assetName(latest)
	var downloadURL string
	for _, a := range rel.Assets {
		if a.Name == assetName {
			downloadURL = a.BrowserDownloadURL
			break
		}
	}
	if downloadURL == "" {
		return "", fmt.Errorf("no release asset for %s/%s (looking for %s)", u.goos, u.goarch, assetName)
	}

	archive, err := u.download(ctx, downloadURL)
	if err != nil {
		return "", err
	}
	binary, err := extractBinary(archive, assetName)
	if err != nil {
		return "", fmt.Errorf("extracting binary: %w", err)
	}
	if err := replace(execPath, binary, u.goos == "windows"); err != nil {
		return "", err
	}
	return latest, nil
}

func (u *Updater) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
	if err != nil {
		return nil, fmt.Errorf("downloading release: %w", err)
	}
	return data, nil
}

// replace writes binary next to execPath and renames it into place.
// Windows cannot overwrite a running executable, so the old one is moved
// aside first.
func replace(execPath string, binary []byte, windows bool) error {
	resolved, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolving symlinks: %w", err)
	}
	tmp := resolved + ".new"
	if err := os.WriteFile(tmp, binary, 0o755); err != nil {
		return fmt.Errorf("writing new binary: %w", err)
	}
	if windows {
		old := resolved + ".old"
		_ = os.Remove(old)
		if err := os.Rename(resolved, old); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("backing up current binary: %w", err)
		}
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing binary: %w", err)
	}
	return nil
}

func extractBinary(archive []byte, assetName string) ([]byte, error) {
	if strings.HasSuffix(assetName, ".zip") {
		return extractFromZip(archive)
	}
	return extractFromTarGz(archive)
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == BinaryName || base == BinaryName+".exe"
}

func extractFromTarGz(archive []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		if header.Typeflag == tar.TypeReg && isBinary(header.Name) {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("%s binary not found in archive", BinaryName)
}

func extractFromZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		return data, err
	}
	return nil, fmt.Errorf("%s binary not found in archive", BinaryName)
}

// assetName matches the GoReleaser name_template.
func (u *Updater) assetName(version string) string {
	ext := "tar.gz"
	if u.goos == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", BinaryName, version, u.goos, u.goarch, ext)
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// isNewer compares dotted versions numerically, padding to three parts.
// A "dev" build never updates.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := versionParts(current), versionParts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		out[i] = leadingInt(p)
	}
	return out
}

// leadingInt parses the leading digits of s ("3rc1" is 3).
func leadingInt(s string) int {
	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(s)
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
