package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// --- version parsing ---

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"v1.2.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{"", ""},
		{"v", ""},
		{"vv1.0.0", "v1.0.0"}, // only one leading v
	}
	for _, tt := range tests {
		if got := normalizeVersion(tt.input); got != tt.want {
			t.Errorf("normalizeVersion(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		latest  string
		want    bool
	}{
		{"newer patch", "0.2.0", "0.2.1", true},
		{"newer minor", "0.2.0", "0.3.0", true},
		{"newer major", "0.2.0", "1.0.0", true},
		{"same version", "0.2.0", "0.2.0", false},
		{"older version", "0.3.0", "0.2.0", false},
		{"empty current", "", "0.2.0", false},
		{"empty latest", "0.2.0", "", false},
		{"dev current", "dev", "0.2.0", false},
		{"two part current", "0.2", "0.3.0", true},
		{"two part latest", "0.2.0", "0.3", true},
		{"minor jump", "0.9.0", "0.10.0", true},
		{"pre-release suffix", "1.0.0", "1.0.1-rc1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNewer(tt.current, tt.latest); got != tt.want {
				t.Errorf("isNewer(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestLeadingInt(t *testing.T) {
	tests := map[string]int{"0": 0, "42": 42, "": 0, "abc": 0, "3rc1": 3}
	for in, want := range tests {
		if got := leadingInt(in); got != want {
			t.Errorf("leadingInt(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestAssetName(t *testing.T) {
	u := New()
	u.goos, u.goarch = "linux", "amd64"
	if got := u.assetName("0.3.0"); got != "ensemble_0.3.0_linux_amd64.tar.gz" {
		t.Errorf("assetName = %q", got)
	}
	u.goos = "windows"
	if got := u.assetName("0.3.0"); got != "ensemble_0.3.0_windows_amd64.zip" {
		t.Errorf("assetName = %q", got)
	}
}

// --- release server ---

type releaseServer struct {
	*httptest.Server
	release Release
	archive []byte
	status  int
}

func newReleaseServer(t *testing.T, tag string) *releaseServer {
	t.Helper()
	rs := &releaseServer{status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(rs.status)
		if rs.status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(rs.release)
		}
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(rs.archive)
	})
	rs.Server = httptest.NewServer(mux)
	t.Cleanup(rs.Close)
	rs.release = Release{
		TagName: tag,
		HTMLURL: "https://github.com/" + Repo + "/releases/tag/" + tag,
	}
	return rs
}

func (rs *releaseServer) updater(goos string) *Updater {
	u := New().WithEndpoint(rs.URL + "/latest")
	u.goos, u.goarch = goos, "amd64"
	return u
}

func (rs *releaseServer) publish(u *Updater, archive []byte) {
	rs.archive = archive
	rs.release.Assets = []Asset{{
		Name:               u.assetName(normalizeVersion(rs.release.TagName)),
		BrowserDownloadURL: rs.URL + "/asset",
	}}
}

func tarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, f := range []struct {
		name string
		data []byte
	}{{"README.md", []byte("readme")}, {name, content}} {
		hdr := &tar.Header{Name: f.name, Mode: 0o755, Size: int64(len(f.data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zipped(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func fakeExecutable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), BinaryName)
	if err := os.WriteFile(path, []byte("old"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- CheckVersion ---

func TestCheckVersion(t *testing.T) {
	rs := newReleaseServer(t, "v0.3.0")
	u := rs.updater("linux")

	got := u.CheckVersion(context.Background(), "v0.2.0")
	if !got.UpdateAvailable {
		t.Error("expected an update")
	}
	if got.LatestVersion != "0.3.0" || got.CurrentVersion != "0.2.0" {
		t.Errorf("versions = %q -> %q", got.CurrentVersion, got.LatestVersion)
	}
	if got.ReleaseURL != rs.release.HTMLURL {
		t.Errorf("ReleaseURL = %q", got.ReleaseURL)
	}

	if u.CheckVersion(context.Background(), "0.3.0").UpdateAvailable {
		t.Error("same version should not update")
	}
	if u.CheckVersion(context.Background(), "dev").UpdateAvailable {
		t.Error("dev builds should not update")
	}
}

func TestCheckVersion_Failures(t *testing.T) {
	rs := newReleaseServer(t, "v0.3.0")
	rs.status = http.StatusForbidden
	if got := rs.updater("linux").CheckVersion(context.Background(), "0.2.0"); got.UpdateAvailable {
		t.Error("API error should not report an update")
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	got := New().WithEndpoint(closed.URL).CheckVersion(context.Background(), "v0.2.0")
	if got.UpdateAvailable || got.CurrentVersion != "0.2.0" {
		t.Errorf("network error result = %+v", got)
	}
}

// --- SelfUpdate ---

func TestSelfUpdate_TarGz(t *testing.T) {
	rs := newReleaseServer(t, "v0.3.0")
	u := rs.updater("linux")
	rs.publish(u, tarGz(t, "ensemble_0.3.0/ensemble", []byte("new")))
	exe := fakeExecutable(t)

	version, err := u.SelfUpdate(context.Background(), "0.2.0", exe)
	if err != nil {
		t.Fatalf("SelfUpdate: %v", err)
	}
	if version != "0.3.0" {
		t.Errorf("version = %q", version)
	}
	data, _ := os.ReadFile(exe)
	if string(data) != "new" {
		t.Errorf("binary = %q, want new", data)
	}
}

func TestSelfUpdate_Zip(t *testing.T) {
	rs := newReleaseServer(t, "v0.3.0")
	u := rs.updater("windows")
	rs.publish(u, zipped(t, "ensemble.exe", []byte("new")))
	exe := fakeExecutable(t)

	if _, err := u.SelfUpdate(context.Background(), "0.2.0", exe); err != nil {
		t.Fatalf("SelfUpdate: %v", err)
	}
	data, _ := os.ReadFile(exe)
	if string(data) != "new" {
		t.Errorf("binary = %q, want new", data)
	}
	if old, _ := os.ReadFile(exe + ".old"); string(old) != "old" {
		t.Errorf("backup = %q, want old", old)
	}
}

func TestSelfUpdate_UpToDate(t *testing.T) {
	rs := newReleaseServer(t, "v0.2.0")
	_, err := rs.updater("linux").SelfUpdate(context.Background(), "0.2.0", fakeExecutable(t))
	if !errors.Is(err, ErrUpToDate) {
		t.Errorf("err = %v, want ErrUpToDate", err)
	}
}

func TestSelfUpdate_MissingAsset(t *testing.T) {
	rs := newReleaseServer(t, "v0.3.0")
	exe := fakeExecutable(t)
	_, err := rs.updater("linux").SelfUpdate(context.Background(), "0.2.0", exe)
	if err == nil {
		t.Fatal("expected an error without a matching asset")
	}
	data, _ := os.ReadFile(exe)
	if string(data) != "old" {
		t.Error("binary must be untouched")
	}
}

func TestSelfUpdate_ArchiveWithoutBinary(t *testing.T) {
	rs := newReleaseServer(t, "v0.3.0")
	u := rs.updater("linux")
	rs.publish(u, tarGz(t, "other-tool", []byte("x")))

	if _, err := u.SelfUpdate(context.Background(), "0.2.0", fakeExecutable(t)); err == nil {
		t.Fatal("expected an error when the archive lacks the binary")
	}
}
