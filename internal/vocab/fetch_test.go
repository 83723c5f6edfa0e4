package vocab

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/bioterms-backend/internal/config"
	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/store/testutil"
)

func newTestFetcher(t *testing.T, cfg config.Config) *Fetcher {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	fetch, err := NewFetcher(cfg, nil, testutil.Logger(t))
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	return fetch
}

func TestFetcherDownloadAndTimestamp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("release payload"))
	}))
	t.Cleanup(server.Close)

	fetch := newTestFetcher(t, config.Config{})
	ctx := context.Background()

	if err := fetch.Download(ctx, server.URL, "hpo/hp.owl", nil); err != nil {
		t.Fatalf("download: %v", err)
	}
	raw, err := os.ReadFile(fetch.Path("hpo/hp.owl"))
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(raw) != "release payload" {
		t.Errorf("payload: %q", raw)
	}
	if !fetch.FilesExist([]string{"hpo/hp.owl"}) {
		t.Errorf("downloaded file should exist")
	}

	if err := fetch.WriteTimestamp("hpo/.timestamp"); err != nil {
		t.Fatalf("write timestamp: %v", err)
	}
	stamp, ok := fetch.ReadTimestamp("hpo/.timestamp")
	if !ok {
		t.Fatalf("timestamp not readable")
	}
	if time.Since(stamp) > time.Minute || stamp.Location() != time.UTC {
		t.Errorf("timestamp: %v", stamp)
	}
	if _, ok := fetch.ReadTimestamp("hpo/.missing"); ok {
		t.Errorf("missing timestamp should read as absent")
	}
}

func TestFetcherDownloadRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	fetch := newTestFetcher(t, config.Config{})
	if err := fetch.Download(context.Background(), server.URL, "ncit/thesaurus.txt", nil); err == nil {
		t.Fatalf("expected error for 403 response")
	}
	if fetch.FilesExist([]string{"ncit/thesaurus.txt"}) {
		t.Errorf("failed download must not leave a file behind")
	}
}

func TestTrudReleaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"httpStatus":200,"releases":[{"archiveFileUrl":"https://example.org/release.zip"}]}`))
	}))
	t.Cleanup(server.Close)

	fetch := newTestFetcher(t, config.Config{TrudAPIKey: "key"})
	url, err := fetch.trudReleaseURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("release url: %v", err)
	}
	if url != "https://example.org/release.zip" {
		t.Errorf("url: %q", url)
	}
}

func TestTrudReleaseURLFailures(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{})
	if _, err := fetch.TrudReleaseURL(context.Background(), trudItemCTV3); !apierr.HasCode(err, apierr.CodeMissingCredential) {
		t.Errorf("missing key: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"httpStatus":401,"message":"invalid key"}`))
	}))
	t.Cleanup(server.Close)

	withKey := newTestFetcher(t, config.Config{TrudAPIKey: "key"})
	if _, err := withKey.trudReleaseURL(context.Background(), server.URL); err == nil {
		t.Errorf("expected error for non-200 httpStatus")
	}
}

func TestBioPortalHeaders(t *testing.T) {
	fetch := newTestFetcher(t, config.Config{BioPortalAPIKey: "secret"})
	headers, err := fetch.BioPortalHeaders()
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	if headers["Authorization"] != "apikey token=secret" {
		t.Errorf("authorization header: %q", headers["Authorization"])
	}

	bare := newTestFetcher(t, config.Config{})
	if _, err := bare.BioPortalHeaders(); !apierr.HasCode(err, apierr.CodeMissingCredential) {
		t.Errorf("missing key: %v", err)
	}
}

func buildZip(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := writer.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		w.Write([]byte(content))
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	path := filepath.Join(t.TempDir(), "archive.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	return path
}

func TestExtractFromZip(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"SnomedCT_InternationalRF2_20240801/Full/Terminology/sct2_Concept_Full_INT.txt": "concept rows",
		"SnomedCT_InternationalRF2_20240801/Readme.txt":                                 "readme",
	})

	dest := filepath.Join(t.TempDir(), "concept.txt")
	err := ExtractFromZip(zipPath, []ArchiveMember{
		{Pattern: "SnomedCT_InternationalRF2*/Full/Terminology/sct2_Concept*.txt", Dest: dest},
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	raw, _ := os.ReadFile(dest)
	if string(raw) != "concept rows" {
		t.Errorf("extracted payload: %q", raw)
	}
}

func TestExtractFromZipMissingMember(t *testing.T) {
	zipPath := buildZip(t, map[string]string{"other.txt": "x"})
	err := ExtractFromZip(zipPath, []ArchiveMember{
		{Pattern: "V3/Concept.v3", Dest: filepath.Join(t.TempDir(), "concept.v3")},
	})
	if !apierr.HasCode(err, apierr.CodeFilesNotFound) {
		t.Errorf("expected files_not_found, got %v", err)
	}
}

func TestExtractFromGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	gz.Write([]byte("omim csv"))
	gz.Close()

	gzPath := filepath.Join(t.TempDir(), "omim.gz")
	if err := os.WriteFile(gzPath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write gz: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "omim.csv")
	if err := ExtractFromGzip(gzPath, dest); err != nil {
		t.Fatalf("extract: %v", err)
	}
	raw, _ := os.ReadFile(dest)
	if string(raw) != "omim csv" {
		t.Errorf("extracted payload: %q", raw)
	}
}

func TestExtractFromTarGz(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	payload := []byte(`{"orpha": []}`)
	tw.WriteHeader(&tar.Header{Name: "en_product1.json", Mode: 0o644, Size: int64(len(payload)), Typeflag: tar.TypeReg})
	tw.Write(payload)
	tw.Close()
	gz.Close()

	tarPath := filepath.Join(t.TempDir(), "product.tar.gz")
	if err := os.WriteFile(tarPath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write tar: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "en_product1.json")
	if err := ExtractFromTarGz(tarPath, []ArchiveMember{{Pattern: "en_product1.json", Dest: dest}}); err != nil {
		t.Fatalf("extract: %v", err)
	}
	raw, _ := os.ReadFile(dest)
	if string(raw) != string(payload) {
		t.Errorf("extracted payload: %q", raw)
	}

	err := ExtractFromTarGz(tarPath, []ArchiveMember{{Pattern: "missing.json", Dest: dest}})
	if !apierr.HasCode(err, apierr.CodeFilesNotFound) {
		t.Errorf("expected files_not_found, got %v", err)
	}
}
