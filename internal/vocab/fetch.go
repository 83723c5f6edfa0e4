package vocab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/yungbote/bioterms-backend/internal/config"
	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/gcsmirror"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

const trudReleaseEndpoint = "https://isd.digital.nhs.uk/trud/api/v1/keys/%s/items/%d/releases?latest"

// downloadTimeout bounds a single release-file fetch. The SNOMED UK
// archives run to several hundred megabytes.
const downloadTimeout = 30 * time.Minute

// Fetcher downloads release files into the data directory. Paths handed to
// it are always slash-separated and relative to the data directory; the
// same relative path keys the optional GCS mirror.
type Fetcher struct {
	client          *http.Client
	dataDir         string
	mirror          *gcsmirror.Mirror
	trudAPIKey      string
	bioportalAPIKey string
	umlsAPIKey      string
	log             *logger.Logger
}

func NewFetcher(cfg config.Config, mirror *gcsmirror.Mirror, log *logger.Logger) (*Fetcher, error) {
	if log == nil {
		return nil, fmt.Errorf("vocab: logger required")
	}
	return &Fetcher{
		client:          &http.Client{Timeout: downloadTimeout},
		dataDir:         cfg.DataDir,
		mirror:          mirror,
		trudAPIKey:      cfg.TrudAPIKey,
		bioportalAPIKey: cfg.BioPortalAPIKey,
		umlsAPIKey:      cfg.UMLSAPIKey,
		log:             log.With("client", "Fetcher"),
	}, nil
}

// Path resolves a loader-relative file path inside the data directory.
func (f *Fetcher) Path(rel string) string {
	return filepath.Join(f.dataDir, filepath.FromSlash(rel))
}

// FilesExist reports whether every listed release file is on disk.
func (f *Fetcher) FilesExist(paths []string) bool {
	for _, p := range paths {
		info, err := os.Stat(f.Path(p))
		if err != nil || info.IsDir() {
			return false
		}
	}
	return true
}

// Remove deletes one release file, ignoring missing files.
func (f *Fetcher) Remove(rel string) {
	_ = os.Remove(f.Path(rel))
}

// Download streams one URL to a file under the data directory. When a
// mirror is configured it is consulted first and fed after a successful
// upstream fetch; mirror failures never fail the download.
func (f *Fetcher) Download(ctx context.Context, url, rel string, headers map[string]string) error {
	dest := f.Path(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("vocab: create directory for %s: %w", rel, err)
	}

	if reader, ok, err := f.mirror.Fetch(ctx, rel); err == nil && ok {
		defer reader.Close()
		return writeFile(dest, reader)
	} else if err != nil {
		f.log.Warn("Mirror lookup failed, fetching upstream", "object", rel, "error", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("vocab: build request for %s: %w", url, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("vocab: download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vocab: download %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := writeFile(dest, resp.Body); err != nil {
		return err
	}
	f.log.Info("Release file downloaded", "url", url, "file", rel)

	if f.mirror != nil {
		file, err := os.Open(dest)
		if err == nil {
			defer file.Close()
			if err := f.mirror.Store(ctx, rel, file); err != nil {
				f.log.Warn("Mirroring release file failed", "object", rel, "error", err)
			}
		}
	}
	return nil
}

// writeFile streams r into a temp file and renames it into place, so a
// partial download never masquerades as a complete release file.
func writeFile(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("vocab: create temp file for %s: %w", dest, err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("vocab: write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("vocab: close %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("vocab: move %s into place: %w", dest, err)
	}
	return nil
}

// DownloadArchive fetches a ZIP release into a temp location, extracts the
// requested members, and removes the archive again.
func (f *Fetcher) DownloadArchive(ctx context.Context, url, tempRel string, members []ArchiveMember, headers map[string]string) error {
	if err := f.Download(ctx, url, tempRel, headers); err != nil {
		return err
	}
	defer f.Remove(tempRel)
	return ExtractFromZip(f.Path(tempRel), f.resolveMembers(members))
}

func (f *Fetcher) resolveMembers(members []ArchiveMember) []ArchiveMember {
	out := make([]ArchiveMember, len(members))
	for i, m := range members {
		out[i] = ArchiveMember{Pattern: m.Pattern, Dest: f.Path(m.Dest)}
	}
	return out
}

// trudReleasePayload is the TRUD release listing envelope.
type trudReleasePayload struct {
	HTTPStatus int    `json:"httpStatus"`
	Message    string `json:"message"`
	Releases   []struct {
		ArchiveFileURL string `json:"archiveFileUrl"`
	} `json:"releases"`
}

// TrudReleaseURL resolves the archive URL of the latest release of an NHS
// TRUD item.
func (f *Fetcher) TrudReleaseURL(ctx context.Context, itemID int) (string, error) {
	if f.trudAPIKey == "" {
		return "", apierr.MissingCredential(fmt.Errorf("NHS TRUD API key is required"))
	}
	return f.trudReleaseURL(ctx, fmt.Sprintf(trudReleaseEndpoint, f.trudAPIKey, itemID))
}

func (f *Fetcher) trudReleaseURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("vocab: build TRUD request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vocab: query TRUD releases: %w", err)
	}
	defer resp.Body.Close()

	var payload trudReleasePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("vocab: decode TRUD response: %w", err)
	}
	if payload.HTTPStatus != http.StatusOK {
		return "", fmt.Errorf("vocab: TRUD release lookup failed: %s", payload.Message)
	}
	if len(payload.Releases) == 0 {
		return "", fmt.Errorf("vocab: TRUD release listing is empty")
	}
	return payload.Releases[0].ArchiveFileURL, nil
}

// BioPortalHeaders returns the authorization header for BioPortal
// downloads.
func (f *Fetcher) BioPortalHeaders() (map[string]string, error) {
	if f.bioportalAPIKey == "" {
		return nil, apierr.MissingCredential(fmt.Errorf("BioPortal API key is required"))
	}
	return map[string]string{"Authorization": fmt.Sprintf("apikey token=%s", f.bioportalAPIKey)}, nil
}

// UMLSDownloadURL wraps an NLM package URL in the UTS download endpoint,
// which authenticates by api key query parameter.
func (f *Fetcher) UMLSDownloadURL(packageURL string) (string, error) {
	if f.umlsAPIKey == "" {
		return "", apierr.MissingCredential(fmt.Errorf("NIH UMLS API key is required"))
	}
	return fmt.Sprintf("https://uts-ws.nlm.nih.gov/download?url=%s&apiKey=%s", packageURL, f.umlsAPIKey), nil
}

// WriteTimestamp records the UTC download instant of a release.
func (f *Fetcher) WriteTimestamp(rel string) error {
	if rel == "" {
		return nil
	}
	dest := f.Path(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("vocab: create directory for %s: %w", rel, err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := os.WriteFile(dest, []byte(stamp+"\n"), 0o644); err != nil {
		return fmt.Errorf("vocab: write timestamp %s: %w", rel, err)
	}
	return nil
}

// ReadTimestamp reads a recorded download instant. The second return is
// false when no timestamp has been written.
func (f *Fetcher) ReadTimestamp(rel string) (time.Time, bool) {
	if rel == "" {
		return time.Time{}, false
	}
	raw, err := os.ReadFile(f.Path(rel))
	if err != nil {
		return time.Time{}, false
	}
	stamp, err := time.Parse(time.RFC3339, string(trimNewline(raw)))
	if err != nil {
		return time.Time{}, false
	}
	return stamp, true
}

func trimNewline(raw []byte) []byte {
	for len(raw) > 0 && (raw[len(raw)-1] == '\n' || raw[len(raw)-1] == '\r') {
		raw = raw[:len(raw)-1]
	}
	return raw
}
