package vocab

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
)

// ArchiveMember maps a glob pattern over archive member names to a
// destination file. The first matching member wins.
type ArchiveMember struct {
	Pattern string
	Dest    string
}

func matchMember(pattern, name string) bool {
	name = path.Clean(name)
	if ok, err := path.Match(pattern, name); err == nil && ok {
		return true
	}
	return false
}

// ExtractFromZip copies the requested members out of a ZIP archive. Every
// pattern must match at least one member or the extraction fails with
// files_not_found.
func ExtractFromZip(zipPath string, members []ArchiveMember) error {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("vocab: open archive %s: %w", zipPath, err)
	}
	defer archive.Close()

	for _, member := range members {
		var found *zip.File
		for _, file := range archive.File {
			if !file.FileInfo().IsDir() && matchMember(member.Pattern, file.Name) {
				found = file
				break
			}
		}
		if found == nil {
			return apierr.FilesNotFound(fmt.Errorf("no archive member matches %q in %s", member.Pattern, zipPath))
		}

		reader, err := found.Open()
		if err != nil {
			return fmt.Errorf("vocab: open archive member %s: %w", found.Name, err)
		}
		err = extractTo(member.Dest, reader)
		reader.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// ExtractFromGzip decompresses a single-member gzip file.
func ExtractFromGzip(gzPath, dest string) error {
	file, err := os.Open(gzPath)
	if err != nil {
		return fmt.Errorf("vocab: open %s: %w", gzPath, err)
	}
	defer file.Close()

	reader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("vocab: read gzip %s: %w", gzPath, err)
	}
	defer reader.Close()

	return extractTo(dest, reader)
}

// ExtractFromTarGz copies the requested members out of a gzipped tarball.
func ExtractFromTarGz(tarPath string, members []ArchiveMember) error {
	file, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("vocab: open %s: %w", tarPath, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("vocab: read gzip %s: %w", tarPath, err)
	}
	defer gz.Close()

	pending := make(map[string]string, len(members))
	for _, member := range members {
		pending[member.Pattern] = member.Dest
	}

	reader := tar.NewReader(gz)
	for len(pending) > 0 {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("vocab: read tar %s: %w", tarPath, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		for pattern, dest := range pending {
			if matchMember(pattern, header.Name) {
				if err := extractTo(dest, reader); err != nil {
					return err
				}
				delete(pending, pattern)
				break
			}
		}
	}
	for pattern := range pending {
		return apierr.FilesNotFound(fmt.Errorf("no archive member matches %q in %s", pattern, tarPath))
	}
	return nil
}

func extractTo(dest string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("vocab: create directory for %s: %w", dest, err)
	}
	return writeFile(dest, r)
}
