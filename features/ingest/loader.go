package ingest

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"
	git "github.com/go-git/go-git/v5"
	gitignore "github.com/sabhiram/go-gitignore"
)

var (
	ErrDirectoryNotFound = errors.New("directory path does not exist")
	ErrNoSourceFiles     = errors.New("no code files found in directory")
	ErrInvalidRepoURL    = errors.New("invalid repository URL format")
)

// Document is a loaded source file, scoped to one ingestion request.
type Document struct {
	Path     string // relative to the ingestion root
	Content  string
	FileType string // extension without the dot
}

var supportedExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".go": true, ".java": true, ".rb": true, ".rs": true,
	".c": true, ".h": true, ".cpp": true, ".hpp": true,
	".md": true,
}

// LoadDirectory walks a source tree and returns its supported text files.
// Hidden directories, vendored paths, gitignored files, and binary content
// are filtered here so the chunker only ever sees text. Paths are relative
// to root and the result is sorted so repeat ingestion is deterministic.
func LoadDirectory(root string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ErrDirectoryNotFound
	}

	// A missing .gitignore just means nothing is excluded.
	ignore, _ := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))

	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("skipping unreadable path", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			if enry.IsVendor(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || enry.IsVendor(rel) {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}

		data, readErr := os.ReadFile(path) // #nosec G304 -- path comes from walking the requested root
		if readErr != nil {
			slog.Warn("skipping unreadable file", "path", rel, "error", readErr)
			return nil
		}
		if len(data) == 0 || enry.IsBinary(data) {
			return nil
		}

		docs = append(docs, Document{
			Path:     rel,
			Content:  string(data),
			FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// ExtractArchive unpacks a ZIP file into destDir. Entries escaping the
// destination (zip-slip) are rejected.
func ExtractArchive(zipPath, destDir string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		target := filepath.Join(destDir, filepath.Clean(f.Name)) // #nosec G305 -- checked below
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}

		src, err := f.Open()
		if err != nil {
			return err
		}

		dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			src.Close()
			return err
		}

		_, err = io.Copy(dst, src) // #nosec G110 -- archives are size-capped at the handler
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// NormalizeRepoURL accepts a full clone URL or the GitHub shorthand
// "owner/repo" and returns something go-git can clone.
func NormalizeRepoURL(raw string) (string, error) {
	repoURL := strings.TrimSpace(raw)
	if repoURL == "" {
		return "", ErrInvalidRepoURL
	}
	if strings.HasPrefix(repoURL, "http://") || strings.HasPrefix(repoURL, "https://") {
		return repoURL, nil
	}
	if strings.Contains(repoURL, "/") && !strings.HasPrefix(repoURL, "git@") {
		return fmt.Sprintf("https://github.com/%s.git", repoURL), nil
	}
	return "", ErrInvalidRepoURL
}

// CloneRepo makes a shallow clone of repoURL into destDir.
func CloneRepo(ctx context.Context, repoURL, destDir string) error {
	_, err := git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}
