package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"labhub/internal/models"
)

const (
	dirMode     = 0o755
	fileMode    = 0o644
	nameSpacing = "-"
)

// Local stores media under one directory per kind below root and
// publishes references below baseURL.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates a local media store. Kind directories are created lazily.
func NewLocal(root, baseURL string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("media root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("media base url is required")
	}
	return &Local{root: abs, baseURL: baseURL}, nil
}

// Root returns the absolute media root.
func (l *Local) Root() string {
	if l == nil {
		return ""
	}
	return l.root
}

// Store writes r to the kind directory and returns the public reference.
func (l *Local) Store(ctx context.Context, kind models.MediaKind, originalName, disambiguator string, r io.Reader) (string, error) {
	if l == nil {
		return "", fmt.Errorf("media store is not configured")
	}
	if r == nil {
		return "", fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	kindDir, ok := kind.Dir()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaKind, kind)
	}

	name := StoredName(disambiguator, originalName)
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}

	dir := filepath.Join(l.root, kindDir)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", &WriteError{Path: dir, Err: err}
	}

	dst := filepath.Join(dir, name)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return "", &WriteError{Path: dst, Err: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", &WriteError{Path: dst, Err: err}
	}
	if err := f.Close(); err != nil {
		return "", &WriteError{Path: dst, Err: err}
	}

	return l.baseURL + "/" + kindDir + "/" + name, nil
}

// Remove deletes the file a reference points at. Missing files are ignored.
func (l *Local) Remove(ctx context.Context, kind models.MediaKind, reference string) error {
	if l == nil {
		return fmt.Errorf("media store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.Path(kind, reference)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Path resolves a reference to its on-disk location. Only the last path
// segment of the reference is used.
func (l *Local) Path(kind models.MediaKind, reference string) (string, error) {
	kindDir, ok := kind.Dir()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaKind, kind)
	}
	name := referenceName(reference)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid media reference %q", reference)
	}
	return filepath.Join(l.root, kindDir, name), nil
}

// StoredName composes the on-disk file name for an upload.
func StoredName(disambiguator, originalName string) string {
	sanitized := SanitizeName(originalName)
	if sanitized == "" {
		return ""
	}
	disambiguator = strings.TrimSpace(disambiguator)
	if disambiguator == "" {
		return sanitized
	}
	return disambiguator + "-" + sanitized
}

// SanitizeName drops any directory part of a client file name and replaces
// each whitespace rune with "-".
func SanitizeName(originalName string) string {
	name := strings.ReplaceAll(strings.TrimSpace(originalName), `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsSpace(r) {
			b.WriteString(nameSpacing)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// referenceName is the raw segment after the last "/". References are not
// escaped on the way out, so they are not unescaped here either.
func referenceName(reference string) string {
	reference = strings.TrimSpace(reference)
	if i := strings.LastIndex(reference, "/"); i >= 0 {
		reference = reference[i+1:]
	}
	return reference
}

var _ MediaStore = (*Local)(nil)
