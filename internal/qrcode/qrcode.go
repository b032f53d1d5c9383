// Package qrcode renders the PNG QR code published for each lab.
package qrcode

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const (
	DefaultSize = 256
	dirMode     = 0o755
)

// Generator writes "{code}.png" files into one directory.
type Generator struct {
	dir  string
	size int
}

// NewGenerator returns a generator writing into dir. A non-positive size uses DefaultSize.
func NewGenerator(dir string, size int) (*Generator, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("qr directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{dir: abs, size: size}, nil
}

// Payload is the text encoded for a lab: "{code} - {name}".
func Payload(code int64, name string) string {
	return fmt.Sprintf("%d - %s", code, name)
}

// Path returns where the PNG for code lives.
func (g *Generator) Path(code int64) string {
	return filepath.Join(g.dir, strconv.FormatInt(code, 10)+".png")
}

// Write encodes payload and stores it as the PNG for code.
func (g *Generator) Write(code int64, payload string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("qr generator is not configured")
	}
	if code <= 0 {
		return "", fmt.Errorf("lab code is required")
	}

	encoded, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	scaled, err := barcode.Scale(encoded, g.size, g.size)
	if err != nil {
		return "", fmt.Errorf("scale qr: %w", err)
	}

	if err := os.MkdirAll(g.dir, dirMode); err != nil {
		return "", err
	}
	dst := g.Path(code)
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, scaled); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write qr png: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// Remove deletes the PNG for code. Missing files are ignored.
func (g *Generator) Remove(code int64) error {
	if g == nil {
		return nil
	}
	if err := os.Remove(g.Path(code)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
