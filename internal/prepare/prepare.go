// Package prepare builds the products.json catalogue for the crowd-testing
// page from a folder of batch-generated model images.
package prepare

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/parisxmas/crowdtest/internal/models"
)

const (
	productPrefix = "商品"
	productImage  = "商品.jpg"
	minImages     = 2
)

// modelImages maps version keys to the file each batch run writes.
var modelImages = []struct {
	key  string
	file string
}{
	{models.VersionSimple, "简单版.jpg"},
	{models.VersionExtended, "扩展版.jpg"},
	{models.VersionNoReference, "不垫图版.jpg"},
	{models.VersionNoReferenceModel, "不垫图版模特.jpg"},
}

var ErrNoProducts = errors.New("no usable products found")

type Options struct {
	SourceDir  string // one 商品<id> sub-directory per product
	OutputFile string // products.json
	ImagesDir  string // copy target; catalogue paths are images/<id>/...
	Base64     bool   // inline images as data URLs instead of copying
}

// Run scans SourceDir, builds the catalogue and writes it to OutputFile.
// Products without 商品.jpg or with fewer than two model images are skipped.
func Run(opts Options, log *zap.Logger) ([]models.Product, error) {
	entries, err := os.ReadDir(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("prepare: read source: %w", err)
	}

	var products []models.Product
	found := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), productPrefix) {
			continue
		}
		found++
		p, err := buildProduct(opts, e.Name(), log)
		if err != nil {
			return nil, err
		}
		if p != nil {
			products = append(products, *p)
		}
	}
	log.Info("scanned source", zap.String("dir", opts.SourceDir), zap.Int("folders", found), zap.Int("products", len(products)))

	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	if err := writeCatalogue(opts.OutputFile, products); err != nil {
		return nil, err
	}
	return products, nil
}

func buildProduct(opts Options, folder string, log *zap.Logger) (*models.Product, error) {
	dir := filepath.Join(opts.SourceDir, folder)

	productPath := filepath.Join(dir, productImage)
	if !exists(productPath) {
		log.Warn("skipping product", zap.String("folder", folder), zap.String("reason", "missing "+productImage))
		return nil, nil
	}

	type image struct{ key, path string }
	var available []image
	for _, m := range modelImages {
		p := filepath.Join(dir, m.file)
		if exists(p) {
			available = append(available, image{m.key, p})
		}
	}
	if len(available) < minImages {
		log.Warn("skipping product", zap.String("folder", folder), zap.Int("images", len(available)),
			zap.String("reason", "not enough model images"))
		return nil, nil
	}

	id := strings.ReplaceAll(folder, productPrefix, "")
	p := &models.Product{ID: id, Name: folder, Images: map[string]string{}}

	place := func(src, name string) (string, error) {
		if opts.Base64 {
			return dataURL(src)
		}
		return copyImage(src, filepath.Join(opts.ImagesDir, id), name, id)
	}

	var err error
	if p.ProductImage, err = place(productPath, "product"); err != nil {
		return nil, err
	}
	for _, img := range available {
		if p.Images[img.key], err = place(img.path, img.key); err != nil {
			return nil, err
		}
	}
	log.Info("product ready", zap.String("folder", folder), zap.Int("images", len(available)))
	return p, nil
}

func exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

func dataURL(src string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("prepare: read %s: %w", src, err)
	}
	mime, ok := mimeTypes[strings.ToLower(filepath.Ext(src))]
	if !ok {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// copyImage copies src to destDir/name<ext>, keeping its modification time,
// and returns the catalogue-relative path.
func copyImage(src, destDir, name, id string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare: create %s: %w", destDir, err)
	}
	ext := filepath.Ext(src)
	dest := filepath.Join(destDir, name+ext)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("prepare: open %s: %w", src, err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("prepare: stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("prepare: create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("prepare: copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("prepare: close %s: %w", dest, err)
	}
	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return "", fmt.Errorf("prepare: chtimes %s: %w", dest, err)
	}
	return path.Join("images", id, name+ext), nil
}

func writeCatalogue(file string, products []models.Product) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("prepare: create output dir: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(products); err != nil {
		return fmt.Errorf("prepare: encode catalogue: %w", err)
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("prepare: write %s: %w", file, err)
	}
	return nil
}
