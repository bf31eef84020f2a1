// Package content turns a build directory into upload items.
package content

import (
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/anirudhbiyani/sitestack/pkg/sitestack"
)

// contentTypes are the types a built single-page app needs served exactly.
var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// ContentType returns the content type for name, consulting the fixed
// table, then the system MIME table, then the content itself.
func ContentType(name string, body []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ext != "" && ct != "" {
		return ct
	}
	if len(body) > 0 {
		return mimetype.Detect(body).String()
	}
	return "application/octet-stream"
}

// Collect walks dir and returns one item per regular file, keyed by its
// slash-separated path relative to dir and sorted by key.
func Collect(dir string) ([]sitestack.UploadItem, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		e := sitestack.ErrPreconditionFailed("build directory "+dir+" does not exist; build the site first").
			WithResource("directory", dir)
		if err != nil {
			e = e.WithCause(err)
		}
		return nil, e
	}

	var items []sitestack.UploadItem
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		items = append(items, sitestack.UploadItem{
			Key:         key,
			Body:        body,
			ContentType: ContentType(key, body),
		})
		return nil
	})
	if err != nil {
		return nil, sitestack.ErrPreconditionFailed("cannot read build directory").
			WithResource("directory", dir).
			WithCause(err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}
