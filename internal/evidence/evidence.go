package evidence

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"synapse/internal/logging"
)

// Repo stores uploaded evidence photos on disk, one directory per order.
// Saved paths double as the opaque upload references clients pass back when
// answering an image[] clarify question.
type Repo struct {
	root   string
	logger logging.Logger
}

// NewRepo creates the repository rooted at dir, creating it if needed.
func NewRepo(dir string) (*Repo, error) {
	if dir == "" {
		dir = "evidence"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence root: %w", err)
	}
	return &Repo{root: dir, logger: logging.NewComponentLogger("Evidence")}, nil
}

// SaveFile persists one uploaded file and returns its reference.
func (r *Repo) SaveFile(orderID, filename string, src io.Reader) (string, error) {
	dir := r.orderDir(orderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create order dir: %w", err)
	}

	name := fmt.Sprintf("evidence_%d_%s", time.Now().UnixNano(), sanitize(filename))
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write evidence file: %w", err)
	}
	return path, nil
}

// SaveImages persists a batch of images given either as data URLs or as
// references to files already inside the repository. Unusable entries are
// skipped; the returned slice holds the references that were saved.
func (r *Repo) SaveImages(orderID string, images []string) []string {
	var saved []string
	for i, src := range images {
		switch {
		case strings.HasPrefix(src, "data:image/"):
			path, err := r.saveDataURL(orderID, i, src)
			if err != nil {
				r.logger.Warn("skipping image %d for order %s: %v", i, orderID, err)
				continue
			}
			saved = append(saved, path)
		case r.owns(src):
			if _, err := os.Stat(src); err == nil {
				saved = append(saved, src)
			}
		default:
			r.logger.Warn("skipping image %d for order %s: unsupported reference", i, orderID)
		}
	}
	return saved
}

func (r *Repo) saveDataURL(orderID string, index int, src string) (string, error) {
	header, b64, ok := strings.Cut(src, ",")
	if !ok {
		return "", fmt.Errorf("malformed data url")
	}
	ext := ".jpg"
	if strings.Contains(header, "png") {
		ext = ".png"
	} else if strings.Contains(header, "webp") {
		ext = ".webp"
	}
	blob, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode data url: %w", err)
	}

	dir := r.orderDir(orderID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("evidence_%d_%d%s", time.Now().UnixNano(), index, ext))
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the saved references for an order, newest first.
func (r *Repo) List(orderID string) []string {
	dir := r.orderDir(orderID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	type stamped struct {
		path string
		mod  time.Time
	}
	var files []stamped
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, stamped{filepath.Join(dir, e.Name()), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out
}

// Purge deletes all evidence for an order and reports how many files were
// removed. Mediation starts with a purge so each dispute reviews only its
// own photos.
func (r *Repo) Purge(orderID string) int {
	removed := len(r.List(orderID))
	if err := os.RemoveAll(r.orderDir(orderID)); err != nil {
		r.logger.Warn("purge for order %s: %v", orderID, err)
		return 0
	}
	return removed
}

func (r *Repo) orderDir(orderID string) string {
	return filepath.Join(r.root, sanitize(orderID))
}

// owns reports whether a reference points inside this repository.
func (r *Repo) owns(ref string) bool {
	rel, err := filepath.Rel(r.root, ref)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sanitize(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "unnamed"
	}
	return name
}
