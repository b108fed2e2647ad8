package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gosupermarket_api/internal/feed/models"
)

// ObjectMeta describes one stored feed object.
type ObjectMeta struct {
	Key          string
	ETag         string
	LastModified time.Time
}

// ObjectStorage is the minimal contract against the raw feed bucket.
type ObjectStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectMeta, error)
}

// FSObjectStore serves feed objects from a local directory laid out like the
// bucket: providers/<provider>/<branch>/<feedType>_<timestamp>.gz.
type FSObjectStore struct {
	root string
}

func NewFSObjectStore(root string) *FSObjectStore {
	return &FSObjectStore{root: root}
}

func (s *FSObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, &models.TransientIOError{Op: "object get", Err: err}
	}
	return data, nil
}

func (s *FSObjectStore) List(_ context.Context, prefix string) ([]ObjectMeta, error) {
	var out []ObjectMeta
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out = append(out, ObjectMeta{
			Key:          key,
			ETag:         contentETag(data),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, &models.TransientIOError{Op: "object list", Err: err}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func contentETag(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
