// Package watch detects modifications of the moderator's question file.
package watch

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FileSource polls a single file and reports its trimmed content after each modification.
type FileSource struct {
	path    string
	modTime time.Time
	size    int64
	content []byte
	seen    bool
	mutex   sync.Mutex
}

// NewFileSource watches path. Unless loadOnStart is set, content already present
// is treated as seen and only later modifications are reported.
func NewFileSource(path string, loadOnStart bool) *FileSource {
	source := &FileSource{path: path}
	logrus.Infof("Watching file '%s'", path)
	if loadOnStart {
		return source
	}

	info, err := os.Stat(path)
	if err != nil {
		return source
	}
	if data, err := os.ReadFile(path); err == nil {
		source.remember(info, data)
	}
	return source
}

// PollChange reports the file when its modification time, size or bytes moved;
// a same-length rewrite can keep the timestamp on coarse filesystems.
// The file counts as seen only after a successful read, so a failed read is retried.
func (f *FileSource) PollChange() (string, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false, err
	}

	if f.seen && info.ModTime().Equal(f.modTime) && info.Size() == f.size && bytes.Equal(data, f.content) {
		return "", false, nil
	}

	f.remember(info, data)
	return strings.TrimSpace(string(data)), true, nil
}

func (f *FileSource) remember(info fs.FileInfo, data []byte) {
	f.modTime = info.ModTime()
	f.size = info.Size()
	f.content = data
	f.seen = true
}
