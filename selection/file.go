package selection

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// UnknownSize marks a file whose length is not known before it is read.
const UnknownSize int64 = -1

// sniffLen is how many leading bytes mimetype needs to detect most types.
const sniffLen = 3072

var ErrIsDir = errors.New("selection: path is a directory")

// File is a file picked for upload. It is never mutated; a new selection
// replaces it.
type File struct {
	Name string
	// Size in bytes, or UnknownSize.
	Size int64
	MIME string

	open func() (io.ReadCloser, error)
}

// Open picks the file at path.
func Open(path string) (*File, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDir, path)
	}
	mime := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		mime = mt.String()
	}
	return &File{
		Name: info.Name(),
		Size: info.Size(),
		MIME: mime,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FromReader picks content that can only be read once, such as stdin.
// Pass UnknownSize when the length is not known.
func FromReader(name string, r io.Reader, size int64) *File {
	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)
	return &File{
		Name: name,
		Size: size,
		MIME: mimetype.Detect(head).String(),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(br), nil
		},
	}
}

// Reader opens the file content. The caller closes it.
func (f *File) Reader() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, errors.New("selection: file has no content")
	}
	return f.open()
}

func (f *File) SizeKnown() bool {
	return f.Size >= 0
}
