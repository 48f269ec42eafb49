package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/krau/fileopener/selection"
)

const (
	FileField    = "file"
	OpenNowField = "openNow"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// formBody is the multipart request body: the file part followed by the
// openNow field. It streams the file between a prebuilt preamble and
// trailer so the total length is known up front when the file size is.
type formBody struct {
	io.Reader
	content     io.Closer
	size        int64
	contentType string
}

func newFormBody(f *selection.File) (*formBody, error) {
	content, err := f.Reader()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	mime := f.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FileField, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", mime)
	if _, err := mw.CreatePart(h); err != nil {
		content.Close()
		return nil, err
	}
	head := bytes.Clone(buf.Bytes())
	buf.Reset()

	if err := mw.WriteField(OpenNowField, "true"); err != nil {
		content.Close()
		return nil, err
	}
	if err := mw.Close(); err != nil {
		content.Close()
		return nil, err
	}
	tail := bytes.Clone(buf.Bytes())

	size := selection.UnknownSize
	if f.SizeKnown() {
		size = int64(len(head)) + f.Size + int64(len(tail))
	}
	return &formBody{
		Reader:      io.MultiReader(bytes.NewReader(head), content, bytes.NewReader(tail)),
		content:     content,
		size:        size,
		contentType: mw.FormDataContentType(),
	}, nil
}

func (b *formBody) Close() error {
	return b.content.Close()
}
