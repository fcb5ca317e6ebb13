package handlers

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
)

// saveUpload stores an uploaded file and returns its key plus the raw
// bytes for the upstream payload.
func (a *App) saveUpload(ctx context.Context, fh *multipart.FileHeader) (string, []byte, error) {
	src, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("handlers: open upload: %w", err)
	}
	defer src.Close()
	return a.Uploads.Save(ctx, fh.Filename, src)
}

// contentTypeIs reports whether the upload declares a media type under the
// given prefix, such as "image/" or "video/".
func contentTypeIs(fh *multipart.FileHeader, prefix string) bool {
	return strings.HasPrefix(fh.Header.Get("Content-Type"), prefix)
}

// formFiles returns every uploaded file under the given field name.
func formFiles(form *multipart.Form, key string) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	return form.File[key]
}
