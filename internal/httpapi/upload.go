package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

const multipartMemory = 8 << 20

var (
	errNoFiles  = errors.New("no files uploaded")
	errTooLarge = errors.New("upload too large")
)

// readUploads parses a multipart body into the output name and the "files"
// parts, in upload order.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) (string, []types.FileInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return "", nil, errTooLarge
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return "", nil, errNoFiles
		default:
			return "", nil, fmt.Errorf("parse multipart: %w", err)
		}
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return "", nil, errNoFiles
	}

	files := make([]types.FileInput, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, types.FileInput{Name: filepath.Base(fh.Filename), Data: data})
	}

	return r.FormValue("output_name"), files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
