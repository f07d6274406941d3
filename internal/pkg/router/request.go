package router

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/estatebite/internal/pkg/goerror"
)

// multipartMemory is how much of a multipart body stays in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

// Request is what inbound handlers receive.
type Request struct {
	*http.Request
}

func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetParamInt64 rejects anything but a positive decimal id.
func (r *Request) GetParamInt64(key string) (int64, error) {
	if v, err := strconv.ParseInt(r.GetParam(key), 10, 64); err == nil && v > 0 {
		return v, nil
	}
	return 0, goerror.NewInvalidFormat(key + " must be a positive integer")
}

func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// DecodeBody reads exactly one JSON value into dst. Unknown fields and
// trailing data are both malformed input.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if dec.Decode(dst) != nil {
		return goerror.NewInvalidFormat()
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}
	return nil
}

// UploadedFile is one multipart file part, fully buffered.
type UploadedFile struct {
	Content  []byte
	FileName string
	// ContentType is the declared part type. A missing or generic one is
	// replaced by the sniffed type.
	ContentType string
}

// ReadFormFile returns the file part called name from a multipart body of
// at most maxBytes.
func (r *Request) ReadFormFile(name string, maxBytes int64) (*UploadedFile, error) {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "multipart/form-data" {
		return nil, goerror.NewInvalidFormat("Invalid request content-type")
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
			return nil, goerror.NewValidation("File exceeds the maximum allowed size", goerror.CodePayloadTooLarge)
		}
		return nil, goerror.NewInvalidFormat()
	}

	part, header, err := r.FormFile(name)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, name, name+" is required")
	}
	defer part.Close()

	content, err := io.ReadAll(part)
	if err != nil {
		return nil, goerror.NewInvalidFormat()
	}

	return &UploadedFile{
		Content:     content,
		FileName:    header.Filename,
		ContentType: partType(header.Header.Get("Content-Type"), content),
	}, nil
}

func partType(declared string, content []byte) string {
	declared = strings.TrimSpace(declared)
	if declared == "" || declared == "application/octet-stream" {
		declared = http.DetectContentType(content)
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		return mt
	}
	return declared
}
