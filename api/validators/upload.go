package validators

import (
	"errors"
	"mime/multipart"
	"net/http"

	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
)

const (
	// UploadField is the multipart field carrying the image.
	UploadField = "image"

	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
	maxFileNameRunes  = 255
)

// PhotoUpload is a parsed upload request. Close releases the file and any
// temp files the multipart reader spilled to disk.
type PhotoUpload struct {
	FileName string         `form:"image" validate:"required,max=255"`
	Size     int64          `form:"size" validate:"gt=0"`
	File     multipart.File `validate:"-"`

	form *multipart.Form
}

func (u *PhotoUpload) Close() {
	if u == nil {
		return
	}
	if u.File != nil {
		_ = u.File.Close()
	}
	if u.form != nil {
		_ = u.form.RemoveAll()
	}
}

// ParsePhotoUpload caps the body at maxBytes plus multipart framing and reads
// the image field. The caller must Close the result.
func ParsePhotoUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*PhotoUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file exceeds upload limit").
				WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}

	upload := &PhotoUpload{form: r.MultipartForm}
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		upload.Close()
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required").
			WithDetails(map[string]any{"field": UploadField})
	}
	upload.File = file
	upload.FileName = SanitizeString(header.Filename, maxFileNameRunes)
	upload.Size = header.Size

	if err := ValidateStruct(upload); err != nil {
		upload.Close()
		return nil, err
	}
	return upload, nil
}
