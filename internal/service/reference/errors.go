package reference

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrAssessmentUnavailable = errors.New("assessment type is not offered for this sport")
	ErrNotPDF                = errors.New("only PDF files are accepted")
	ErrUploadTooLarge        = errors.New("upload exceeds the size limit")
)
