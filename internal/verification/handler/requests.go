package handler

import (
	"encoding/base64"

	"verdeck/internal/verification/models"
	dErrors "verdeck/pkg/domain-errors"
)

type createEntityRequest struct {
	Kind    string         `json:"kind"`
	Profile models.Profile `json:"profile"`
}

type updateProfileRequest struct {
	Profile models.Profile `json:"profile"`
}

type confirmEmailRequest struct {
	Token string `json:"token"`
}

type uploadDocumentRequest struct {
	DocumentType  string `json:"document_type"`
	ContentBase64 string `json:"content_base64"`
}

// DecodeContent decodes the base64 payload. Size and emptiness are the
// engine's concern; this only guards the encoding.
func (r uploadDocumentRequest) DecodeContent() ([]byte, error) {
	if r.ContentBase64 == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "content_base64 is required")
	}
	content, err := base64.StdEncoding.DecodeString(r.ContentBase64)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "content_base64 is not valid base64")
	}
	return content, nil
}

type decisionRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes"`
}
