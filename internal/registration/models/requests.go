package models

import (
	"net/url"
	"strings"
	"unicode/utf8"

	dErrors "misiones/pkg/domain-errors"
	"misiones/pkg/email"
)

const (
	maxNameLength      = 200
	minDocumentLength  = 4
	maxDocumentLength  = 32
	maxAttributes      = 32
	maxAttributeKey    = 64
	maxAttributeValue  = 1024
	maxDocumentURLSize = 2048
	maxReasonLength    = 500
)

// RegisterRequest is the registrant payload. The UI validates it too; the
// service validates again.
type RegisterRequest struct {
	FullName       string            `json:"full_name"`
	Email          string            `json:"email"`
	DocumentNumber string            `json:"document_number"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	r.FullName = strings.Join(strings.Fields(r.FullName), " ")
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.DocumentNumber = NormalizeDocument(r.DocumentNumber)
	if len(r.Attributes) > 0 {
		cleaned := make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			cleaned[k] = strings.TrimSpace(v)
		}
		r.Attributes = cleaned
	}
}

func (r *RegisterRequest) Validate() error {
	if r.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "full_name is required")
	}
	if utf8.RuneCountInString(r.FullName) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "full_name must be 200 characters or less")
	}
	if _, ok := email.Normalize(r.Email); !ok {
		return dErrors.New(dErrors.CodeValidation, "email must be a valid address")
	}
	if len(r.DocumentNumber) < minDocumentLength || len(r.DocumentNumber) > maxDocumentLength {
		return dErrors.New(dErrors.CodeValidation, "document_number must be between 4 and 32 characters")
	}
	if len(r.Attributes) > maxAttributes {
		return dErrors.New(dErrors.CodeValidation, "too many attributes")
	}
	for k, v := range r.Attributes {
		if len(k) > maxAttributeKey {
			return dErrors.New(dErrors.CodeValidation, "attribute names must be 64 characters or less")
		}
		if len(v) > maxAttributeValue {
			return dErrors.New(dErrors.CodeValidation, "attribute values must be 1024 characters or less")
		}
	}
	return nil
}

// Registrant converts a normalized, validated request.
func (r *RegisterRequest) Registrant() Registrant {
	return Registrant{
		FullName:       r.FullName,
		Email:          r.Email,
		DocumentNumber: r.DocumentNumber,
		Attributes:     r.Attributes,
	}
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (r *CancelRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *CancelRequest) Validate() error {
	if utf8.RuneCountInString(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason must be 500 characters or less")
	}
	return nil
}

type AttachDocumentRequest struct {
	URL string `json:"url"`
}

func (r *AttachDocumentRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
}

// Validate accepts absolute http(s) URLs only.
func (r *AttachDocumentRequest) Validate() error {
	if r.URL == "" {
		return dErrors.New(dErrors.CodeValidation, "url is required")
	}
	if len(r.URL) > maxDocumentURLSize {
		return dErrors.New(dErrors.CodeValidation, "url is too long")
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return dErrors.New(dErrors.CodeValidation, "url must be an absolute http or https URL")
	}
	return nil
}
