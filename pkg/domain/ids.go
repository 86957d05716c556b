// Package domain holds typed identifiers shared across modules.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "misiones/pkg/domain-errors"
)

// Typed ids keep site and registration identifiers from being mixed up.
type (
	SiteID         uuid.UUID
	RegistrationID uuid.UUID
	NoticeID       uuid.UUID
)

func NewSiteID() SiteID                 { return SiteID(uuid.New()) }
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewNoticeID() NoticeID             { return NoticeID(uuid.New()) }

func (i SiteID) String() string         { return uuid.UUID(i).String() }
func (i RegistrationID) String() string { return uuid.UUID(i).String() }
func (i NoticeID) String() string       { return uuid.UUID(i).String() }

func (i SiteID) IsNil() bool         { return uuid.UUID(i) == uuid.Nil }
func (i RegistrationID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i NoticeID) IsNil() bool       { return uuid.UUID(i) == uuid.Nil }

func (i SiteID) MarshalText() ([]byte, error)         { return []byte(i.String()), nil }
func (i RegistrationID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }
func (i NoticeID) MarshalText() ([]byte, error)       { return []byte(i.String()), nil }

func (i *SiteID) UnmarshalText(b []byte) error {
	v, err := ParseSiteID(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

func (i *RegistrationID) UnmarshalText(b []byte) error {
	v, err := ParseRegistrationID(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// ParseSiteID parses a non-nil UUID at a trust boundary.
func ParseSiteID(s string) (SiteID, error) {
	u, err := parseUUID(s, "site id")
	return SiteID(u), err
}

// ParseRegistrationID parses a non-nil UUID at a trust boundary.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration id")
	return RegistrationID(u), err
}

// ParseNoticeID parses a non-nil UUID at a trust boundary.
func ParseNoticeID(s string) (NoticeID, error) {
	u, err := parseUUID(s, "notice id")
	return NoticeID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
