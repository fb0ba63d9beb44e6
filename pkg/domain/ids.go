// Package domain holds the typed identifiers and enumerations shared across
// layers. Typed UUIDs prevent cross-type assignment at compile time: an
// ActorID can never be passed where an EntityID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "verdeck/pkg/domain-errors"
)

// EntityID identifies one entity under verification.
type EntityID uuid.UUID

// ActorID identifies a principal acting on an entity: an owner or an
// administrator.
type ActorID uuid.UUID

// DocumentID identifies one uploaded document record.
type DocumentID uuid.UUID

func NewEntityID() EntityID     { return EntityID(uuid.New()) }
func NewActorID() ActorID       { return ActorID(uuid.New()) }
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

func (id EntityID) String() string   { return uuid.UUID(id).String() }
func (id ActorID) String() string    { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id EntityID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText implementations keep the JSON form the canonical UUID string.
func (id EntityID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ActorID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EntityID) UnmarshalText(text []byte) error {
	parsed, err := parseUUID(string(text))
	if err != nil {
		return err
	}
	*id = EntityID(parsed)
	return nil
}

func (id *ActorID) UnmarshalText(text []byte) error {
	parsed, err := parseUUID(string(text))
	if err != nil {
		return err
	}
	*id = ActorID(parsed)
	return nil
}

func (id *DocumentID) UnmarshalText(text []byte) error {
	parsed, err := parseUUID(string(text))
	if err != nil {
		return err
	}
	*id = DocumentID(parsed)
	return nil
}

// ParseEntityID parses an entity ID at a trust boundary.
func ParseEntityID(raw string) (EntityID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(parsed), nil
}

// ParseActorID parses an actor ID at a trust boundary.
func ParseActorID(raw string) (ActorID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return ActorID{}, err
	}
	return ActorID(parsed), nil
}

// ParseDocumentID parses a document ID at a trust boundary.
func ParseDocumentID(raw string) (DocumentID, error) {
	parsed, err := parseUUID(raw)
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(parsed), nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id cannot be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id cannot be the nil UUID")
	}
	return parsed, nil
}
