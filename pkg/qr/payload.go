// Package qr encodes and decodes the payload embedded in checkpoint QR
// codes. The payload is a type-tagged JSON object carried as a base64url
// string; unknown keys survive a decode/encode cycle so payload revisions
// stay forward compatible.
package qr

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/errors"
	"github.com/AVGC-lgtm/SmartPatrol/pkg/types"
)

// TypeCheckpoint is the type tag for checkpoint payloads.
const TypeCheckpoint = "checkpoint"

// Payload is the decoded content of a checkpoint QR code. Type and
// CheckpointID are required; everything else is advisory and the scan flow
// re-reads it from the database. QRCodeID, when present, identifies the
// printed label generation so stale prints can be refused.
type Payload struct {
	Type         string       `json:"type"`
	CheckpointID uuid.UUID    `json:"checkpoint_id"`
	QRCodeID     uuid.UUID    `json:"qr_code_id,omitempty"`
	Name         string       `json:"name,omitempty"`
	Coordinates  types.LatLng `json:"coordinates"`
	StationID    uuid.UUID    `json:"station_id,omitempty"`

	// Extra holds keys this revision does not understand.
	Extra map[string]json.RawMessage `json:"-"`
}

type payloadAlias struct {
	Type         string       `json:"type"`
	CheckpointID uuid.UUID    `json:"checkpoint_id"`
	QRCodeID     uuid.UUID    `json:"qr_code_id,omitempty"`
	Name         string       `json:"name,omitempty"`
	Coordinates  types.LatLng `json:"coordinates"`
	StationID    uuid.UUID    `json:"station_id,omitempty"`
}

var knownKeys = map[string]struct{}{
	"type":          {},
	"checkpoint_id": {},
	"qr_code_id":    {},
	"name":          {},
	"coordinates":   {},
	"station_id":    {},
}

// Encode renders the payload as a base64url string for QR generation.
func Encode(p Payload) (string, error) {
	if p.Type == "" {
		p.Type = TypeCheckpoint
	}

	fields := map[string]any{
		"type":          p.Type,
		"checkpoint_id": p.CheckpointID,
		"coordinates":   p.Coordinates,
	}
	if p.QRCodeID != uuid.Nil {
		fields["qr_code_id"] = p.QRCodeID
	}
	if p.Name != "" {
		fields["name"] = p.Name
	}
	if p.StationID != uuid.Nil {
		fields["station_id"] = p.StationID
	}
	for key, raw := range p.Extra {
		if _, known := knownKeys[key]; known {
			continue
		}
		fields[key] = raw
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "qr: marshal payload")
	}
	return base64.RawURLEncoding.EncodeToString(encoded), nil
}

// Decode parses a scanned QR string. Both the base64url form produced by
// Encode and bare JSON (older printed labels) are accepted. Any structural
// problem maps to MALFORMED_QR_CODE.
func Decode(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, errors.New(errors.CodeMalformedQR, "empty qr payload")
	}

	data := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		decoded, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			if decoded, err = base64.URLEncoding.DecodeString(raw); err != nil {
				return Payload{}, errors.Wrap(errors.CodeMalformedQR, err, "qr: base64 decode")
			}
		}
		data = decoded
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Payload{}, errors.Wrap(errors.CodeMalformedQR, err, "qr: payload is not a json object")
	}

	var alias payloadAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return Payload{}, errors.Wrap(errors.CodeMalformedQR, err, "qr: decode payload fields")
	}

	if alias.Type != TypeCheckpoint {
		return Payload{}, errors.New(errors.CodeMalformedQR, "qr: unexpected payload type").
			WithDetails(map[string]any{"type": alias.Type})
	}
	if alias.CheckpointID == uuid.Nil {
		return Payload{}, errors.New(errors.CodeMalformedQR, "qr: missing checkpoint id")
	}

	payload := Payload{
		Type:         alias.Type,
		CheckpointID: alias.CheckpointID,
		QRCodeID:     alias.QRCodeID,
		Name:         alias.Name,
		Coordinates:  alias.Coordinates,
		StationID:    alias.StationID,
	}
	for key, value := range fields {
		if _, known := knownKeys[key]; known {
			continue
		}
		if payload.Extra == nil {
			payload.Extra = map[string]json.RawMessage{}
		}
		payload.Extra[key] = value
	}

	return payload, nil
}
