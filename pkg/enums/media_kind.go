package enums

import "fmt"

// MediaKind defines where the media object is used.
type MediaKind string

const (
	MediaKindScanImage MediaKind = "scan_image"
	MediaKindScanVideo MediaKind = "scan_video"
	MediaKindScanAudio MediaKind = "scan_audio"
	MediaKindUser      MediaKind = "user"
	MediaKindOther     MediaKind = "other"
)

var validMediaKinds = []MediaKind{
	MediaKindScanImage,
	MediaKindScanVideo,
	MediaKindScanAudio,
	MediaKindUser,
	MediaKindOther,
}

// String returns the literal string for the kind.
func (m MediaKind) String() string {
	return string(m)
}

// IsValid reports whether the kind is known.
func (m MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsScanEvidence reports whether the kind attaches to checkpoint scans.
func (m MediaKind) IsScanEvidence() bool {
	return m == MediaKindScanImage || m == MediaKindScanVideo || m == MediaKindScanAudio
}

// ParseMediaKind converts raw input into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	for _, candidate := range validMediaKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}
