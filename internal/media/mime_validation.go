package media

import (
	"fmt"
	"mime"
	"sort"
	"strings"

	"github.com/AVGC-lgtm/SmartPatrol/pkg/enums"
)

// mimeGroup names a family of content types that one or more media kinds
// accept.
type mimeGroup string

const (
	mimeGroupImages mimeGroup = "images"
	mimeGroupVideos mimeGroup = "videos"
	mimeGroupAudios mimeGroup = "audios"
)

var mimeTypesByGroup = map[mimeGroup][]string{
	mimeGroupImages: {
		"image/jpeg",
		"image/png",
		"image/webp",
		"image/heic",
		"image/heif",
	},
	mimeGroupVideos: {
		"video/mp4",
		"video/quicktime",
		"video/webm",
	},
	mimeGroupAudios: {
		"audio/mpeg",
		"audio/mp4",
		"audio/aac",
		"audio/ogg",
		"audio/wav",
	},
}

var groupsByKind = map[enums.MediaKind][]mimeGroup{
	enums.MediaKindScanImage: {mimeGroupImages},
	enums.MediaKindScanVideo: {mimeGroupVideos},
	enums.MediaKindScanAudio: {mimeGroupAudios},
	enums.MediaKindUser:      {mimeGroupImages},
	enums.MediaKindOther:     {mimeGroupImages, mimeGroupVideos, mimeGroupAudios},
}

// mimeTypesByKind flattens groupsByKind into a lookup set per kind.
var mimeTypesByKind = buildMimeTypesByKind()

func buildMimeTypesByKind() map[enums.MediaKind]map[string]struct{} {
	out := make(map[enums.MediaKind]map[string]struct{}, len(groupsByKind))
	for kind, groups := range groupsByKind {
		allowed := make(map[string]struct{})
		for _, group := range groups {
			for _, mt := range mimeTypesByGroup[group] {
				allowed[mt] = struct{}{}
			}
		}
		out[kind] = allowed
	}
	return out
}

// sniffMimeType normalizes a client-declared content type. Parameters such
// as charset are dropped.
func sniffMimeType(contentType string) (string, error) {
	trimmed := strings.TrimSpace(contentType)
	if trimmed == "" {
		return "", fmt.Errorf("content type is required")
	}
	parsed, _, err := mime.ParseMediaType(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse content type %q: %w", trimmed, err)
	}
	return strings.ToLower(parsed), nil
}

func isAllowedMime(kind enums.MediaKind, mimeType string) bool {
	allowed, ok := mimeTypesByKind[kind]
	if !ok {
		return false
	}
	_, ok = allowed[mimeType]
	return ok
}

// allowedMimeDescription renders the accepted content types for a kind in a
// stable order, for validation error messages.
func allowedMimeDescription(kind enums.MediaKind) string {
	allowed, ok := mimeTypesByKind[kind]
	if !ok || len(allowed) == 0 {
		return ""
	}
	types := make([]string, 0, len(allowed))
	for mt := range allowed {
		types = append(types, mt)
	}
	sort.Strings(types)
	return humanReadableList(types)
}

func humanReadableList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " or " + items[len(items)-1]
	}
}
