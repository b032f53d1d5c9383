package models

import (
	"fmt"
	"strings"
)

// MediaKind identifies which attachment slot of a lab a file belongs to.
type MediaKind string

const (
	MediaImage   MediaKind = "image"
	MediaVideo   MediaKind = "video"
	MediaPodcast MediaKind = "podcast"
)

var mediaKindDirs = map[MediaKind]string{
	MediaImage:   "lab_img",
	MediaVideo:   "lab_videos",
	MediaPodcast: "lab_podcasts",
}

// MediaKinds lists every supported kind in a stable order.
func MediaKinds() []MediaKind {
	return []MediaKind{MediaImage, MediaVideo, MediaPodcast}
}

// Dir returns the directory (and URL path segment) used for this kind.
func (k MediaKind) Dir() (string, bool) {
	dir, ok := mediaKindDirs[k]
	return dir, ok
}

func IsValidMediaKind(kind MediaKind) bool {
	_, ok := mediaKindDirs[kind]
	return ok
}

// ParseMediaKind normalizes raw input. "audio" is accepted as an alias of podcast.
func ParseMediaKind(raw string) (MediaKind, error) {
	value := MediaKind(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("media kind is required")
	}
	if value == "audio" {
		value = MediaPodcast
	}
	if !IsValidMediaKind(value) {
		return "", fmt.Errorf("invalid media kind: %s", value)
	}
	return value, nil
}
