package ad

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"
)

type Status string

const (
	StatusIdle            Status = "idle"
	StatusGeneratingImage Status = "generating_image"
	StatusGeneratingCopy  Status = "generating_copy"
	StatusSuccess         Status = "success"
	StatusError           Status = "error"
)

// Busy reports whether a generation is in flight.
func (s Status) Busy() bool {
	return s == StatusGeneratingImage || s == StatusGeneratingCopy
}

type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

var aspectAliases = map[string]AspectRatio{
	"1:1":       AspectSquare,
	"square":    AspectSquare,
	"16:9":      AspectLandscape,
	"landscape": AspectLandscape,
	"9:16":      AspectPortrait,
	"portrait":  AspectPortrait,
}

// ParseAspectRatio accepts the three ratios and their names. Empty input means square.
func ParseAspectRatio(value string) (AspectRatio, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return AspectSquare, nil
	}
	if ratio, ok := aspectAliases[value]; ok {
		return ratio, nil
	}
	return "", fmt.Errorf("unsupported aspect ratio %q", value)
}

func (a AspectRatio) Valid() bool {
	return a == AspectSquare || a == AspectLandscape || a == AspectPortrait
}

type Copy struct {
	Headline     string `json:"headline" validate:"required"`
	Tagline      string `json:"tagline" validate:"required"`
	Body         string `json:"body" validate:"required"`
	CallToAction string `json:"callToAction" validate:"required"`
}

type Result struct {
	ID          string      `json:"id"`
	Prompt      string      `json:"prompt"`
	ImageURL    string      `json:"imageUrl"`
	Copy        Copy        `json:"copy"`
	Timestamp   time.Time   `json:"timestamp"`
	AspectRatio AspectRatio `json:"aspectRatio"`
}

// MimeType returns the declared type of the embedded image.
func (r Result) MimeType() string {
	meta, _, ok := strings.Cut(strings.TrimPrefix(r.ImageURL, "data:"), ",")
	if !ok {
		return ""
	}
	mimeType, _, _ := strings.Cut(meta, ";")
	return strings.TrimSpace(mimeType)
}

// ImageBytes decodes the data URI payload.
func (r Result) ImageBytes() ([]byte, error) {
	if !strings.HasPrefix(r.ImageURL, "data:") {
		return nil, errors.New("image url is not a data uri")
	}
	_, payload, ok := strings.Cut(r.ImageURL, ",")
	if !ok {
		return nil, errors.New("invalid data uri")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

// Filename is the download name of the image asset.
func (r Result) Filename() string {
	ext := ".png"
	switch r.MimeType() {
	case "image/png", "":
	case "image/jpeg":
		ext = ".jpg"
	default:
		if exts, _ := mime.ExtensionsByType(r.MimeType()); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return "samayan-ad-" + r.ID + ext
}

// DataURI formats inline image bytes the way results carry them.
func DataURI(mimeType, base64Data string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}
