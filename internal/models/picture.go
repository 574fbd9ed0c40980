package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Picture is an image attachment stored inline on its record
type Picture struct {
	ID      string `json:"id"`
	DataURL string `json:"dataUrl"` // data:<mime>;base64,<payload>
	Name    string `json:"name"`    // original filename
}

var ErrInvalidDataURL = errors.New("invalid data url")

// EncodeDataURL encodes raw bytes as a base64 data URL
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its MIME type and payload
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return mimeType, data, nil
}

// IsImageType reports whether a MIME type is image/*
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// Decode returns the picture's MIME type and raw bytes
func (p Picture) Decode() (string, []byte, error) {
	return DecodeDataURL(p.DataURL)
}

// ClonePictures copies a picture list so callers never share a backing array
func ClonePictures(pics []Picture) []Picture {
	if pics == nil {
		return []Picture{}
	}
	out := make([]Picture, len(pics))
	copy(out, pics)
	return out
}

// FindPicture returns the picture with the given id
func FindPicture(pics []Picture, id string) (Picture, bool) {
	for _, p := range pics {
		if p.ID == id {
			return p, true
		}
	}
	return Picture{}, false
}
