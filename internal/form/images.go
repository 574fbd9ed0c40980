package form

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"aircraft_logger/internal/models"

	"github.com/google/uuid"
)

var (
	ErrTooManyPictures = errors.New("too many pictures")
	ErrImageProcessing = errors.New("failed to process images")
	ErrNotImage        = errors.New("not an image")
)

const imageProcessingMessage = "Error processing images. Please try again."

// File is one selected image before it is converted to a Picture
type File struct {
	Name        string
	ContentType string // as declared by the client; sniffed when empty
	Open        func() (io.ReadCloser, error)
}

// BytesFile wraps an in-memory image as a File
func BytesFile(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ImageInput is the in-memory picture list of a form. Nothing here touches
// storage; the list is persisted with the record when the form is submitted.
type ImageInput struct {
	max      int
	pictures []models.Picture
	err      string
	newID    func() string
}

// NewImageInput starts from the given pictures. A non-positive max falls back to DefaultMaxPictures.
func NewImageInput(pictures []models.Picture, max int) *ImageInput {
	if max <= 0 {
		max = DefaultMaxPictures
	}
	return &ImageInput{
		max:      max,
		pictures: models.ClonePictures(pictures),
		newID:    uuid.NewString,
	}
}

func (in *ImageInput) Max() int { return in.max }

func (in *ImageInput) Len() int { return len(in.pictures) }

// Remaining is how many more pictures can be attached
func (in *ImageInput) Remaining() int { return in.max - len(in.pictures) }

// Pictures returns a copy of the current list
func (in *ImageInput) Pictures() []models.Picture {
	return models.ClonePictures(in.pictures)
}

// Message is the last user-facing error, or ""
func (in *ImageInput) Message() string { return in.err }

// Add converts and appends a selection of files. A selection that would exceed
// the cap, or that contains an unreadable file, is rejected as a whole.
func (in *ImageInput) Add(files []File) error {
	in.err = ""
	if len(files) == 0 {
		return nil
	}

	if len(in.pictures)+len(files) > in.max {
		in.err = fmt.Sprintf("Cannot upload more than %d images.", in.max)
		return fmt.Errorf("%w: %s", ErrTooManyPictures, in.err)
	}

	added := make([]models.Picture, 0, len(files))
	for _, file := range files {
		pic, err := in.toPicture(file)
		if err != nil {
			in.err = imageProcessingMessage
			return fmt.Errorf("%w: %s: %w", ErrImageProcessing, file.Name, err)
		}
		added = append(added, pic)
	}

	in.pictures = append(in.pictures, added...)
	return nil
}

// Replace swaps in an already-encoded picture list, e.g. one carried across a
// re-rendered form. Repeated ids keep their first picture and missing ids are
// generated. A list over the cap, or holding anything but an image data URL,
// is rejected and the current list kept.
func (in *ImageInput) Replace(pics []models.Picture) error {
	in.err = ""

	unique := make([]models.Picture, 0, len(pics))
	seen := make(map[string]bool, len(pics))
	for _, p := range pics {
		if p.ID == "" {
			p.ID = in.newID()
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		unique = append(unique, p)
	}

	if len(unique) > in.max {
		in.err = fmt.Sprintf("Cannot upload more than %d images.", in.max)
		return fmt.Errorf("%w: %s", ErrTooManyPictures, in.err)
	}
	for _, p := range unique {
		if err := CheckPicture(p); err != nil {
			in.err = imageProcessingMessage
			return fmt.Errorf("%w: %s: %w", ErrImageProcessing, p.ID, err)
		}
	}

	in.pictures = unique
	return nil
}

// Remove drops one picture by id; unknown ids are ignored
func (in *ImageInput) Remove(id string) {
	kept := make([]models.Picture, 0, len(in.pictures))
	for _, p := range in.pictures {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	in.pictures = kept
	in.err = ""
}

// Keep drops every picture whose id is not listed
func (in *ImageInput) Keep(ids []string) {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	for _, p := range in.Pictures() {
		if !keep[p.ID] {
			in.Remove(p.ID)
		}
	}
}

func (in *ImageInput) toPicture(file File) (models.Picture, error) {
	if file.Open == nil {
		return models.Picture{}, errors.New("no content")
	}
	rc, err := file.Open()
	if err != nil {
		return models.Picture{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return models.Picture{}, err
	}

	contentType := file.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !models.IsImageType(contentType) {
		return models.Picture{}, fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}

	return models.Picture{
		ID:      in.newID(),
		Name:    file.Name,
		DataURL: models.EncodeDataURL(contentType, data),
	}, nil
}

// CheckPicture reports whether p holds a decodable data URL of an image type
func CheckPicture(p models.Picture) error {
	mimeType, _, err := p.Decode()
	if err != nil {
		return err
	}
	if !models.IsImageType(mimeType) {
		return fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}
	return nil
}
