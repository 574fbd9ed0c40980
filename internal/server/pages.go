package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"aircraft_logger/internal/form"
	"aircraft_logger/internal/models"
	"aircraft_logger/internal/records"

	"github.com/gin-gonic/gin"
)

const (
	msgLoadFailed   = "Failed to load records. Please try again."
	msgAddFailed    = "Failed to add record. Please try again."
	msgUpdateFailed = "Failed to update record. Please try again."
	msgDeleteFailed = "Failed to delete record. Please try again."
)

const maxUploadMemory = 32 << 20

// page is the data handed to every template
type page struct {
	Title    string
	Error    string
	Tailwind string
	Year     int

	Search  string
	Records []*models.Record

	Form   *form.Form
	Action string
	Models []models.AircraftModel

	Record *models.Record
}

func (s *Server) page(title string) page {
	return page{
		Title:    title,
		Tailwind: s.tailwind,
		Year:     time.Now().Year(),
		Models:   models.AircraftModels,
	}
}

func (s *Server) index(c *gin.Context) {
	s.renderIndex(c, http.StatusOK, "")
}

// renderIndex renders the record list with an optional banner above it
func (s *Server) renderIndex(c *gin.Context, status int, banner string) {
	p := s.page("Records")
	p.Search = c.Query("q")
	p.Error = banner

	recs, err := s.records.List(c.Request.Context(), p.Search)
	if err != nil {
		if p.Error == "" {
			p.Error = msgLoadFailed
		}
		c.HTML(http.StatusInternalServerError, "index", p)
		return
	}
	p.Records = recs
	c.HTML(status, "index", p)
}

func (s *Server) newRecord(c *gin.Context) {
	s.renderForm(c, http.StatusOK, form.New(s.maxPictures), "")
}

func (s *Server) createRecord(c *gin.Context) {
	f := form.New(s.maxPictures)
	if !s.readForm(c, f) {
		return
	}

	fields, err := f.Submit()
	if err != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, f, "")
		return
	}

	_, err = s.records.Create(c.Request.Context(), fields)
	f.Done(err)
	if err != nil {
		s.renderForm(c, http.StatusInternalServerError, f, msgAddFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) showRecord(c *gin.Context) {
	rec, ok := s.loadRecord(c)
	if !ok {
		return
	}
	p := s.page(rec.ACNumber)
	p.Record = rec
	c.HTML(http.StatusOK, "detail", p)
}

func (s *Server) editRecord(c *gin.Context) {
	rec, ok := s.loadRecord(c)
	if !ok {
		return
	}
	s.renderForm(c, http.StatusOK, form.Edit(rec, s.maxPictures), "")
}

func (s *Server) updateRecord(c *gin.Context) {
	rec, ok := s.loadRecord(c)
	if !ok {
		return
	}

	f := form.Edit(rec, s.maxPictures)
	if !s.readForm(c, f) {
		return
	}

	fields, err := f.Submit()
	if err != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, f, "")
		return
	}

	_, err = s.records.Update(c.Request.Context(), rec.ID, fields)
	f.Done(err)
	if err != nil {
		s.renderForm(c, http.StatusInternalServerError, f, msgUpdateFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) deleteRecord(c *gin.Context) {
	if err := s.records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.renderIndex(c, http.StatusInternalServerError, msgDeleteFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// picture serves one stored picture as its raw image bytes
func (s *Server) picture(c *gin.Context) {
	rec, ok := s.loadRecord(c)
	if !ok {
		return
	}

	pic, found := models.FindPicture(rec.Pictures, c.Param("pictureID"))
	if !found {
		s.renderError(c, http.StatusNotFound, "Picture not found")
		return
	}

	mimeType, data, err := pic.Decode()
	if err == nil && !models.IsImageType(mimeType) {
		err = fmt.Errorf("%w: %s", form.ErrNotImage, mimeType)
	}
	if err != nil {
		slog.Warn("Stored picture is not a valid image", "record", rec.ID, "picture", pic.ID, "error", err)
		s.renderError(c, http.StatusInternalServerError, "Picture could not be read")
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	c.Data(http.StatusOK, mimeType, data)
}

func (s *Server) loadRecord(c *gin.Context) (*models.Record, bool) {
	rec, err := s.records.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, records.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, "Record not found")
		return nil, false
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, msgLoadFailed)
		return nil, false
	}
	return rec, true
}

// readForm copies a posted form into f. Pictures already attached travel as
// hidden JSON inputs; new files are added after removals. Returns false when
// a response has already been written.
func (s *Server) readForm(c *gin.Context, f *form.Form) bool {
	req := c.Request
	if err := req.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		slog.Warn("Failed to parse record form", "error", err)
		s.renderError(c, http.StatusBadRequest, "The submitted form could not be read")
		return false
	}

	values := make(map[form.Field]string, len(form.Fields))
	for _, field := range form.Fields {
		if vs, ok := req.PostForm[string(field)]; ok && len(vs) > 0 {
			values[field] = vs[0]
		}
	}
	if err := f.SetAll(values); err != nil {
		s.renderError(c, http.StatusBadRequest, "The submitted form could not be read")
		return false
	}

	kept := make([]models.Picture, 0, len(req.PostForm["picture"]))
	for _, raw := range req.PostForm["picture"] {
		var pic models.Picture
		if err := json.Unmarshal([]byte(raw), &pic); err != nil {
			slog.Warn("Dropping malformed picture field", "error", err)
			continue
		}
		kept = append(kept, pic)
	}

	images := f.Images()
	if err := images.Replace(kept); err != nil {
		slog.Info("Carried pictures rejected", "pictures", len(kept), "error", err)
		s.renderForm(c, http.StatusUnprocessableEntity, f, "")
		return false
	}
	for _, id := range req.PostForm["removePicture"] {
		images.Remove(id)
	}

	var files []form.File
	if req.MultipartForm != nil {
		for _, fh := range req.MultipartForm.File["pictures"] {
			if fh.Filename == "" {
				continue
			}
			fh := fh
			files = append(files, form.File{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Open:        func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}
	if err := images.Add(files); err != nil {
		slog.Info("Picture selection rejected", "files", len(files), "error", err)
		s.renderForm(c, http.StatusUnprocessableEntity, f, "")
		return false
	}
	return true
}

func (s *Server) renderForm(c *gin.Context, status int, f *form.Form, banner string) {
	title, action := "Add New Record", "/records"
	if f.IsEdit() {
		title, action = "Edit Record", "/records/"+f.Editing().ID
	}
	p := s.page(title)
	p.Form = f
	p.Action = action
	p.Error = banner
	c.HTML(status, "form", p)
}

func (s *Server) renderError(c *gin.Context, status int, title string) {
	c.HTML(status, "error", s.page(title))
}
