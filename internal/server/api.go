package server

import (
	"bytes"
	"errors"
	"net/http"

	"aircraft_logger/internal/export"
	"aircraft_logger/internal/form"
	"aircraft_logger/internal/models"
	"aircraft_logger/internal/records"

	"github.com/gin-gonic/gin"
)

// fieldPictures is the error key used for picture problems in API responses
const fieldPictures = "pictures"

func (s *Server) apiList(c *gin.Context) {
	recs, err := s.records.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgLoadFailed})
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) apiGet(c *gin.Context) {
	rec, err := s.records.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, records.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgLoadFailed})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) apiCreate(c *gin.Context) {
	var body models.RecordFields
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields, ok := s.submitJSON(c, form.New(s.maxPictures), body)
	if !ok {
		return
	}

	rec, err := s.records.Create(c.Request.Context(), fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgAddFailed})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) apiUpdate(c *gin.Context) {
	var body models.RecordFields
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	existing, err := s.records.Get(ctx, c.Param("id"))
	if errors.Is(err, records.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgLoadFailed})
		return
	}

	fields, ok := s.submitJSON(c, form.Edit(existing, s.maxPictures), body)
	if !ok {
		return
	}

	rec, err := s.records.Update(ctx, existing.ID, fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgUpdateFailed})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) apiDelete(c *gin.Context) {
	if err := s.records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgDeleteFailed})
		return
	}
	c.Status(http.StatusNoContent)
}

// submitJSON runs a JSON body through the same form checks as the HTML pages.
// On failure it writes a 422 with one message per offending field.
func (s *Server) submitJSON(c *gin.Context, f *form.Form, body models.RecordFields) (models.RecordFields, bool) {
	values := map[form.Field]string{
		form.FieldAircraftModel:  string(body.AircraftModel),
		form.FieldACNumber:       body.ACNumber,
		form.FieldMONumber:       body.MONumber,
		form.FieldMonumentNumber: body.MonumentNumber,
		form.FieldStartDate:      body.StartDate,
		form.FieldFinishDate:     body.FinishDate,
		form.FieldIssues:         body.Issues,
		form.FieldNotes:          body.Notes,
	}
	if err := f.SetAll(values); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.RecordFields{}, false
	}

	if err := f.Images().Replace(body.Pictures); err != nil {
		unprocessable(c, map[string]string{fieldPictures: f.Images().Message()})
		return models.RecordFields{}, false
	}

	fields, err := f.Submit()
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		msgs := make(map[string]string, len(verr.Fields))
		for k, v := range verr.Fields {
			msgs[string(k)] = v
		}
		unprocessable(c, msgs)
		return models.RecordFields{}, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.RecordFields{}, false
	}
	return fields, true
}

func unprocessable(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "validation failed",
		"fields": fields,
	})
}

// exportXLSX downloads the records matching ?q= as a spreadsheet
func (s *Server) exportXLSX(c *gin.Context) {
	recs, err := s.records.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.renderIndex(c, http.StatusInternalServerError, msgLoadFailed)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, recs); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Export failed. Please try again.")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="aircraft-records.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
