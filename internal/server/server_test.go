package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aircraft_logger/internal/database"
	"aircraft_logger/internal/models"
	"aircraft_logger/internal/records"
	"aircraft_logger/internal/shell"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db      *database.DB
	service *records.Service
	server  *Server
}

func setupTestServer(t *testing.T, opts ...func(*Options)) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test_server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	n := 0
	svc := records.NewService(db.Records(),
		records.WithClock(func() time.Time {
			n++
			return time.Date(2024, 3, 1, 12, 0, n, 0, time.UTC)
		}),
	)

	o := Options{Records: svc, MaxPictures: 5}
	for _, fn := range opts {
		fn(&o)
	}

	srv, err := New(o)
	require.NoError(t, err)

	return &testEnv{db: db, service: svc, server: srv}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) doJSON(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func validValues() url.Values {
	return url.Values{
		"aircraftModel":  {"Global"},
		"acNumber":       {"N101"},
		"monumentNumber": {"M-5"},
		"startDate":      {"2024-01-01"},
		"finishDate":     {"2024-01-10"},
		"issues":         {"none"},
	}
}

func multipartRequest(t *testing.T, path string, values url.Values, files map[string][]byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("pictures", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func listRecords(t *testing.T, e *testEnv) []*models.Record {
	t.Helper()
	recs, err := e.service.List(context.Background(), "")
	require.NoError(t, err)
	return recs
}

func TestIndex_Empty(t *testing.T) {
	e := setupTestServer(t)

	w := e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No Records Found")
	assert.Contains(t, w.Body.String(), "Get started by adding a new record.")

	w = e.do(httptest.NewRequest(http.MethodGet, "/?q=zzz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Try adjusting your search terms.")
}

func TestNewRecordPage(t *testing.T) {
	e := setupTestServer(t)

	w := e.do(httptest.NewRequest(http.MethodGet, "/records/new", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Add New Record")
	assert.Contains(t, body, "Pictures (Max 5)")
	assert.Contains(t, body, `<option value="Global" selected>`)
}

func TestCreateRecord_Form(t *testing.T) {
	e := setupTestServer(t)

	w := e.postForm("/records", validValues())
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	recs := listRecords(t, e)
	require.Len(t, recs, 1)
	assert.Equal(t, "N101", recs[0].ACNumber)
	assert.Equal(t, models.ModelGlobal, recs[0].AircraftModel)
	assert.Empty(t, recs[0].Pictures)

	w = e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "N101")
	assert.Contains(t, w.Body.String(), "M-5")
}

func TestCreateRecord_ValidationErrors(t *testing.T) {
	e := setupTestServer(t)

	values := validValues()
	values.Set("acNumber", "")
	values.Set("finishDate", "2023-12-31")

	w := e.postForm("/records", values)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "A/C# is required.")
	assert.Contains(t, body, "Finish Date cannot be before Start Date.")
	// entered values survive the re-render
	assert.Contains(t, body, `value="M-5"`)

	assert.Empty(t, listRecords(t, e))
}

func TestCreateRecord_WithPicture(t *testing.T) {
	e := setupTestServer(t)

	req := multipartRequest(t, "/records", validValues(), map[string][]byte{"wing.png": pngBytes})
	w := e.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)

	recs := listRecords(t, e)
	require.Len(t, recs, 1)
	require.Len(t, recs[0].Pictures, 1)
	pic := recs[0].Pictures[0]
	assert.Equal(t, "wing.png", pic.Name)
	assert.True(t, strings.HasPrefix(pic.DataURL, "data:image/png;base64,"))

	w = e.do(httptest.NewRequest(http.MethodGet, "/records/"+recs[0].ID+"/pictures/"+pic.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "sandbox")
	assert.Equal(t, pngBytes, w.Body.Bytes())

	w = e.do(httptest.NewRequest(http.MethodGet, "/records/"+recs[0].ID+"/pictures/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRecord_TooManyPictures(t *testing.T) {
	e := setupTestServer(t)

	files := map[string][]byte{}
	for i := 0; i < 6; i++ {
		files[fmt.Sprintf("img%d.png", i)] = pngBytes
	}

	w := e.do(multipartRequest(t, "/records", validValues(), files))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot upload more than 5 images.")
	assert.Empty(t, listRecords(t, e))
}

func TestCreateRecord_RejectsNonImageUpload(t *testing.T) {
	e := setupTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range validValues() {
		require.NoError(t, mw.WriteField(k, vs[0]))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="pictures"; filename="wing.png"`)
	h.Set("Content-Type", "text/html")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("<script>alert(document.cookie)</script>"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/records", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := e.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Error processing images. Please try again.")
	assert.Empty(t, listRecords(t, e))

	// undeclared content is sniffed
	w = e.do(multipartRequest(t, "/records", validValues(), map[string][]byte{
		"notes.png": []byte("<html><body>hi</body></html>"),
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, listRecords(t, e))
}

func TestCreateRecord_RejectsMalformedCarriedPicture(t *testing.T) {
	e := setupTestServer(t)

	for _, dataURL := range []string{
		"not-a-data-url",
		models.EncodeDataURL("text/html", []byte("<script>alert(1)</script>")),
	} {
		pic, err := json.Marshal(models.Picture{ID: "p9", Name: "p9.png", DataURL: dataURL})
		require.NoError(t, err)

		values := validValues()
		values.Set("picture", string(pic))

		w := e.postForm("/records", values)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, dataURL)
		assert.Contains(t, w.Body.String(), "Error processing images. Please try again.")
		// entered values survive the re-render
		assert.Contains(t, w.Body.String(), `value="N101"`)
	}
	assert.Empty(t, listRecords(t, e))
}

func TestPicture_RefusesStoredNonImage(t *testing.T) {
	e := setupTestServer(t)

	rec, err := e.service.Create(context.Background(), models.RecordFields{
		AircraftModel:  models.ModelGlobal,
		ACNumber:       "N101",
		MonumentNumber: "M-5",
		StartDate:      "2024-01-01",
		FinishDate:     "2024-01-10",
		Pictures: []models.Picture{
			{ID: "p1", Name: "x.html", DataURL: models.EncodeDataURL("text/html", []byte("<script>alert(1)</script>"))},
		},
	})
	require.NoError(t, err)

	w := e.do(httptest.NewRequest(http.MethodGet, "/records/"+rec.ID+"/pictures/p1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "<script>alert(1)</script>")
}

func TestUpdateRecord_Form(t *testing.T) {
	e := setupTestServer(t)

	rec, err := e.service.Create(context.Background(), models.RecordFields{
		AircraftModel:  models.ModelGlobal,
		ACNumber:       "N101",
		MonumentNumber: "M-5",
		StartDate:      "2024-01-01",
		FinishDate:     "2024-01-10",
		Pictures:       []models.Picture{{ID: "p1", Name: "a.png", DataURL: "data:image/png;base64,iVBORw=="}},
	})
	require.NoError(t, err)

	w := e.do(httptest.NewRequest(http.MethodGet, "/records/"+rec.ID+"/edit", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Save Changes")

	pic, err := json.Marshal(rec.Pictures[0])
	require.NoError(t, err)

	values := validValues()
	values.Set("aircraftModel", "Challenger")
	values.Set("notes", "done")
	values.Set("picture", string(pic))

	w = e.postForm("/records/"+rec.ID, values)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	got, err := e.service.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ModelChallenger, got.AircraftModel)
	assert.Equal(t, "done", got.Notes)
	assert.Equal(t, rec.Pictures, got.Pictures)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	// ticking removePicture drops the picture
	values.Set("removePicture", "p1")
	w = e.postForm("/records/"+rec.ID, values)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	got, err = e.service.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Pictures)
}

func TestUpdateRecord_RepeatedCarriedPicture(t *testing.T) {
	e := setupTestServer(t)

	p1 := models.Picture{ID: "p1", Name: "a.png", DataURL: "data:image/png;base64,iVBORw=="}
	p2 := models.Picture{ID: "p2", Name: "b.png", DataURL: "data:image/png;base64,iVBORw=="}
	rec, err := e.service.Create(context.Background(), models.RecordFields{
		AircraftModel:  models.ModelGlobal,
		ACNumber:       "N101",
		MonumentNumber: "M-5",
		StartDate:      "2024-01-01",
		FinishDate:     "2024-01-10",
		Pictures:       []models.Picture{p1, p2},
	})
	require.NoError(t, err)

	raw1, err := json.Marshal(p1)
	require.NoError(t, err)
	raw2, err := json.Marshal(p2)
	require.NoError(t, err)

	values := validValues()
	values["picture"] = []string{string(raw1), string(raw1), string(raw2)}

	w := e.postForm("/records/"+rec.ID, values)
	require.Equal(t, http.StatusSeeOther, w.Code)

	got, err := e.service.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Picture{p1, p2}, got.Pictures)

	values.Set("removePicture", "p1")
	w = e.postForm("/records/"+rec.ID, values)
	require.Equal(t, http.StatusSeeOther, w.Code)

	got, err = e.service.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Picture{p2}, got.Pictures)
}

// An edit that puts the finish date before the start date is rejected and the
// stored record is left as it was.
func TestUpdateRecord_FinishBeforeStart(t *testing.T) {
	e := setupTestServer(t)

	w := e.doJSON(http.MethodPost, "/api/records", models.RecordFields{
		AircraftModel:  models.ModelGlobal,
		ACNumber:       "N101",
		MonumentNumber: "M-5",
		StartDate:      "2024-01-01",
		FinishDate:     "2024-01-10",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	values := validValues()
	values.Set("finishDate", "2023-12-31")
	w = e.postForm("/records/"+created.ID, values)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Finish Date cannot be before Start Date.")

	w = e.doJSON(http.MethodPut, "/api/records/"+created.ID, models.RecordFields{
		AircraftModel:  models.ModelGlobal,
		ACNumber:       "N101",
		MonumentNumber: "M-5",
		StartDate:      "2024-01-01",
		FinishDate:     "2023-12-31",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var verr struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verr))
	assert.Equal(t, map[string]string{"finishDate": "Finish Date cannot be before Start Date."}, verr.Fields)

	got, err := e.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", got.FinishDate)
}

func TestShowRecord(t *testing.T) {
	e := setupTestServer(t)

	rec, err := e.service.Create(context.Background(), models.RecordFields{
		AircraftModel:  models.ModelChallenger,
		ACNumber:       "C-300",
		MonumentNumber: "M-9",
		StartDate:      "2024-02-01",
		FinishDate:     "2024-02-02",
	})
	require.NoError(t, err)

	w := e.do(httptest.NewRequest(http.MethodGet, "/records/"+rec.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "C-300")
	assert.Contains(t, body, "N/A")
	assert.Contains(t, body, "No issues reported.")
	assert.Contains(t, body, "No pictures attached.")

	w = e.do(httptest.NewRequest(http.MethodGet, "/records/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.postForm("/records/missing", validValues())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRecord(t *testing.T) {
	e := setupTestServer(t)

	rec, err := e.service.Create(context.Background(), models.RecordFields{
		AircraftModel: models.ModelGlobal, ACNumber: "N1", MonumentNumber: "M1",
		StartDate: "2024-01-01", FinishDate: "2024-01-01",
	})
	require.NoError(t, err)

	w := e.postForm("/records/"+rec.ID+"/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, listRecords(t, e))

	// deleting again is not an error
	w = e.postForm("/records/"+rec.ID+"/delete", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestAPI_CRUDAndSearch(t *testing.T) {
	e := setupTestServer(t)

	for _, f := range []models.RecordFields{
		{AircraftModel: models.ModelGlobal, ACNumber: "N101", MonumentNumber: "M-5", StartDate: "2024-01-01", FinishDate: "2024-01-10"},
		{AircraftModel: models.ModelChallenger, ACNumber: "C200", MONumber: "WO-77", MonumentNumber: "X-1", StartDate: "2024-01-02", FinishDate: "2024-01-03"},
	} {
		w := e.doJSON(http.MethodPost, "/api/records", f)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := e.doJSON(http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 2)
	// newest first
	assert.Equal(t, "C200", all[0].ACNumber)
	assert.Equal(t, "N101", all[1].ACNumber)

	w = e.doJSON(http.MethodGet, "/api/records?q=wo-7", nil)
	var found []models.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, "C200", found[0].ACNumber)

	w = e.doJSON(http.MethodGet, "/api/records?q=nothing", nil)
	assert.JSONEq(t, "[]", w.Body.String())

	w = e.doJSON(http.MethodGet, "/api/records/"+all[1].ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.doJSON(http.MethodDelete, "/api/records/"+all[1].ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.doJSON(http.MethodGet, "/api/records/"+all[1].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.doJSON(http.MethodPut, "/api/records/"+all[1].ID, models.RecordFields{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_CreateValidation(t *testing.T) {
	e := setupTestServer(t)

	w := e.doJSON(http.MethodPost, "/api/records", models.RecordFields{AircraftModel: "Learjet"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verr))
	assert.Equal(t, "Aircraft Model must be Global or Challenger.", verr.Fields["aircraftModel"])
	assert.Equal(t, "A/C# is required.", verr.Fields["acNumber"])
	assert.Equal(t, "Monument# is required.", verr.Fields["monumentNumber"])
	assert.Equal(t, "Start Date is required.", verr.Fields["startDate"])
	assert.Equal(t, "Finish Date is required.", verr.Fields["finishDate"])

	pics := make([]models.Picture, 6)
	for i := range pics {
		pics[i] = models.Picture{Name: "x.png", DataURL: "data:image/png;base64,iVBORw=="}
	}
	w = e.doJSON(http.MethodPost, "/api/records", models.RecordFields{
		AircraftModel: models.ModelGlobal, ACNumber: "N1", MonumentNumber: "M1",
		StartDate: "2024-01-01", FinishDate: "2024-01-02", Pictures: pics,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot upload more than 5 images.")

	w = e.doJSON(http.MethodPost, "/api/records", models.RecordFields{
		AircraftModel: models.ModelGlobal, ACNumber: "N1", MonumentNumber: "M1",
		StartDate: "2024-01-01", FinishDate: "2024-01-02",
		Pictures: []models.Picture{{Name: "bad", DataURL: "not a data url"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Error processing images. Please try again.")

	w = e.do(httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportXLSX(t *testing.T) {
	e := setupTestServer(t)

	_, err := e.service.Create(context.Background(), models.RecordFields{
		AircraftModel: models.ModelGlobal, ACNumber: "N101", MonumentNumber: "M-5",
		StartDate: "2024-01-01", FinishDate: "2024-01-10",
	})
	require.NoError(t, err)

	w := e.do(httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "aircraft-records.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "N101", rows[1][2])
}

// failingStore fails every call
type failingStore struct{}

var errBroken = errors.New("disk on fire")

func (failingStore) Add(context.Context, *models.Record) error { return errBroken }
func (failingStore) Update(context.Context, *models.Record) error { return errBroken }
func (failingStore) GetAll(context.Context) ([]*models.Record, error) { return nil, errBroken }
func (failingStore) GetByID(context.Context, string) (*models.Record, error) { return nil, errBroken }
func (failingStore) Delete(context.Context, string) error { return errBroken }
func (failingStore) InsertBatch(context.Context, []*models.Record) error { return errBroken }

func TestStorageFailureBanners(t *testing.T) {
	srv, err := New(Options{Records: records.NewService(failingStore{})})
	require.NoError(t, err)
	e := &testEnv{server: srv}

	w := e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load records. Please try again.")
	assert.NotContains(t, w.Body.String(), "No Records Found")

	w = e.postForm("/records", validValues())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to add record. Please try again.")
	// the form stays open with what was entered
	assert.Contains(t, w.Body.String(), `value="N101"`)

	w = e.postForm("/records/abc/delete", url.Values{})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to delete record. Please try again.")

	w = e.doJSON(http.MethodDelete, "/api/records/abc", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to delete record. Please try again.")
}

func TestStaticAssetsThroughShell(t *testing.T) {
	var fetched int
	external := shell.NetworkFunc(func(_ context.Context, _, rawURL string) (*shell.Response, error) {
		fetched++
		return &shell.Response{Status: http.StatusOK, ContentType: "text/javascript", Body: []byte("// " + rawURL)}, nil
	})

	e := setupTestServer(t)
	cache, err := shell.New(shell.Config{
		Version:   "test-v1",
		Origin:    "http://localhost:8080",
		Whitelist: []string{"https://cdn.tailwindcss.com"},
	}, e.db.ShellCache(), external)
	require.NoError(t, err)

	srv, err := New(Options{
		Records:  e.service,
		Shell:    cache,
		Network:  external,
		Tailwind: "https://cdn.tailwindcss.com",
	})
	require.NoError(t, err)
	e.server = srv

	w := e.do(httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "miss", w.Header().Get(shell.CacheHeader))
	first := w.Body.String()
	assert.NotEmpty(t, first)

	w = e.do(httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hit", w.Header().Get(shell.CacheHeader))
	assert.Equal(t, first, w.Body.String())

	w = e.do(httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// pages are never served from the cache
	w = e.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(shell.CacheHeader))
	assert.Contains(t, w.Body.String(), "/shell/fetch?url=https%3A%2F%2Fcdn.tailwindcss.com")

	w = e.do(httptest.NewRequest(http.MethodGet, "/shell/fetch?url="+url.QueryEscape("https://cdn.tailwindcss.com"), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(httptest.NewRequest(http.MethodGet, "/shell/fetch?url="+url.QueryEscape("https://cdn.tailwindcss.com"), nil))
	assert.Equal(t, "hit", w.Header().Get(shell.CacheHeader))
	assert.Equal(t, 1, fetched)

	w = e.do(httptest.NewRequest(http.MethodGet, "/shell/fetch?url="+url.QueryEscape("https://evil.example/x.js"), nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
