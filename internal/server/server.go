package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircraft_logger/internal/form"
	"aircraft_logger/internal/models"
	"aircraft_logger/internal/records"
	"aircraft_logger/internal/shell"

	"github.com/gin-gonic/gin"
)

//go:embed web
var webFS embed.FS

// ShellPaths are the static routes served through the asset cache
var ShellPaths = []string{"/static/", "/icons/", "/manifest.json"}

// Options wires the server to its dependencies
type Options struct {
	Records     *records.Service
	MaxPictures int

	// Shell is optional; without it static assets are served directly
	Shell *shell.Cache
	// Network fetches whitelisted external assets for the shell
	Network shell.Network
	// Tailwind is an external stylesheet script loaded through the shell, if any
	Tailwind string
}

// Server is the local web UI and JSON API
type Server struct {
	records     *records.Service
	maxPictures int
	shell       *shell.Cache
	network     shell.Network
	tailwind    string
	engine      *gin.Engine
}

func New(opts Options) (*Server, error) {
	maxPictures := opts.MaxPictures
	if maxPictures <= 0 {
		maxPictures = form.DefaultMaxPictures
	}

	s := &Server{
		records:     opts.Records,
		maxPictures: maxPictures,
		shell:       opts.Shell,
		network:     opts.Network,
	}
	if opts.Shell != nil && opts.Tailwind != "" {
		s.tailwind = "/shell/fetch?url=" + url.QueryEscape(opts.Tailwind)
	}

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.SetHTMLTemplate(tmpl)

	if err := s.routes(engine); err != nil {
		return nil, err
	}
	s.engine = engine

	return s, nil
}

// Handler returns the HTTP handler for the whole app
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(r *gin.Engine) error {
	staticFS, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return err
	}
	iconsFS, err := fs.Sub(webFS, "web/icons")
	if err != nil {
		return err
	}
	rootFS, err := fs.Sub(webFS, "web")
	if err != nil {
		return err
	}

	if s.shell != nil {
		r.Use(s.shell.Middleware(ShellPaths...))
		if s.network != nil {
			r.GET("/shell/fetch", s.shell.ExternalHandler(s.network))
		}
	}

	r.StaticFS("/static", http.FS(staticFS))
	r.StaticFS("/icons", http.FS(iconsFS))
	r.GET("/manifest.json", func(c *gin.Context) {
		c.FileFromFS("manifest.json", http.FS(rootFS))
	})

	r.GET("/", s.index)
	r.GET("/records/new", s.newRecord)
	r.POST("/records", s.createRecord)
	r.GET("/records/:id", s.showRecord)
	r.GET("/records/:id/edit", s.editRecord)
	r.POST("/records/:id", s.updateRecord)
	r.POST("/records/:id/delete", s.deleteRecord)
	r.GET("/records/:id/pictures/:pictureID", s.picture)
	r.GET("/export.xlsx", s.exportXLSX)

	api := r.Group("/api")
	api.GET("/records", s.apiList)
	api.GET("/records/:id", s.apiGet)
	api.POST("/records", s.apiCreate)
	api.PUT("/records/:id", s.apiUpdate)
	api.DELETE("/records/:id", s.apiDelete)

	return nil
}

// requestLogger logs one line per request with its latency
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"firstPicture": func(pics []models.Picture) *models.Picture {
			if len(pics) == 0 {
				return nil
			}
			return &pics[0]
		},
		// Only image data URLs are trusted as img sources
		"pictureSrc": func(p models.Picture) template.URL {
			if strings.HasPrefix(p.DataURL, "data:image/") {
				return template.URL(p.DataURL)
			}
			return ""
		},
		"pictureJSON": func(p models.Picture) (string, error) {
			b, err := json.Marshal(p)
			return string(b), err
		},
	}
}
