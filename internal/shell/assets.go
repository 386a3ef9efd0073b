package shell

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
)

//go:embed web
var webFS embed.FS

// RendererSource returns the embedded renderer script.
func RendererSource() (string, error) {
	data, err := webFS.ReadFile("web/renderer.js")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Mount serves the window's page, the renderer and the generated preload.
func (s *Shell) Mount(r gin.IRoutes) error {
	preload, err := s.bridge.Preload()
	if err != nil {
		return err
	}
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		return err
	}
	renderer, err := webFS.ReadFile("web/renderer.js")
	if err != nil {
		return err
	}

	r.GET("/", static("text/html; charset=utf-8", page))
	r.GET("/renderer.js", static("application/javascript; charset=utf-8", renderer))
	r.GET("/preload.js", static("application/javascript; charset=utf-8", []byte(preload)))
	return nil
}

func static(contentType string, body []byte) gin.HandlerFunc {
	h := gzhttp.GzipHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	return gin.WrapH(h)
}
