package handler

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"hexserve/internal/config"
	"hexserve/internal/fileserver"
)

// RootHandler renders the landing index that points at the file browser.
type RootHandler struct {
	prefix string
}

// NewRootHandler creates a RootHandler.
func NewRootHandler(cfg *config.Config) *RootHandler {
	return &RootHandler{prefix: cfg.Files.URLPrefix}
}

// Handle renders a one-entry directory index linking to the browse prefix.
func (h *RootHandler) Handle(c echo.Context) error {
	idx := fileserver.Index{
		Path: "/",
		Entries: []fileserver.Entry{{
			Name:     strings.TrimPrefix(h.prefix, "/"),
			IsDir:    true,
			Size:     fileserver.Placeholder,
			Modified: fileserver.Placeholder,
			Link:     fileserver.EscapeLink(h.prefix + "/"),
		}},
	}

	var buf bytes.Buffer
	if err := fileserver.RenderIndex(&buf, idx); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
