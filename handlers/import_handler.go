package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/KitaosakaSystem/webSyuhai/csvimport"

	"github.com/labstack/echo/v4"
)

type ImportHandler struct {
	importer *csvimport.Importer
}

func NewImportHandler(importer *csvimport.Importer) *ImportHandler {
	return &ImportHandler{importer: importer}
}

func (h *ImportHandler) ImportUsers(c echo.Context) error {
	return h.runImport(c, h.importer.ImportUsers)
}

func (h *ImportHandler) ImportCustomers(c echo.Context) error {
	return h.runImport(c, h.importer.ImportCustomers)
}

func (h *ImportHandler) ImportStaff(c echo.Context) error {
	return h.runImport(c, h.importer.ImportStaff)
}

// runImport reads the uploaded "file" part and applies it with the
// given batch importer. Batch-level rejections come back as 400 with
// the reason; per-row failures are reported inside the 200 result.
func (h *ImportHandler) runImport(c echo.Context, apply func(context.Context, []byte) (*csvimport.Result, error)) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to open uploaded file"})
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
	}

	result, err := apply(c.Request().Context(), raw)
	if err != nil {
		var missErr *csvimport.MissingColumnsError
		switch {
		case errors.Is(err, csvimport.ErrNoData):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "file contains no data rows"})
		case errors.Is(err, csvimport.ErrTooManyRows):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.As(err, &missErr):
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "required columns are missing",
				"columns": missErr.Columns,
			})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "import failed"})
		}
	}

	return c.JSON(http.StatusOK, result)
}
