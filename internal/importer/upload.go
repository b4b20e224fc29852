package importer

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// WrongRootMessage is the single all-or-nothing failure of an import: when
// the envelope element does not match the target entity, no record is
// touched.
const WrongRootMessage = "You're trying to import wrong elements to the database."

// ReadUploadedXML pulls the XML payload out of the multipart "file" field.
// Whole-file buffering is fine here, import files are small.
func ReadUploadedXML(c *fiber.Ctx) ([]byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if filepath.Ext(strings.ToLower(fileHeader.Filename)) != ".xml" &&
		!strings.Contains(contentType, "xml") {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Only XML files are allowed!")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Could not read uploaded file")
	}
	return data, nil
}
