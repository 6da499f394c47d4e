package menus

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"coop-site/internal/shared/server/respond"
	"coop-site/internal/shared/storage/object"
)

// maxRequestBytes leaves room for multipart framing around a full-size file.
const maxRequestBytes = object.MaxObjectBytes + 1<<20

// Handler wires HTTP handlers to the upload and resolution services.
type Handler struct {
	Svc      *Service
	Resolver *Resolver
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, resolver *Resolver) *Handler {
	return &Handler{Svc: svc, Resolver: resolver}
}

// RegisterRoutes attaches menu routes. admin guards the upload route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/menu", h.list)
	rg.POST("/menu/upload", admin, h.upload)
}

func (h *Handler) list(c *gin.Context) {
	resolved := h.Resolver.ResolveAll(c.Request.Context())
	data := make([]MenuEntry, 0, len(resolved))
	for _, r := range resolved {
		data = append(data, toEntry(r))
	}
	respond.NoStore(c, MenuListResponse{Success: true, Data: data})
}

func (h *Handler) upload(c *gin.Context) {
	if !h.Svc.UploadsEnabled() {
		writeUploadError(c, ErrUploadsDisabled)
		return
	}
	c.Set("storageBackend", h.Svc.Backend.Name())
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeUploadError(c, ErrTooLarge)
			return
		}
		writeUploadError(c, ErrMissingField)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		writeUploadError(c, fmt.Errorf("%w: %v", ErrMissingField, err))
		return
	}
	defer file.Close()

	week := c.PostForm("week")
	c.Set("week", week)
	slot, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		Week:        week,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		writeUploadError(c, err)
		return
	}

	filePath := slot.FilePath
	if slot.RemoteURL != "" {
		filePath = slot.RemoteURL
	}
	respond.OK(c, UploadResponse{
		Success:  true,
		Message:  fmt.Sprintf("Jídelní lístek pro %d. týden byl úspěšně nahrán.", slot.Week),
		FilePath: filePath,
	})
}

func writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUploadsDisabled):
		respond.Error(c, http.StatusForbidden, "uploads_disabled", "Nahrávání souborů je v tomto prostředí vypnuto.", nil)
	case errors.Is(err, ErrMissingField):
		respond.Error(c, http.StatusBadRequest, "missing_field", "Chybí soubor nebo číslo týdne.", nil)
	case errors.Is(err, ErrInvalidWeek):
		respond.Error(c, http.StatusBadRequest, "invalid_week", "Neplatný týden. Povolené hodnoty jsou 1 a 2.", nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusBadRequest, "unsupported_type", "Povoleny jsou pouze soubory PDF.", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusBadRequest, "too_large", "Soubor je příliš velký. Maximální velikost je 10 MB.", nil)
	case errors.Is(err, ErrStorageFailure):
		respond.Error(c, http.StatusInternalServerError, "storage_failure", "Soubor se nepodařilo uložit.", nil)
	case errors.Is(err, ErrRecordFailure):
		respond.Error(c, http.StatusInternalServerError, "record_failure", "Chyba databáze při ukládání jídelního lístku.", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "Neočekávaná chyba serveru.", nil)
	}
}
