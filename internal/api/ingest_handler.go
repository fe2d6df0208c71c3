package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// SnapshotWriter persists an inbound payload to its fixed file path.
type SnapshotWriter interface {
	Persist(payload any) error
}

// IngestHandler serves the ingestion endpoints the crawler loops forward to.
type IngestHandler struct {
	newsWriter  SnapshotWriter
	seatsWriter SnapshotWriter
	log         logger.Interface
}

// NewIngestHandler creates the ingestion endpoints handler.
func NewIngestHandler(newsWriter, seatsWriter SnapshotWriter, log logger.Interface) *IngestHandler {
	return &IngestHandler{
		newsWriter:  newsWriter,
		seatsWriter: seatsWriter,
		log:         log,
	}
}

// SaveParsedNews handles POST /parsed-news: the payload is persisted
// verbatim to the news snapshot file.
func (h *IngestHandler) SaveParsedNews(c *gin.Context) {
	h.save(c, h.newsWriter, "Parsed news saved successfully.")
}

// SaveFreePlaces handles POST /free-places: the payload is persisted
// verbatim to the seats snapshot file.
func (h *IngestHandler) SaveFreePlaces(c *gin.Context) {
	h.save(c, h.seatsWriter, "Free places saved successfully.")
}

// save binds an arbitrary JSON payload and persists it through the writer.
func (h *IngestHandler) save(c *gin.Context, writer SnapshotWriter, okMessage string) {
	var payload any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	if err := writer.Persist(payload); err != nil {
		h.log.Error("Failed to persist ingested payload",
			"path", c.Request.URL.Path,
			"error", err.Error(),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save payload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": okMessage})
}
