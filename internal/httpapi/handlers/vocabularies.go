package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/ingest"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

// VocabularyHandler serves the public vocabulary registry: the status
// listing and per-vocabulary license text.
type VocabularyHandler struct {
	svc *ingest.Service
	log *logger.Logger
}

func NewVocabularyHandler(svc *ingest.Service, log *logger.Logger) *VocabularyHandler {
	return &VocabularyHandler{svc: svc, log: log.With("handler", "VocabularyHandler")}
}

// List answers GET /api/vocabularies with the status of every
// registered vocabulary.
func (vh *VocabularyHandler) List(c *gin.Context) {
	statuses, err := vh.svc.VocabularyStatuses(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, statuses)
}

// Status answers GET /api/vocabularies/:prefix.
func (vh *VocabularyHandler) Status(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	status, err := vh.svc.VocabularyStatus(c.Request.Context(), prefix)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// License answers GET /api/vocabularies/:prefix/license with the
// vocabulary's license and attribution notice as Markdown.
func (vh *VocabularyHandler) License(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(vocabularyLicense(prefix)))
}
