package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/ingest"
	"github.com/yungbote/bioterms-backend/internal/jobs/ingestrun"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// ManageHandler serves the admin management surface: vocabulary and
// annotation lifecycle operations plus similarity precomputation. The
// synchronous operations run inside the request; the full ingest
// pipeline goes through the dispatcher so long downloads do not hold an
// HTTP connection open.
type ManageHandler struct {
	svc        *ingest.Service
	dispatcher *ingestrun.Dispatcher
	log        *logger.Logger
}

func NewManageHandler(svc *ingest.Service, dispatcher *ingestrun.Dispatcher, log *logger.Logger) *ManageHandler {
	return &ManageHandler{svc: svc, dispatcher: dispatcher, log: log.With("handler", "ManageHandler")}
}

// Ingest answers POST /api/manage/vocabularies/:prefix/ingest, starting
// the download-load-embed pipeline asynchronously.
func (mh *ManageHandler) Ingest(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	runID, err := mh.dispatcher.Run(c.Request.Context(), ingestrun.Input{
		Prefix:       prefix,
		Redownload:   boolQuery(c, "redownload", false),
		DropExisting: boolQuery(c, "drop_existing", false),
		Embed:        boolQuery(c, "embed", false),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"runId":   runID,
		"durable": mh.dispatcher.Durable(),
	})
}

// Download answers POST /api/manage/vocabularies/:prefix/download.
func (mh *ManageHandler) Download(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	if err := mh.svc.DownloadVocabulary(c.Request.Context(), prefix, boolQuery(c, "redownload", false)); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prefix": prefix, "downloaded": true})
}

// Load answers POST /api/manage/vocabularies/:prefix/load.
func (mh *ManageHandler) Load(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	if err := mh.svc.LoadVocabulary(c.Request.Context(), prefix, boolQuery(c, "drop_existing", false)); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	status, err := mh.svc.VocabularyStatus(c.Request.Context(), prefix)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// Embed answers POST /api/manage/vocabularies/:prefix/embed.
func (mh *ManageHandler) Embed(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	if err := mh.svc.EmbedVocabulary(c.Request.Context(), prefix); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prefix": prefix, "embedded": true})
}

// Delete answers DELETE /api/manage/vocabularies/:prefix, removing the
// stored data and, when files=true, the downloaded release files too.
func (mh *ManageHandler) Delete(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	if err := mh.svc.DeleteVocabulary(c.Request.Context(), prefix); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if boolQuery(c, "files", false) {
		if err := mh.svc.DeleteVocabularyFiles(prefix); err != nil {
			response.RespondServiceError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// AnnotationStatuses answers GET /api/manage/annotations.
func (mh *ManageHandler) AnnotationStatuses(c *gin.Context) {
	statuses, err := mh.svc.AnnotationStatuses(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, statuses)
}

// DownloadAnnotation answers POST /api/manage/annotations/:prefix/:target/download.
func (mh *ManageHandler) DownloadAnnotation(c *gin.Context) {
	source, target, ok := mh.annotationPair(c)
	if !ok {
		return
	}
	if err := mh.svc.DownloadAnnotation(c.Request.Context(), source, target); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prefixSource": source, "prefixTarget": target, "downloaded": true})
}

// LoadAnnotation answers POST /api/manage/annotations/:prefix/:target/load.
func (mh *ManageHandler) LoadAnnotation(c *gin.Context) {
	source, target, ok := mh.annotationPair(c)
	if !ok {
		return
	}
	if err := mh.svc.LoadAnnotation(c.Request.Context(), source, target, boolQuery(c, "overwrite", false)); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	status, err := mh.svc.AnnotationStatus(c.Request.Context(), source, target)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// DeleteAnnotation answers DELETE /api/manage/annotations/:prefix/:target.
func (mh *ManageHandler) DeleteAnnotation(c *gin.Context) {
	source, target, ok := mh.annotationPair(c)
	if !ok {
		return
	}
	if err := mh.svc.DeleteAnnotation(c.Request.Context(), source, target); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if boolQuery(c, "files", false) {
		if err := mh.svc.DeleteAnnotationFiles(source, target); err != nil {
			response.RespondServiceError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// CalculateSimilarity answers POST /api/manage/vocabularies/:prefix/similarity.
func (mh *ManageHandler) CalculateSimilarity(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	method, err := terminology.ParseSimilarityMethod(c.Query("method"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	var corpus terminology.Prefix
	if raw := c.Query("corpus"); raw != "" {
		if corpus, err = terminology.ParsePrefix(raw); err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation", err)
			return
		}
	}
	threshold, err := floatQuery(c, "threshold", 0.2)
	if err != nil || threshold < 0 || threshold > 1 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("threshold must be between 0 and 1"))
		return
	}

	if err := mh.svc.CalculateSimilarity(c.Request.Context(), prefix, method, corpus, threshold); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	status, err := mh.svc.SimilarityStatus(c.Request.Context(), prefix)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// SimilarityStatus answers GET /api/manage/vocabularies/:prefix/similarity.
func (mh *ManageHandler) SimilarityStatus(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	status, err := mh.svc.SimilarityStatus(c.Request.Context(), prefix)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, status)
}

func (mh *ManageHandler) annotationPair(c *gin.Context) (terminology.Prefix, terminology.Prefix, bool) {
	source, ok := prefixParam(c)
	if !ok {
		return "", "", false
	}
	target, err := terminology.ParsePrefix(c.Param("target"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "unknown_vocabulary", err)
		return "", "", false
	}
	return source, target, true
}
