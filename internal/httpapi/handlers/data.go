package handlers

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/ingest"
	"github.com/yungbote/bioterms-backend/internal/platform/apierr"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/store/docstore"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// importBatchSize bounds how many concepts one SaveTerms call carries
// during a document upload.
const importBatchSize = 1000

// DataHandler serves the bulk data plane: export the stored documents of
// a vocabulary, upload them directly, or delete the vocabulary data.
type DataHandler struct {
	docs docstore.DocumentStore
	svc  *ingest.Service
	log  *logger.Logger
}

func NewDataHandler(docs docstore.DocumentStore, svc *ingest.Service, log *logger.Logger) *DataHandler {
	return &DataHandler{docs: docs, svc: svc, log: log.With("handler", "DataHandler")}
}

// Export answers GET /:prefix/data/documents with every stored concept
// as one streamed JSON array, served as a download.
func (dh *DataHandler) Export(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	c.Writer.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s_documents.json", prefix)))

	if err := streamJSONArray(c, dh.docs.Terms(c.Request.Context(), prefix, 0)); err != nil {
		dh.log.Error("document export aborted", "prefix", prefix, "error", err)
	}
}

// Import answers POST /:prefix/data/documents. The body is one concept
// per line in JSON, optionally gzip-compressed, persisted in batches so
// arbitrarily large uploads never sit in memory whole. It responds with
// the vocabulary's total concept count after the upload.
func (dh *DataHandler) Import(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}

	var body io.Reader = c.Request.Body
	if c.GetHeader("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			response.RespondServiceError(c, apierr.Parse(fmt.Errorf("invalid gzip body: %w", err)))
			return
		}
		defer gz.Close()
		body = gz
	}

	ctx := c.Request.Context()
	batch := make([]terminology.Concept, 0, importBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := dh.docs.SaveTerms(ctx, prefix, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var concept terminology.Concept
		if err := json.Unmarshal(line, &concept); err != nil {
			response.RespondServiceError(c, apierr.Parse(fmt.Errorf("invalid document: %w", err)))
			return
		}
		batch = append(batch, concept)
		if len(batch) >= importBatchSize {
			if err := flush(); err != nil {
				response.RespondServiceError(c, err)
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		response.RespondServiceError(c, apierr.Parse(fmt.Errorf("reading upload: %w", err)))
		return
	}
	if err := flush(); err != nil {
		response.RespondServiceError(c, err)
		return
	}

	count, err := dh.docs.CountTerms(ctx, prefix)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conceptCount": count})
}

// Delete answers DELETE /:prefix/data, removing the vocabulary from
// every store.
func (dh *DataHandler) Delete(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	if err := dh.svc.DeleteVocabulary(c.Request.Context(), prefix); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
