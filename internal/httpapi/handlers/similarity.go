package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/store/graphstore"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// SimilarityHandler serves similar-term lookups over the precomputed
// similarity edges.
type SimilarityHandler struct {
	graph graphstore.GraphStore
	log   *logger.Logger
}

func NewSimilarityHandler(graph graphstore.GraphStore, log *logger.Logger) *SimilarityHandler {
	return &SimilarityHandler{graph: graph, log: log.With("handler", "SimilarityHandler")}
}

type similarityRequestV1 struct {
	TermIDs []string `json:"termIds"`
	// Threshold defaults to 1.0 when absent; stored edges below the
	// server's precomputation cutoff are never returned regardless.
	Threshold *float64 `json:"threshold"`
}

type similarTermV1 struct {
	TermID     string   `json:"termId"`
	SimilarIDs []string `json:"similarIds"`
	// SimilarityThreshold echoes the requested score cutoff; Threshold
	// echoes the per-term result cap when one was given.
	SimilarityThreshold float64 `json:"similarityThreshold"`
	Threshold           *int    `json:"threshold,omitempty"`
}

// V1 answers POST /:prefix/similarity/v1?result_threshold= with the
// buffered legacy shape, restricted to same-vocabulary matches.
func (sh *SimilarityHandler) V1(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	var req similarityRequestV1
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.TermIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("termIds must not be empty"))
		return
	}
	threshold := 1.0
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("threshold must be between 0 and 1"))
		return
	}
	resultThreshold, err := intQuery(c, "result_threshold", 0)
	if err != nil || resultThreshold < 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("result_threshold must be a non-negative integer"))
		return
	}

	similar, err := terminology.Collect(sh.graph.SimilarTerms(c.Request.Context(), graphstore.SimilarQuery{
		Prefix:     prefix,
		ConceptIDs: req.TermIDs,
		Threshold:  threshold,
		SamePrefix: true,
		Limit:      resultThreshold,
	}))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	var capEcho *int
	if resultThreshold > 0 {
		capEcho = &resultThreshold
	}
	results := make([]similarTermV1, 0, len(similar))
	for _, term := range similar {
		similarIDs := []string{}
		if len(term.SimilarGroups) > 0 {
			similarIDs = term.SimilarGroups[0].SimilarConcepts
		}
		results = append(results, similarTermV1{
			TermID:              term.ConceptID,
			SimilarIDs:          similarIDs,
			SimilarityThreshold: threshold,
			Threshold:           capEcho,
		})
	}
	response.RespondOK(c, results)
}

// V2 answers GET /:prefix/similarity/v2 with a streamed array of
// similar-term records grouped by vocabulary.
func (sh *SimilarityHandler) V2(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	conceptIDs := idsQuery(c, "concept_ids")
	if len(conceptIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("concept_ids must not be empty"))
		return
	}
	threshold, err := floatQuery(c, "threshold", 1.0)
	if err != nil || threshold < 0 || threshold > 1 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("threshold must be between 0 and 1"))
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil || limit < 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("limit must be a non-negative integer"))
		return
	}

	query := graphstore.SimilarQuery{
		Prefix:     prefix,
		ConceptIDs: conceptIDs,
		Threshold:  threshold,
		SamePrefix: boolQuery(c, "same-prefix", true),
		Limit:      limit,
	}
	if raw := c.Query("corpus"); raw != "" {
		corpus, err := terminology.ParsePrefix(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation", err)
			return
		}
		query.Corpus = corpus
	}
	if raw := c.Query("method"); raw != "" {
		method, err := terminology.ParseSimilarityMethod(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation", err)
			return
		}
		query.Method = method
	}

	if err := streamJSONArray(c, sh.graph.SimilarTerms(c.Request.Context(), query)); err != nil {
		sh.log.Error("similarity stream aborted", "prefix", prefix, "error", err)
	}
}
