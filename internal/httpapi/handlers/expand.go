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

// ExpandHandler serves descendant expansion over the vocabulary graph.
type ExpandHandler struct {
	graph graphstore.GraphStore
	log   *logger.Logger
}

func NewExpandHandler(graph graphstore.GraphStore, log *logger.Logger) *ExpandHandler {
	return &ExpandHandler{graph: graph, log: log.With("handler", "ExpandHandler")}
}

type expandRequestV1 struct {
	TermIDs []string `json:"termIds"`
	Depth   int      `json:"depth"`
}

type expandedTermV1 struct {
	TermID   string   `json:"termId"`
	Children []string `json:"children"`
	Depth    int      `json:"depth"`
}

// V1 answers POST /:prefix/expand/v1 with the buffered legacy shape.
func (eh *ExpandHandler) V1(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	var req expandRequestV1
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.TermIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("termIds must not be empty"))
		return
	}
	if req.Depth < 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("depth must be non-negative"))
		return
	}

	expanded, err := terminology.Collect(
		eh.graph.ExpandTerms(c.Request.Context(), prefix, req.TermIDs, req.Depth, 0))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	results := make([]expandedTermV1, 0, len(expanded))
	for _, term := range expanded {
		children := term.Descendants
		if children == nil {
			children = []string{}
		}
		results = append(results, expandedTermV1{
			TermID:   term.ConceptID,
			Children: children,
			Depth:    req.Depth,
		})
	}
	response.RespondOK(c, results)
}

// V2 answers GET /:prefix/expand/v2?concept_ids=&depth=&limit= with a
// streamed array of expanded terms.
func (eh *ExpandHandler) V2(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	conceptIDs := idsQuery(c, "concept_ids")
	if len(conceptIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("concept_ids must not be empty"))
		return
	}
	depth, err := intQuery(c, "depth", 0)
	if err != nil || depth < 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("depth must be a non-negative integer"))
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil || limit < 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("limit must be a non-negative integer"))
		return
	}

	seq := eh.graph.ExpandTerms(c.Request.Context(), prefix, conceptIDs, depth, limit)
	if err := streamJSONArray(c, seq); err != nil {
		eh.log.Error("expand stream aborted", "prefix", prefix, "error", err)
	}
}
