package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/store/graphstore"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// TranslateHandler maps concepts into other vocabularies through the
// similarity edges, constrained to caller-supplied target sets.
type TranslateHandler struct {
	graph graphstore.GraphStore
	log   *logger.Logger
}

func NewTranslateHandler(graph graphstore.GraphStore, log *logger.Logger) *TranslateHandler {
	return &TranslateHandler{graph: graph, log: log.With("handler", "TranslateHandler")}
}

type translateRequestV1 struct {
	TermIDs []string `json:"termIds"`
	// ConstraintIDs lists allowed targets in "prefix:id" form.
	ConstraintIDs []string `json:"constraintIds"`
	Threshold     *float64 `json:"threshold"`
}

type translatedTermV1 struct {
	TermID string  `json:"termId"`
	Score  float64 `json:"score"`
}

// V1 answers POST /:prefix/translate/v1 with the buffered legacy shape:
// translated IDs in "prefix:id" form with their scores.
func (th *TranslateHandler) V1(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	var req translateRequestV1
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(req.TermIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("termIds must not be empty"))
		return
	}
	constraints, err := parseConstraintIDs(req.ConstraintIDs)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", err)
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

	translated, err := terminology.Collect(th.graph.TranslateTerms(c.Request.Context(), graphstore.TranslateQuery{
		Prefix:        prefix,
		ConceptIDs:    req.TermIDs,
		ConstraintIDs: constraints,
		Threshold:     threshold,
	}))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	results := make([]translatedTermV1, 0, len(translated))
	for _, term := range translated {
		results = append(results, translatedTermV1{
			TermID: fmt.Sprintf("%s:%s", term.Prefix, term.ConceptID),
			Score:  term.Score,
		})
	}
	response.RespondOK(c, results)
}

// V2 answers GET /:prefix/translate/v2 with a streamed array of
// translated-term records.
func (th *TranslateHandler) V2(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	conceptIDs := idsQuery(c, "concept_ids")
	if len(conceptIDs) == 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("concept_ids must not be empty"))
		return
	}
	constraints, err := parseConstraintIDs(idsQuery(c, "constraint_ids"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", err)
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

	seq := th.graph.TranslateTerms(c.Request.Context(), graphstore.TranslateQuery{
		Prefix:        prefix,
		ConceptIDs:    conceptIDs,
		ConstraintIDs: constraints,
		Threshold:     threshold,
		Limit:         limit,
	})
	if err := streamJSONArray(c, seq); err != nil {
		th.log.Error("translate stream aborted", "prefix", prefix, "error", err)
	}
}

// parseConstraintIDs groups "prefix:id" constraints by target
// vocabulary.
func parseConstraintIDs(raw []string) (map[terminology.Prefix]map[string]struct{}, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("constraintIds must not be empty")
	}
	constraints := make(map[terminology.Prefix]map[string]struct{})
	for _, entry := range raw {
		part, id, found := strings.Cut(entry, ":")
		if !found || id == "" {
			return nil, fmt.Errorf("constraint %q must be in prefix:id form", entry)
		}
		prefix, err := terminology.ParsePrefix(part)
		if err != nil {
			return nil, err
		}
		if constraints[prefix] == nil {
			constraints[prefix] = make(map[string]struct{})
		}
		constraints[prefix][id] = struct{}{}
	}
	return constraints, nil
}
