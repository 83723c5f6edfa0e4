package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/store/docstore"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

const (
	autoCompleteLongLimit  = 250
	autoCompleteShortLimit = 25
)

// AutoCompleteHandler serves the three generations of the auto-complete
// endpoint, all backed by the document store's n-gram search.
type AutoCompleteHandler struct {
	docs      docstore.DocumentStore
	minLength int
	log       *logger.Logger
}

func NewAutoCompleteHandler(docs docstore.DocumentStore, minLength int, log *logger.Logger) *AutoCompleteHandler {
	if minLength < 1 {
		minLength = 1
	}
	return &AutoCompleteHandler{
		docs:      docs,
		minLength: minLength,
		log:       log.With("handler", "AutoCompleteHandler"),
	}
}

// V1 answers GET /:prefix/auto-complete/v1/query/:query with the legacy
// string format. Too-short queries answer 200 with an advisory string
// because legacy clients treat any non-2xx as a hard failure.
func (ah *AutoCompleteHandler) V1(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	query := c.Param("query")
	if utf8.RuneCountInString(query) < ah.minLength {
		response.RespondOK(c, []string{
			fmt.Sprintf("Search term needs at least %d characters.", ah.minLength),
		})
		return
	}

	limit := autoCompleteShortLimit
	if boolQuery(c, "long", false) {
		limit = autoCompleteLongLimit
	}

	concepts, err := terminology.Collect(ah.docs.AutoComplete(c.Request.Context(), prefix, query, limit))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	results := make([]string, 0, len(concepts))
	for _, concept := range concepts {
		s := fmt.Sprintf("%s:%s", concept.Prefix, concept.ConceptID)
		if concept.Label != "" {
			s += fmt.Sprintf(" (%s)", concept.Label)
		}
		if len(concept.Synonyms) > 0 {
			s += fmt.Sprintf(" synonyms:[%s]", strings.Join(concept.Synonyms, ", "))
		}
		results = append(results, s)
	}
	response.RespondOK(c, results)
}

// autoCompleteRecord is the trimmed v2 response shape.
type autoCompleteRecord struct {
	TermID     string `json:"termId"`
	Label      string `json:"label"`
	Definition string `json:"definition,omitempty"`
}

// V2 answers GET /:prefix/auto-complete/v2?query=&result_threshold=.
func (ah *AutoCompleteHandler) V2(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	query, ok := ah.requireQuery(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "result_threshold", 20)
	if err != nil || limit < 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("result_threshold must be a non-negative integer"))
		return
	}

	concepts, err := terminology.Collect(ah.docs.AutoComplete(c.Request.Context(), prefix, query, limit))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}

	records := make([]autoCompleteRecord, 0, len(concepts))
	for _, concept := range concepts {
		records = append(records, autoCompleteRecord{
			TermID:     concept.ConceptID,
			Label:      concept.Label,
			Definition: concept.Definition,
		})
	}
	response.RespondOK(c, records)
}

// V3 answers GET /:prefix/auto-complete/v3?query=&limit= with a streamed
// array of full concept records.
func (ah *AutoCompleteHandler) V3(c *gin.Context) {
	prefix, ok := prefixParam(c)
	if !ok {
		return
	}
	query, ok := ah.requireQuery(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil || limit < 0 {
		response.RespondError(c, http.StatusBadRequest, "validation", fmt.Errorf("limit must be a non-negative integer"))
		return
	}

	if err := streamJSONArray(c, ah.docs.AutoComplete(c.Request.Context(), prefix, query, limit)); err != nil {
		ah.log.Error("auto-complete stream aborted", "prefix", prefix, "error", err)
	}
}

func (ah *AutoCompleteHandler) requireQuery(c *gin.Context) (string, bool) {
	query := c.Query("query")
	if utf8.RuneCountInString(query) < ah.minLength {
		response.RespondError(c, http.StatusBadRequest, "validation",
			fmt.Errorf("query must be at least %d characters", ah.minLength))
		return "", false
	}
	return query, true
}
