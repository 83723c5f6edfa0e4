// Package handlers implements the HTTP surface: vocabulary queries
// (auto-complete, expand, similarity, translate), document import/export,
// registry status, and the admin management operations.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// prefixParam resolves the :prefix path segment; unknown vocabularies
// answer 404 so the route space stays closed over the registry.
func prefixParam(c *gin.Context) (terminology.Prefix, bool) {
	prefix, err := terminology.ParsePrefix(c.Param("prefix"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "unknown_vocabulary", err)
		return "", false
	}
	return prefix, true
}

// intQuery parses an optional integer query parameter, rejecting garbage
// but not absence.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}
	return n, nil
}

func floatQuery(c *gin.Context, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be a number", name)
	}
	return f, nil
}

func boolQuery(c *gin.Context, name string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(c.Query(name)))
	if raw == "" {
		return def
	}
	return raw == "1" || raw == "true" || raw == "yes"
}

// idsQuery splits a comma-separated id list query parameter.
func idsQuery(c *gin.Context, name string) []string {
	var ids []string
	for _, part := range strings.Split(c.Query(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

// streamJSONArray serializes a record stream as one JSON array without
// buffering it, flushing as records arrive. Errors after the first byte
// can only truncate the body; they are reported to the caller for
// logging.
func streamJSONArray[T any](c *gin.Context, seq terminology.Seq[T]) error {
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)

	flusher, _ := c.Writer.(http.Flusher)
	if _, err := c.Writer.WriteString("["); err != nil {
		return err
	}
	first := true
	err := seq(func(record T) error {
		raw, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if !first {
			if _, err := c.Writer.WriteString(","); err != nil {
				return err
			}
		}
		first = false
		if _, err := c.Writer.Write(raw); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := c.Writer.WriteString("]"); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}
