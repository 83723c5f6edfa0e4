package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bioterms-backend/internal/platform/envutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/store/cache"
	"github.com/yungbote/bioterms-backend/internal/terminology"
)

// AssetsHandler serves the crawler-facing assets: the sitemap, built
// from the vocabulary registry and cached, and robots.txt.
type AssetsHandler struct {
	cache    cache.Cache
	prefixes func() []terminology.Prefix
	log      *logger.Logger
}

func NewAssetsHandler(c cache.Cache, prefixes func() []terminology.Prefix, log *logger.Logger) *AssetsHandler {
	if c == nil {
		c = cache.NewNoop()
	}
	return &AssetsHandler{cache: c, prefixes: prefixes, log: log.With("handler", "AssetsHandler")}
}

type siteMapURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type siteMapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []siteMapURL `xml:"url"`
}

// SiteMap answers GET /sitemap.xml, cache-first.
func (ah *AssetsHandler) SiteMap(c *gin.Context) {
	ctx := c.Request.Context()
	if cached, err := ah.cache.GetSiteMap(ctx); err != nil {
		ah.log.Warn("site map cache read", "error", err)
	} else if cached != "" {
		c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(cached))
		return
	}

	base := baseURL(c)
	urlset := siteMapURLSet{
		XMLNS: "https://www.sitemaps.org/schemas/sitemap/0.9",
		URLs: []siteMapURL{
			{Loc: base + "/", ChangeFreq: "monthly", Priority: "1.0"},
			{Loc: base + "/api/vocabularies", ChangeFreq: "weekly", Priority: "0.8"},
		},
	}
	for _, prefix := range ah.prefixes() {
		urlset.URLs = append(urlset.URLs, siteMapURL{
			Loc:        fmt.Sprintf("%s/api/vocabularies/%s", base, prefix),
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	body, err := xml.Marshal(urlset)
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	xmlStr := xml.Header + string(body)
	if err := ah.cache.SetSiteMap(ctx, xmlStr); err != nil {
		ah.log.Warn("site map cache write", "error", err)
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(xmlStr))
}

// Robots answers GET /robots.txt.
func (ah *AssetsHandler) Robots(c *gin.Context) {
	content := fmt.Sprintf("User-agent: *\nSitemap: %s/sitemap.xml\n", baseURL(c))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

// baseURL resolves the externally visible origin: the configured public
// URL when set, otherwise reconstructed from the request.
func baseURL(c *gin.Context) string {
	if public := strings.TrimRight(envutil.String("BTS_PUBLIC_URL", ""), "/"); public != "" {
		return public
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}
