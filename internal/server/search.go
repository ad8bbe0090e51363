package server

import (
	"net/http"
	"strconv"

	"github.com/azyu/chapterstudio/internal/search"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/gin-gonic/gin"
)

// searchQuery is the query string of GET /search.
type searchQuery struct {
	Query string `form:"q"`
	Type  string `form:"type"`
	Limit string `form:"limit"`
}

func (s *Server) search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	opts := search.Options{Type: q.Type}
	if q.Limit != "" {
		n, err := strconv.Atoi(q.Limit)
		if err != nil || n < 0 {
			s.fail(c, &types.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		opts.Limit = n
	}

	hits, err := s.index.Search(c.Request.Context(), q.Query, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, hits)
}

func (s *Server) reindex(c *gin.Context) {
	n, err := s.index.Rebuild(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Search index rebuilt.", "entries": n})
}
