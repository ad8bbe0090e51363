package server

import (
	"errors"
	"net/http"

	"github.com/azyu/chapterstudio/internal/storage"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) generate(c *gin.Context) {
	var req types.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	world, err := s.world.Load(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}

	variants, err := s.gen.Generate(ctx, world, req)
	if err != nil {
		s.logger.Error("generation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, types.MessageResponse{Detail: "LLM generation failed"})
		return
	}

	rec := storage.ChapterRecord{
		ID:       s.newID(),
		Request:  req,
		Variants: variants,
	}
	if err := s.db.InsertChapter(ctx, rec); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ChapterResponse{ID: rec.ID, Variants: rec.Variants})
}

func (s *Server) chapter(c *gin.Context) {
	rec, err := s.db.Chapter(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, types.MessageResponse{Detail: "Chapter not found"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec.Response())
}

func (s *Server) chapters(c *gin.Context) {
	metas, err := s.db.ListChapters(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, metas)
}

func (s *Server) selectVariant(c *gin.Context) {
	var req types.SelectVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.db.SelectVariant(c.Request.Context(), req.ChapterID, req.VariantText); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, "Variant selected successfully.")
}

func (s *Server) saveEdit(c *gin.Context) {
	var req types.EditVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.db.SaveEdit(c.Request.Context(), req.ChapterID, req.EditedText); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, "Edited text saved.")
}
