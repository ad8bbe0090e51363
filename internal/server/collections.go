package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type record interface {
	RecordID() string
	Validate() error
}

type table[R record] interface {
	List(ctx context.Context) ([]R, error)
	Create(ctx context.Context, id string, r R) error
	Update(ctx context.Context, id string, r R) error
	Delete(ctx context.Context, id string) error
}

// registerCollection mounts list, create, update and delete for one story
// collection under path. noun names a record in acknowledgements.
func registerCollection[R record](r gin.IRouter, s *Server, path string, t table[R], noun string) {
	g := r.Group(path)

	g.GET("", func(c *gin.Context) {
		items, err := t.List(c.Request.Context())
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	})

	g.POST("", func(c *gin.Context) {
		var rec R
		if err := c.ShouldBindJSON(&rec); err != nil {
			badRequest(c, err)
			return
		}
		id := rec.RecordID()
		if id == "" {
			id = s.newID()
		}
		if err := rec.Validate(); err != nil {
			s.fail(c, err)
			return
		}
		if err := t.Create(c.Request.Context(), id, rec); err != nil {
			s.fail(c, err)
			return
		}
		ok(c, noun+" created.")
	})

	g.PUT("/:id", func(c *gin.Context) {
		var rec R
		if err := c.ShouldBindJSON(&rec); err != nil {
			badRequest(c, err)
			return
		}
		if err := rec.Validate(); err != nil {
			s.fail(c, err)
			return
		}
		if err := t.Update(c.Request.Context(), c.Param("id"), rec); err != nil {
			s.fail(c, err)
			return
		}
		ok(c, noun+" updated.")
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if err := t.Delete(c.Request.Context(), c.Param("id")); err != nil {
			s.fail(c, err)
			return
		}
		ok(c, noun+" deleted.")
	})
}
