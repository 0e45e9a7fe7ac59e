package main

import (
	"context"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/playmix/playmix/pkg/bundle"
	"github.com/playmix/playmix/pkg/model"
	"github.com/playmix/playmix/pkg/player"
	"github.com/playmix/playmix/pkg/playlist"
	"github.com/playmix/playmix/pkg/provider"
)

type libraryService interface {
	Create(ctx context.Context, collection *model.Collection) (string, error)
	Get(ctx context.Context, id string) (*model.Collection, error)
	List(ctx context.Context) ([]*model.Collection, error)
	Update(ctx context.Context, collection *model.Collection) error
	Delete(ctx context.Context, id string) error
}

type navigator interface {
	Next(ctx context.Context, collection *model.Collection, req playlist.NavRequest) (playlist.Position, error)
	MaybeRefresh(ctx context.Context, collection *model.Collection, remainingSeconds float64)
}

type validator interface {
	ValidateListID(ctx context.Context, listID string) (string, error)
	ValidateChannelID(ctx context.Context, channelID string) (string, error)
	ValidateChannelHandle(ctx context.Context, handle string) (string, string, error)
}

type controller interface {
	Play(ctx context.Context, itemID string) error
	Current() (string, error)
}

// MakeHandlers wires the REST surface over the library, the navigation
// session, the provider-backed validation and the player controller.
func MakeHandlers(library libraryService, nav navigator, validate validator, ctrl controller) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	r.POST("/api/collections", func(c *gin.Context) {
		collection := &model.Collection{}
		if err := c.BindJSON(collection); err != nil {
			c.JSON(badRequest(err))
			return
		}

		id, err := library.Create(c.Request.Context(), collection)
		if err != nil {
			c.JSON(internalError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	r.GET("/api/collections", func(c *gin.Context) {
		collections, err := library.List(c.Request.Context())
		if err != nil {
			c.JSON(internalError(err))
			return
		}

		c.JSON(http.StatusOK, collections)
	})

	r.GET("/api/collections/:id", func(c *gin.Context) {
		collection, err := library.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		c.JSON(http.StatusOK, collection)
	})

	r.PUT("/api/collections/:id", func(c *gin.Context) {
		collection := &model.Collection{}
		if err := c.BindJSON(collection); err != nil {
			c.JSON(badRequest(err))
			return
		}

		collection.ID = c.Param("id")
		if err := library.Update(c.Request.Context(), collection); err != nil {
			c.JSON(errorStatus(err))
			return
		}

		c.JSON(http.StatusOK, collection)
	})

	r.DELETE("/api/collections/:id", func(c *gin.Context) {
		if err := library.Delete(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(errorStatus(err))
			return
		}

		c.Status(http.StatusNoContent)
	})

	r.GET("/api/collections/:id/next", func(c *gin.Context) {
		collection, err := library.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		req, err := navRequest(c)
		if err != nil {
			c.JSON(badRequest(err))
			return
		}

		position, err := nav.Next(c.Request.Context(), collection, req)
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		c.JSON(http.StatusOK, position)
	})

	r.POST("/api/collections/:id/play", func(c *gin.Context) {
		collection, err := library.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		req, err := navRequest(c)
		if err != nil {
			c.JSON(badRequest(err))
			return
		}

		position, err := nav.Next(c.Request.Context(), collection, req)
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		if err := ctrl.Play(c.Request.Context(), position.ItemID); err != nil {
			c.JSON(internalError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"position": position,
			"watchUrl": player.WatchURL(position.ItemID),
		})
	})

	r.GET("/api/player/current", func(c *gin.Context) {
		itemID, err := ctrl.Current()
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"itemId":   itemID,
			"watchUrl": player.WatchURL(itemID),
		})
	})

	r.POST("/api/collections/:id/refresh", func(c *gin.Context) {
		collection, err := library.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		remaining := 0.0
		if raw := c.Query("remaining"); raw != "" {
			remaining, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				c.JSON(badRequest(errors.Wrap(err, "invalid remaining")))
				return
			}
		}

		nav.MaybeRefresh(c.Request.Context(), collection, remaining)
		c.Status(http.StatusAccepted)
	})

	r.GET("/api/validate", func(c *gin.Context) {
		var (
			ctx   = c.Request.Context()
			id    = c.Query("id")
			title string
			err   error
		)

		switch c.Query("kind") {
		case "playlist":
			title, err = validate.ValidateListID(ctx, id)
		case "channel":
			title, err = validate.ValidateChannelID(ctx, id)
		case "handle":
			id, title, err = validate.ValidateChannelHandle(ctx, id)
		default:
			c.JSON(badRequest(errors.New("kind must be playlist, channel or handle")))
			return
		}

		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id, "title": title})
	})

	r.GET("/api/collections/:id/export", func(c *gin.Context) {
		collection, err := library.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		blob, err := bundle.Export(collection)
		if err != nil {
			c.JSON(internalError(err))
			return
		}

		c.String(http.StatusOK, blob)
	})

	r.POST("/api/import", func(c *gin.Context) {
		blob, err := ioutil.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(badRequest(err))
			return
		}

		collection, err := bundle.Import(string(blob))
		if err != nil {
			c.JSON(errorStatus(err))
			return
		}

		id, err := library.Create(c.Request.Context(), collection)
		if err != nil {
			c.JSON(internalError(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	return r
}

func navRequest(c *gin.Context) (playlist.NavRequest, error) {
	req := playlist.NavRequest{
		Current: c.Query("current"),
		Step:    1,
		Shuffle: c.Query("shuffle") == "true",
	}

	if raw := c.Query("step"); raw != "" {
		step, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.Wrap(err, "invalid step")
		}
		req.Step = step
	}

	if raw := c.Query("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, errors.Wrap(err, "invalid seed")
		}
		req.Seed = seed
	}

	return req, nil
}

func errorStatus(err error) (int, interface{}) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "not found"}
	case errors.Is(err, model.ErrEmptyCollection):
		return http.StatusConflict, gin.H{"error": "collection has no items"}
	case errors.Is(err, model.ErrMalformed):
		return badRequest(err)
	default:
		return internalError(err)
	}
}

func badRequest(err error) (int, interface{}) {
	return http.StatusBadRequest, gin.H{"error": err.Error()}
}

func internalError(err error) (int, interface{}) {
	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}

var (
	_ validator  = provider.Client(nil)
	_ controller = player.Controller(nil)
)
