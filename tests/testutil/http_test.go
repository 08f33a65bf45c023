package testutil

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yazilimxyz/marketplace/internal/interfaces/http/dto"
)

func echoEngine() *gin.Engine {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_JSON", err.Error(), ""))
			return
		}
		body["auth"] = c.GetHeader("Authorization")
		c.JSON(http.StatusCreated, dto.NewSuccessResponse(body))
	})
	engine.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "nothing here", "req-1"))
	})
	return engine
}

func TestAPIClient_PostWithToken(t *testing.T) {
	client := NewAPIClient(t, echoEngine()).WithToken("abc")

	resp := client.Post("/echo", map[string]any{"name": "shirt"})

	AssertSuccess(t, resp, http.StatusCreated)
	data := DecodeData[map[string]string](t, resp)
	assert.Equal(t, "shirt", data["name"])
	assert.Equal(t, "Bearer abc", data["auth"])
}

func TestAPIClient_Anonymous(t *testing.T) {
	base := NewAPIClient(t, echoEngine())
	_ = base.WithToken("abc")

	resp := base.Post("/echo", map[string]any{})

	AssertSuccess(t, resp, http.StatusCreated)
	assert.Equal(t, "", DecodeData[map[string]string](t, resp)["auth"], "WithToken must not mutate the receiver")
}

func TestAPIClient_Error(t *testing.T) {
	resp := NewAPIClient(t, echoEngine()).Get("/missing")

	AssertError(t, resp, http.StatusNotFound, "NOT_FOUND")
	assert.Equal(t, "req-1", resp.Envelope.Error.RequestID)
}
