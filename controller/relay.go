package controller

import (
	"context"
	"io"
	"net/http"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/e2bridge/e2bridge/common/ctxkey"
	"github.com/e2bridge/e2bridge/common/helper"
	"github.com/e2bridge/e2bridge/common/render"
	"github.com/e2bridge/e2bridge/middleware"
	"github.com/e2bridge/e2bridge/relay/adaptor/enginelabs"
	relaymodel "github.com/e2bridge/e2bridge/relay/model"
)

// Bridge is the relay backend the HTTP handlers serve.
type Bridge interface {
	ChatCompletion(ctx context.Context, req *relaymodel.GeneralOpenAIRequest) (*enginelabs.Stream, error)
	Models() *relaymodel.OpenAIModelList
}

// Controller holds the handlers of the OpenAI-compatible API.
type Controller struct {
	bridge     Bridge
	appName    string
	appVersion string
}

func New(bridge Bridge, appName, appVersion string) *Controller {
	return &Controller{
		bridge:     bridge,
		appName:    appName,
		appVersion: appVersion,
	}
}

// ChatCompletions relays a chat completion as an SSE stream. Every failure
// after the stream has started is reported in-stream by the bridge.
func (ctl *Controller) ChatCompletions(c *gin.Context) {
	lg := gmw.GetLogger(c)

	req := new(relaymodel.GeneralOpenAIRequest)
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		middleware.AbortWithError(c, http.StatusBadRequest, errors.Wrap(err, "invalid chat completion request"))
		return
	}
	if !req.Stream {
		lg.Debug("non-streaming request, responding with a stream anyway")
	}

	stream, err := ctl.bridge.ChatCompletion(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, enginelabs.ErrEmptyMessages) {
			status = http.StatusBadRequest
		}
		middleware.AbortWithError(c, status, err)
		return
	}

	c.Set(ctxkey.RequestModel, stream.Model)
	c.Set(ctxkey.CompletionId, stream.ID)
	lg = lg.With(
		zap.String("completion_id", stream.ID),
		zap.String("model", stream.Model),
		zap.String("request_id", c.GetString(helper.RequestIdKey)),
	)
	lg.Debug("chat completion stream started", zap.Int("messages", len(req.Messages)))

	render.SetEventStreamHeaders(c)
	c.Status(http.StatusOK)

	for chunk := range stream.Chunks {
		if err := render.ObjectData(c, chunk); err != nil {
			lg.Info("client stopped reading the stream", zap.Error(err))
			// the relay stops once the request context ends; drain until then
			for range stream.Chunks {
			}
			return
		}
	}
	if err := render.DoneData(c); err != nil {
		lg.Info("failed to write stream terminator", zap.Error(err))
	}
}
