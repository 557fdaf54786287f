package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
	"github.com/dmitrijs2005/audiokeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) uploadText(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.abort(c, fmt.Errorf("%w: file is required", common.ErrorInvalidInput))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.abort(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, services.MaxTextSize+1))
	if err != nil {
		s.abort(c, fmt.Errorf("read upload: %w", err))
		return
	}

	actor, _ := currentUser(c)
	text, err := s.audio.UploadText(c.Request.Context(), actor, fh.Filename, content)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filename": fh.Filename, "content": text})
}

func (s *HTTPServer) synthesize(c *gin.Context) {
	var req synthesizeRequest
	if err := c.ShouldBind(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	actor, _ := currentUser(c)
	path, err := s.audio.Synthesize(c.Request.Context(), actor, req.Text, models.Emotion(*req.EmoType))
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audio_path": path})
}

func (s *HTTPServer) saveAudio(c *gin.Context) {
	var req saveAudioRequest
	if err := c.ShouldBind(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	actor, _ := currentUser(c)
	audio, err := s.audio.Save(c.Request.Context(), actor, models.Emotion(*req.EmoType), req.AudioPath)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, audio)
}

func (s *HTTPServer) listAudio(c *gin.Context) {
	actor, _ := currentUser(c)
	list, err := s.audio.List(c.Request.Context(), actor)
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (s *HTTPServer) deleteAudio(c *gin.Context) {
	id, ok := s.idParam(c)
	if !ok {
		return
	}

	actor, _ := currentUser(c)
	if err := s.audio.Delete(c.Request.Context(), actor, id); err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Audio deleted"})
}
