package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
	"github.com/jmylchreest/iwsaver/internal/tts"
)

type modelResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Backend     string   `json:"backend"`
	Speakers    []string `json:"speakers"`
}

func (s *Server) ttsModels(c *gin.Context) {
	if s.voices == nil {
		c.JSON(http.StatusOK, []modelResponse{})
		return
	}
	out := []modelResponse{}
	for _, m := range s.voices.Models() {
		speakers, err := s.voices.Speakers(c.Request.Context(), m.Name)
		if err != nil {
			logger.Warn("could not list speakers", "model", m.Name, "error", err)
		}
		if speakers == nil {
			speakers = []string{}
		}
		out = append(out, modelResponse{
			Name:        m.Name,
			Description: m.Description,
			Backend:     m.Backend,
			Speakers:    speakers,
		})
	}
	c.JSON(http.StatusOK, out)
}

type generateRequest struct {
	pageRef
	ParagraphIndex *int   `json:"paragraphIndex" binding:"required,gte=0"`
	Voice          string `json:"voice" binding:"required"`
}

func (s *Server) ttsGenerate(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, &req) {
		return
	}
	if s.narrator == nil {
		respondError(c, errNarrationDisabled)
		return
	}

	res, err := s.narrator.Paragraph(c.Request.Context(), req.StoryName, *req.PageNumber, *req.ParagraphIndex, req.Voice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"filename": res.Filename,
		"url":      "/audio/" + req.StoryName + "/" + res.Filename,
	})
}

type previewRequest struct {
	Text      string `json:"text" binding:"required"`
	Voice     string `json:"voice" binding:"required"`
	StoryName string `json:"storyName"`
}

func (s *Server) ttsPreview(c *gin.Context) {
	var req previewRequest
	if !bindJSON(c, &req) {
		return
	}
	if s.narrator == nil {
		respondError(c, errNarrationDisabled)
		return
	}

	res, err := s.narrator.Preview(c.Request.Context(), req.StoryName, req.Voice, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": "/audio/previews/" + res.Filename})
}

// --- Voice nicknames ---

type voiceRequest struct {
	Nickname string `json:"nickname" binding:"required"`
	Voice    string `json:"voice" binding:"required"`
}

func (s *Server) listVoices(c *gin.Context) {
	doc, err := s.store.Load(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	nicknames := doc.VoiceNicknames
	if nicknames == nil {
		nicknames = map[string]string{}
	}
	c.JSON(http.StatusOK, gin.H{"voiceNicknames": nicknames})
}

func (s *Server) setVoice(c *gin.Context) {
	var req voiceRequest
	if !bindJSON(c, &req) {
		return
	}
	var err error
	if s.voices != nil {
		_, err = s.voices.CheckVoice(req.Voice)
	} else {
		_, err = tts.ParseVoice(req.Voice)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := s.store.Update(c.Param("name"), func(doc *story.Document) error {
		doc.SetVoiceNickname(req.Nickname, req.Voice)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "voiceNicknames": doc.VoiceNicknames})
}

func (s *Server) deleteVoice(c *gin.Context) {
	nickname := c.Param("nickname")
	_, err := s.store.Update(c.Param("name"), func(doc *story.Document) error {
		if !doc.DeleteVoiceNickname(nickname) {
			return fmt.Errorf("%w: %s", errVoiceNotFound, nickname)
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}
