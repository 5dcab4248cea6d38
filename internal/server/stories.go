package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
)

const placeholderPage = `<!DOCTYPE html>
<html><head><title>Story Viewer</title></head>
<body><h1>Story Viewer</h1>
<p>Put story_viewer.html in the web directory to use the viewer. The API is available under /api.</p>
</body></html>`

var viewerFiles = []string{"story_viewer.html", "index.html"}

func (s *Server) index(c *gin.Context) {
	if s.opts.WebDir != "" {
		for _, name := range viewerFiles {
			path := filepath.Join(s.opts.WebDir, name)
			if _, err := os.Stat(path); err == nil {
				c.File(path)
				return
			}
		}
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(placeholderPage))
}

func (s *Server) listStories(c *gin.Context) {
	summaries, err := s.store.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) getStory(c *gin.Context) {
	name := c.Param("name")
	if !story.ValidName(name) {
		abortError(c, http.StatusNotFound, "story not found")
		return
	}
	doc, err := s.store.Load(name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// --- Paragraphs ---

type pageRef struct {
	StoryName  string `json:"storyName" binding:"required"`
	PageNumber *int   `json:"pageNumber" binding:"required"`
}

type updateParagraphRequest struct {
	pageRef
	ParagraphIndex *int   `json:"paragraphIndex" binding:"required,gte=0"`
	NewText        string `json:"newText"`
}

type addParagraphRequest struct {
	pageRef
	ParagraphText string `json:"paragraphText"`
}

type deleteParagraphRequest struct {
	pageRef
	ParagraphIndex *int `json:"paragraphIndex" binding:"required,gte=0"`
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortError(c, http.StatusBadRequest, "missing or invalid fields: "+err.Error())
		return false
	}
	return true
}

func (s *Server) updateParagraph(c *gin.Context) {
	var req updateParagraphRequest
	if !bindJSON(c, &req) {
		return
	}
	_, err := s.store.Update(req.StoryName, func(doc *story.Document) error {
		return doc.UpdateParagraph(*req.PageNumber, *req.ParagraphIndex, req.NewText)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) addParagraph(c *gin.Context) {
	var req addParagraphRequest
	if !bindJSON(c, &req) {
		return
	}
	var index int
	_, err := s.store.Update(req.StoryName, func(doc *story.Document) error {
		var err error
		index, err = doc.AddParagraph(*req.PageNumber, req.ParagraphText)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "paragraphIndex": index})
}

func (s *Server) deleteParagraph(c *gin.Context) {
	var req deleteParagraphRequest
	if !bindJSON(c, &req) {
		return
	}
	var audio string
	_, err := s.store.Update(req.StoryName, func(doc *story.Document) error {
		var err error
		audio, err = doc.DeleteParagraph(*req.PageNumber, *req.ParagraphIndex)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if audio != "" {
		if err := story.RemoveMedia(s.store.AudioPath(req.StoryName, audio)); err != nil {
			logger.Warn("could not remove narration", "story", req.StoryName, "file", audio, "error", err)
		}
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}
