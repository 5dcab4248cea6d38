package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
)

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

func allowedImage(filename string) bool {
	return allowedImageExts[strings.ToLower(filepath.Ext(filename))]
}

// uploadName gives an upload a collision free name keeping its extension.
func uploadName(original string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(filepath.Ext(original))
}

type imageRef struct {
	pageRef
	ImageIndex *int `json:"imageIndex" binding:"required,gte=0"`
}

type reorderImageRequest struct {
	imageRef
	Direction story.Direction `json:"direction" binding:"required,oneof=up down"`
}

func (s *Server) deleteImage(c *gin.Context) {
	var req imageRef
	if !bindJSON(c, &req) {
		return
	}
	var filename string
	_, err := s.store.Update(req.StoryName, func(doc *story.Document) error {
		var err error
		filename, err = doc.DeleteImage(*req.PageNumber, *req.ImageIndex)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if err := story.RemoveMedia(s.store.ImagePath(req.StoryName, filename)); err != nil {
		logger.Warn("could not remove image file", "story", req.StoryName, "file", filename, "error", err)
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}

func (s *Server) reorderImage(c *gin.Context) {
	var req reorderImageRequest
	if !bindJSON(c, &req) {
		return
	}
	var newIndex int
	_, err := s.store.Update(req.StoryName, func(doc *story.Document) error {
		var err error
		newIndex, err = doc.MoveImage(*req.PageNumber, *req.ImageIndex, req.Direction)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "new_index": newIndex})
}

// uploadTarget reads the story and page form fields shared by the upload endpoints.
func uploadTarget(c *gin.Context) (string, int, bool) {
	name := c.PostForm("storyName")
	pageStr := c.PostForm("pageNumber")
	if name == "" || pageStr == "" {
		abortError(c, http.StatusBadRequest, "missing required fields")
		return "", 0, false
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		abortError(c, http.StatusBadRequest, "invalid page number")
		return "", 0, false
	}
	return name, page, true
}

func (s *Server) addImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		abortError(c, http.StatusBadRequest, "no image file provided")
		return
	}
	name, page, ok := uploadTarget(c)
	if !ok {
		return
	}
	if file.Filename == "" {
		abortError(c, http.StatusBadRequest, "no file selected")
		return
	}
	if !allowedImage(file.Filename) {
		abortError(c, http.StatusBadRequest, "file type not allowed")
		return
	}

	var saved string
	_, err = s.store.Update(name, func(doc *story.Document) error {
		if _, err := doc.Page(page); err != nil {
			return err
		}
		filename, err := s.saveUpload(c, name, file)
		if err != nil {
			return err
		}
		saved = filename
		return doc.AddImages(page, filename)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "filename": saved})
}

type bulkUploadResult struct {
	Success       bool     `json:"success"`
	UploadedCount int      `json:"uploaded_count"`
	FailedCount   int      `json:"failed_count"`
	UploadedFiles []string `json:"uploaded_files"`
	FailedFiles   []string `json:"failed_files"`
}

func (s *Server) bulkAddImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abortError(c, http.StatusBadRequest, "no image files provided")
		return
	}
	files := append(form.File["images"], form.File["images[]"]...)
	if len(files) == 0 {
		abortError(c, http.StatusBadRequest, "no image files provided")
		return
	}
	name, page, ok := uploadTarget(c)
	if !ok {
		return
	}

	result := bulkUploadResult{Success: true, UploadedFiles: []string{}, FailedFiles: []string{}}
	_, err = s.store.Update(name, func(doc *story.Document) error {
		if _, err := doc.Page(page); err != nil {
			return err
		}
		for _, f := range files {
			if f.Filename == "" {
				continue
			}
			if !allowedImage(f.Filename) {
				result.FailedFiles = append(result.FailedFiles, f.Filename+" (invalid file type)")
				continue
			}
			filename, err := s.saveUpload(c, name, f)
			if err != nil {
				result.FailedFiles = append(result.FailedFiles, fmt.Sprintf("%s (save error: %v)", f.Filename, err))
				continue
			}
			result.UploadedFiles = append(result.UploadedFiles, filename)
		}
		return doc.AddImages(page, result.UploadedFiles...)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	result.UploadedCount = len(result.UploadedFiles)
	result.FailedCount = len(result.FailedFiles)
	c.JSON(http.StatusOK, result)
}

func (s *Server) saveUpload(c *gin.Context, storyName string, file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.store.ImageDir(storyName), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	filename := uploadName(file.Filename)
	if err := c.SaveUploadedFile(file, s.store.ImagePath(storyName, filename)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	logger.Info("image uploaded", "story", storyName, "file", filename, "original", file.Filename)
	return filename, nil
}

// --- Media files ---

func (s *Server) serveImage(c *gin.Context) {
	s.serveMedia(c, "image", s.store.ImagePath)
}

// serveAudio also serves voice previews, which live under the "previews" story.
func (s *Server) serveAudio(c *gin.Context) {
	s.serveMedia(c, "audio", s.store.AudioPath)
}

func (s *Server) serveMedia(c *gin.Context, kind string, pathFor func(name, file string) string) {
	name, file := c.Param("story"), c.Param("file")
	if !story.ValidName(name) || file != filepath.Base(file) {
		abortError(c, http.StatusNotFound, kind+" not found")
		return
	}
	path := pathFor(name, file)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		abortError(c, http.StatusNotFound, kind+" not found")
		return
	}
	c.File(path)
}
