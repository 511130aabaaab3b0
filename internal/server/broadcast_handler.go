package server

import (
	"bufio"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/beaconhq/beacon/internal/platform"
	"github.com/beaconhq/beacon/internal/service"
)

// handleDispatchBroadcast accepts a multipart dispatch request: recipients
// from an uploaded file and/or an inline comma-separated list, plus the
// message content. The response is synchronous; fan-out runs detached.
func (s *Server) handleDispatchBroadcast(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	createdBy, err := strconv.ParseUint(c.PostForm("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var sources [][]string

	if fileHeader, err := c.FormFile("recipients_file"); err == nil {
		numbers, err := readRecipientsFile(fileHeader)
		if err != nil {
			s.Logger.Warn("Failed to read recipients file", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read recipients file"})
			return
		}
		sources = append(sources, numbers)
	}

	if inline := c.PostForm("numbers"); inline != "" {
		sources = append(sources, strings.Split(inline, ","))
	}

	req := service.DispatchRequest{
		Name:      name,
		CreatedBy: uint(createdBy),
		Sources:   sources,
		Body:      c.PostForm("body"),
	}

	mode := c.PostForm("mode")
	if tmplName := c.PostForm("template_name"); tmplName != "" && mode != "text" && mode != "media" {
		language := c.PostForm("template_language")
		if language == "" {
			language = "en"
		}
		req.Template = &platform.TemplateMessage{
			Name:      tmplName,
			Language:  language,
			Variables: splitNonEmpty(c.PostForm("template_variables")),
		}
	}
	if mediaURL := c.PostForm("media_url"); mediaURL != "" && mode != "text" {
		req.Media = &platform.MediaMessage{
			URL:     mediaURL,
			Kind:    c.PostForm("media_kind"),
			Caption: c.PostForm("media_caption"),
		}
	}

	result, _, err := s.Dispatcher.Dispatch(c.Request.Context(), req)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   validationErr.Message,
				"invalid": validationErr.Invalid,
			})
			return
		}
		s.Logger.Error("Failed to dispatch broadcast", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to dispatch broadcast"})
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// readRecipientsFile reads one number per line; lines may also carry
// comma-separated entries. A leading header line like "phone" is skipped.
func readRecipientsFile(fileHeader *multipart.FileHeader) ([]string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var numbers []string
	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			if isHeaderLine(line) {
				continue
			}
		}
		for _, field := range strings.Split(line, ",") {
			if field = strings.TrimSpace(field); field != "" {
				numbers = append(numbers, field)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return numbers, nil
}

func isHeaderLine(line string) bool {
	lowered := strings.ToLower(line)
	return strings.Contains(lowered, "phone") || strings.Contains(lowered, "number") || strings.Contains(lowered, "recipient")
}

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
