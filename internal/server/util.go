package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/loykin/acqsim/internal/acquisition"
)

// maxSelectorBody bounds request bodies; a selector is a few dozen bytes.
const maxSelectorBody = 1 << 16

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	bp = strings.TrimRight(bp, "/")
	return bp
}

// decodeSelector parses an optional JSON selector body. An empty or
// whitespace-only body selects the default run.
func decodeSelector(body []byte) (acquisition.Selector, error) {
	var sel acquisition.Selector
	if len(bytes.TrimSpace(body)) == 0 {
		return sel, nil
	}
	if err := binding.JSON.BindBody(body, &sel); err != nil {
		return sel, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := acquisition.ValidateRunID(sel.RunID); err != nil {
		return sel, err
	}
	return sel, nil
}

func readSelector(c *gin.Context) (acquisition.Selector, error) {
	if c.Request.Body == nil {
		return acquisition.Selector{}, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSelectorBody+1))
	if err != nil {
		return acquisition.Selector{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxSelectorBody {
		return acquisition.Selector{}, errors.New("request body too large")
	}
	return decodeSelector(body)
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}
