package api

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/session"
	"github.com/elevend0g/vicw/pkg/tokens"
)

// minChunkChars is the smallest chunk the splitter aims for. Scene sections
// are merged until they reach it; only a document shorter than this in total
// produces a smaller chunk.
const minChunkChars = 500

var (
	// sceneBreakRE matches markdown horizontal rules of three or more
	// hyphens on their own line.
	sceneBreakRE = regexp.MustCompile(`\n---+\n`)

	// headerRE captures scene header text from level-3 and level-4 markdown
	// headings, tolerating table-style pipe prefixes.
	headerRE = regexp.MustCompile(`(?m)^#{3,4}\s*\|?\s*([^|\n]+)`)
)

// splitDocument cuts a markdown document at scene breaks and regroups the
// sections into chunks of at least minChunkChars. A short tail is merged
// into the previous chunk instead of being emitted undersized or lost.
func splitDocument(document string) []string {
	var chunks []string
	var current string

	for _, section := range sceneBreakRE.Split(document, -1) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if current == "" {
			current = section
		} else {
			current += "\n\n" + section
		}
		if len(current) >= minChunkChars {
			chunks = append(chunks, current)
			current = ""
		}
	}

	if current != "" {
		if len(chunks) > 0 && len(current) < minChunkChars {
			chunks[len(chunks)-1] += "\n\n" + current
		} else {
			chunks = append(chunks, current)
		}
	}
	return chunks
}

// chunkHeaders joins the scene headers found in a chunk, for metadata.
func chunkHeaders(chunk string) string {
	matches := headerRE.FindAllStringSubmatch(chunk, -1)
	if len(matches) == 0 {
		return ""
	}
	headers := make([]string, 0, len(matches))
	for _, m := range matches {
		headers = append(headers, strings.TrimSpace(m[1]))
	}
	return strings.Join(headers, ", ")
}

// ingestHandler handles POST /ingest.
// Splits a document into chunks and enqueues one synthetic offload job per
// chunk, feeding external memory directly without touching any live window.
func (s *Server) ingestHandler(c *echo.Context) error {
	// 1. Bind and validate the request
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Document) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document must not be empty")
	}

	// 2. Split into scene-aligned chunks
	chunks := splitDocument(req.Document)

	// 3. Enqueue a job per chunk; a full queue drops the remainder of the
	// document rather than blocking the request
	var resp IngestResponse
	now := time.Now().UTC()
	for i, text := range chunks {
		metadata := make(map[string]string, len(req.Metadata)+3)
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = strconv.Itoa(i)
		metadata["total_chunks"] = strconv.Itoa(len(chunks))
		if headers := chunkHeaders(text); headers != "" {
			metadata["headers"] = headers
		}

		job := models.OffloadJob{
			JobID:        models.NewJobID(),
			ChunkID:      models.NewChunkID(),
			Namespace:    session.DefaultID,
			FullText:     text,
			TokenCount:   tokens.Estimate(text),
			MessageCount: 1,
			CreatedAt:    now,
			Metadata:     metadata,
		}
		if s.queue.Enqueue(job) {
			resp.ChunksEnqueued++
		} else {
			resp.ChunksDropped++
			s.metrics.QueueDropped()
		}
	}
	s.metrics.SetQueueDepth(s.queue.Len())

	return c.JSON(http.StatusOK, &resp)
}
