package chat

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/provider"
)

// sseSink 以 text/event-stream 將片段逐一寫出並立即 flush
type sseSink struct {
	c       *gin.Context
	started bool
}

func newSSESink(c *gin.Context) *sseSink {
	return &sseSink{c: c}
}

func (s *sseSink) Start() error {
	header := s.c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	s.c.Status(http.StatusOK)
	s.c.Writer.WriteHeaderNow()
	s.c.Writer.Flush()
	s.started = true
	return nil
}

func (s *sseSink) Send(fragment string) error {
	return s.write(fragment)
}

func (s *sseSink) Fail(message string) error {
	return s.write("[ERROR: " + message + "]")
}

func (s *sseSink) Done() error {
	return s.write(provider.DoneMarker)
}

// write 輸出一個事件；含換行的片段拆成多行 data，客戶端會以 \n 接回
func (s *sseSink) write(data string) error {
	var b strings.Builder
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if _, err := s.c.Writer.WriteString(b.String()); err != nil {
		return fmt.Errorf("write SSE event: %w", err)
	}
	s.c.Writer.Flush()
	return nil
}
