package llm

import (
	"bufio"
	"bytes"
	"io"
)

const maxLineSize = 1 << 20

// NewLineScanner returns a scanner sized for long streamed JSON lines.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// SSEDone is the OpenAI end-of-stream sentinel.
const SSEDone = "[DONE]"

// SSEData returns the payload of a server-sent-events "data:" line. Comments,
// blank keep-alive lines and other event fields report ok=false.
func SSEData(line []byte) (data []byte, ok bool) {
	line = bytes.TrimRight(line, "\r")
	if !bytes.HasPrefix(line, []byte("data:")) {
		return nil, false
	}
	data = bytes.TrimSpace(line[len("data:"):])
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}
