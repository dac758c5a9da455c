// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lmstudio provides the HTTP client for an LM Studio-compatible
// chat completion endpoint.
package lmstudio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
)

// dataPrefix marks an event line carrying a payload.
const dataPrefix = "data: "

// doneSentinel is the literal end-of-stream marker.
const doneSentinel = "[DONE]"

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses "data: " event lines off a streaming response body.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	chunkCount  int
	done        bool
}

// NewStreamReader creates a stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each text fragment.
// Blocks until the sentinel, end of input, an error, or context
// cancellation. Fragments are delivered strictly in arrival order.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					// End of input without a sentinel still completes
					// the stream.
					callback(StreamChunk{Done: true})
					return nil
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single event line. Returns nil, nil for
// lines that carry nothing of interest.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		if len(line) == 0 {
			return nil, err
		}
		// Process a final unterminated line before reporting EOF on the
		// next read.
	}

	line = strings.TrimRight(line, "\r\n")

	// Only "data: " lines carry payload; everything else (empty keep-alive
	// lines, comments) is ignored.
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, nil
	}

	payload := line[len(dataPrefix):]
	if strings.TrimSpace(payload) == doneSentinel {
		s.done = true
		return &StreamChunk{Done: true}, nil
	}

	var chunk chunkPayload
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// Malformed payloads are logged and skipped; one bad line must not
		// kill the whole generation.
		log.Printf("lmstudio: skipping malformed stream payload: %v", err)
		return nil, nil
	}

	if len(chunk.Choices) == 0 {
		return nil, nil
	}

	content := chunk.Choices[0].Delta.Content
	if content == "" {
		return nil, nil
	}

	s.accumulator.WriteString(content)
	s.chunkCount++

	return &StreamChunk{Content: content}, nil
}

// Accumulated returns all content fragments received so far, concatenated.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// ChunkCount returns the number of non-empty fragments received.
func (s *StreamReader) ChunkCount() int {
	return s.chunkCount
}

// Done reports whether the sentinel was seen.
func (s *StreamReader) Done() bool {
	return s.done
}

// =============================================================================
// STREAM ACCUMULATOR
// =============================================================================

// StreamAccumulator collects chunks into the live buffer consumed by the
// chat controller and front ends.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	content strings.Builder
	done    bool
	err     error
}

// NewStreamAccumulator creates an empty accumulator.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add processes one chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	if chunk.Err != nil {
		a.err = chunk.Err
		a.done = true
		return
	}

	a.content.WriteString(chunk.Content)

	if chunk.Done {
		a.done = true
	}
}

// Content returns the accumulated text.
func (a *StreamAccumulator) Content() string {
	return a.content.String()
}

// IsDone reports whether the stream reached a terminal chunk.
func (a *StreamAccumulator) IsDone() bool {
	return a.done
}

// Err returns the stream failure, if any.
func (a *StreamAccumulator) Err() error {
	return a.err
}

// Reset clears the accumulator for reuse.
func (a *StreamAccumulator) Reset() {
	a.content.Reset()
	a.done = false
	a.err = nil
}
