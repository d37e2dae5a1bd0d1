package chat

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// StreamOpener starts the model call whose output is rendered.
type StreamOpener func() (*schema.StreamReader[*schema.Message], error)

// RenderStream pulls fragments one at a time, pushing the growing reply to
// display after each one. It returns the text to commit to the log. When the
// call fails at any point the partial output is dropped, ApologyMessage is
// committed instead and the failure is returned.
func RenderStream(open StreamOpener, display Display) (string, error) {
	text, err := drain(open, display)
	if err != nil {
		display.Notify(Notice{Level: NoticeError, Message: fmt.Sprintf("Error generating response: %v", err)})
		display.Commit(ApologyMessage)
		return ApologyMessage, err
	}

	display.Commit(text)
	return text, nil
}

func drain(open StreamOpener, display Display) (_ string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stream panicked: %v", r)
		}
	}()

	stream, err := open()
	if err != nil {
		return "", err
	}
	if stream == nil {
		return "", errors.New("model returned no stream")
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		full.WriteString(chunk.Content)
		display.Update(full.String() + CursorMarker)
	}
	return full.String(), nil
}
