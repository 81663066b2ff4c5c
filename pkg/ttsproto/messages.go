// Package ttsproto defines the wire protocol between the assistant and
// its speech-synthesis subprocess: length-prefixed, self-describing
// messages over a local Unix socket, one request outstanding at a time.
package ttsproto

import (
	"encoding/json"
	"fmt"

	"github.com/murmurlabs/murmur/pkg/errorsx"
)

// CommandType tags a client request.
type CommandType string

const (
	CommandGenerateAudio     CommandType = "generate_audio"
	CommandStop              CommandType = "stop"
	CommandWaitUntilFinished CommandType = "wait_until_finished"
)

// ResponseType tags a server reply.
type ResponseType string

const (
	ResponseStarted        ResponseType = "started"
	ResponseChunkGenerated ResponseType = "chunk_generated"
	ResponseFinished       ResponseType = "finished"
	ResponseStopped        ResponseType = "stopped"
	ResponseError          ResponseType = "error"
)

// Command is a request from the assistant to the synthesis process.
// Created per request and consumed once.
type Command struct {
	Type CommandType `json:"type"`
	Text string      `json:"text,omitempty"`
}

// Response is a reply from the synthesis process. A generate_audio
// session yields exactly one started followed by exactly one of
// finished or error.
type Response struct {
	Type    ResponseType `json:"type"`
	Seq     uint64       `json:"seq,omitempty"`
	Message string       `json:"message,omitempty"`
}

// GenerateAudio builds a synthesis request for text.
func GenerateAudio(text string) Command {
	return Command{Type: CommandGenerateAudio, Text: text}
}

// Stop builds a request to halt current synthesis and playback.
func Stop() Command { return Command{Type: CommandStop} }

// WaitUntilFinished builds a request that blocks until playback ends.
func WaitUntilFinished() Command { return Command{Type: CommandWaitUntilFinished} }

// Started acknowledges a generate_audio request.
func Started() Response { return Response{Type: ResponseStarted} }

// ChunkGenerated reports progress for the seq-th synthesized chunk.
func ChunkGenerated(seq uint64) Response {
	return Response{Type: ResponseChunkGenerated, Seq: seq}
}

// Finished is the successful terminal reply.
func Finished() Response { return Response{Type: ResponseFinished} }

// Stopped acknowledges a stop request.
func Stopped() Response { return Response{Type: ResponseStopped} }

// Errorf is the failure terminal reply.
func Errorf(format string, args ...any) Response {
	return Response{Type: ResponseError, Message: fmt.Sprintf(format, args...)}
}

// EncodeCommand serializes a command payload.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd.Type == "" {
		return nil, errorsx.New(errorsx.ReasonTTSProtocol, "command missing type")
	}
	return json.Marshal(cmd)
}

// DecodeCommand parses a command payload, rejecting unknown types.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, errorsx.Wrap(err, errorsx.ReasonTTSProtocol)
	}
	switch cmd.Type {
	case CommandGenerateAudio, CommandStop, CommandWaitUntilFinished:
		return cmd, nil
	default:
		return Command{}, errorsx.New(errorsx.ReasonTTSProtocol,
			fmt.Sprintf("unknown command type %q", cmd.Type))
	}
}

// EncodeResponse serializes a response payload.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp.Type == "" {
		return nil, errorsx.New(errorsx.ReasonTTSProtocol, "response missing type")
	}
	return json.Marshal(resp)
}

// DecodeResponse parses a response payload, rejecting unknown types.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, errorsx.Wrap(err, errorsx.ReasonTTSProtocol)
	}
	switch resp.Type {
	case ResponseStarted, ResponseChunkGenerated, ResponseFinished, ResponseStopped, ResponseError:
		return resp, nil
	default:
		return Response{}, errorsx.New(errorsx.ReasonTTSProtocol,
			fmt.Sprintf("unknown response type %q", resp.Type))
	}
}
