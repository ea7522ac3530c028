// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the messages exchanged with a remote agent service.
// Messages travel as google.protobuf.Struct values so that client and server
// need no generated code.
package model

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the gRPC service hosting the agent.
	ServiceName = "sqlchat.AgentBridge"
	// RunMethod is the server-streaming method answering one question.
	RunMethod = "/" + ServiceName + "/Run"
)

// FrameType tags a server message.
type FrameType string

const (
	FrameStep  FrameType = "step"
	FrameFinal FrameType = "final"
	FrameError FrameType = "error"
)

// Request asks the agent one question.
type Request struct {
	Query     string
	SessionID string
}

// Frame is one message of the answer stream. A stream carries any number of
// step frames followed by exactly one final or error frame.
type Frame struct {
	Type FrameType
	Text string
}

// Struct encodes the request.
func (r Request) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"query":      r.Query,
		"session_id": r.SessionID,
	})
}

// RequestFromStruct decodes a request; the query must be non-blank.
func RequestFromStruct(s *structpb.Struct) (Request, error) {
	fields := s.GetFields()
	req := Request{
		Query:     fields["query"].GetStringValue(),
		SessionID: fields["session_id"].GetStringValue(),
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, errors.New("query is required")
	}
	return req, nil
}

// Struct encodes the frame.
func (f Frame) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"type": string(f.Type),
		"text": f.Text,
	})
}

// FrameFromStruct decodes a frame and rejects unknown types.
func FrameFromStruct(s *structpb.Struct) (Frame, error) {
	fields := s.GetFields()
	f := Frame{
		Type: FrameType(fields["type"].GetStringValue()),
		Text: fields["text"].GetStringValue(),
	}
	switch f.Type {
	case FrameStep, FrameFinal, FrameError:
		return f, nil
	default:
		return f, fmt.Errorf("unknown frame type %q", f.Type)
	}
}
