// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge hosts an agent.Gateway as a gRPC service and connects to
// one. The wire format lives in model; the client in grpcclient.
package bridge

import (
	"context"
	"errors"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"sqlchat/cli/internal/agent"
	"sqlchat/cli/internal/bridge/grpcclient"
	"sqlchat/cli/internal/bridge/model"
	"sqlchat/cli/internal/logging"
)

// Connect returns a remote Gateway for addr.
func Connect(addr string, opts ...grpcclient.Option) (*grpcclient.Client, error) {
	return grpcclient.Dial(addr, opts...)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: model.ServiceName,
	HandlerType: (*agent.Gateway)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Run",
		Handler:       runHandler,
		ServerStreams: true,
	}},
	Metadata: "sqlchat/agent_bridge",
}

// Register exposes gw on s.
func Register(s *grpc.Server, gw agent.Gateway) {
	s.RegisterService(&serviceDesc, gw)
}

func runHandler(srv any, stream grpc.ServerStream) error {
	gw := srv.(agent.Gateway)

	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	req, err := model.RequestFromStruct(in)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	var sendErr error
	steps := agent.ObserverFunc(func(text string) {
		if sendErr == nil {
			sendErr = send(stream, model.Frame{Type: model.FrameStep, Text: text})
		}
	})
	answer, err := gw.Run(stream.Context(), req.Query, steps)
	if sendErr != nil {
		return sendErr
	}
	if err != nil {
		return send(stream, model.Frame{Type: model.FrameError, Text: err.Error()})
	}
	return send(stream, model.Frame{Type: model.FrameFinal, Text: answer})
}

func send(stream grpc.ServerStream, f model.Frame) error {
	msg, err := f.Struct()
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.SendMsg(msg)
}

// Serve runs the agent service on lis until ctx is cancelled.
func Serve(ctx context.Context, lis net.Listener, gw agent.Gateway, log *logrus.Entry) error {
	if log == nil {
		log = logging.Discard()
	}
	s := grpc.NewServer(grpc.StreamInterceptor(logStreams(log)))
	Register(s, gw)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()
	log.WithField("addr", lis.Addr().String()).Info("agent service listening")
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func logStreams(log *logrus.Entry) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		entry := log.WithField("method", info.FullMethod)
		if md, ok := metadata.FromIncomingContext(ss.Context()); ok {
			if ids := md.Get("x-session-id"); len(ids) > 0 {
				entry = entry.WithField("session", ids[0])
			}
		}
		err := handler(srv, ss)
		if err != nil {
			entry.WithError(err).Warn("stream failed")
		} else {
			entry.Debug("stream done")
		}
		return err
	}
}
