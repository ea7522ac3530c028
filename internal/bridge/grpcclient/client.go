// Copyright (c) 2025 Sqlchat
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpcclient runs questions against a remote agent service over a
// gRPC server stream. The Client satisfies agent.Gateway, so the chat loop
// cannot tell a remote agent from a local one.
package grpcclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"sqlchat/cli/internal/agent"
	"sqlchat/cli/internal/bridge/model"
	sqlerrors "sqlchat/cli/internal/errors"
	"sqlchat/cli/internal/logging"
)

// Client is a connection to a remote agent service.
type Client struct {
	conn      *grpc.ClientConn
	sessionID string

	insecure bool
	dialer   func(context.Context, string) (net.Conn, error)
	timeout  time.Duration
	log      *logrus.Entry
}

// Option customizes a Client.
type Option func(*Client)

// WithInsecure disables TLS. Meant for agents on localhost.
func WithInsecure() Option { return func(c *Client) { c.insecure = true } }

// WithDialer replaces the network dialer; used with in-memory listeners.
func WithDialer(d func(context.Context, string) (net.Conn, error)) Option {
	return func(c *Client) { c.dialer = d }
}

// WithTimeout bounds a single question. Zero means no limit.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *logrus.Entry) Option { return func(c *Client) { c.log = l } }

// Dial prepares a client for addr. The connection is established lazily on
// the first question. Without a port, 443 is assumed.
func Dial(addr string, opts ...Option) (*Client, error) {
	c := &Client{sessionID: uuid.NewString(), log: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}

	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	target := addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		target = net.JoinHostPort(addr, "443")
	}

	var creds credentials.TransportCredentials
	if c.insecure {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if c.dialer != nil {
		dialOpts = append(dialOpts, grpc.WithContextDialer(c.dialer))
		target = "passthrough:///" + addr
	}

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, sqlerrors.Wrap(sqlerrors.AgentFailed, "dial agent service", err)
	}
	c.conn = conn
	c.log.WithFields(logrus.Fields{"target": target, "session": c.sessionID}).Debug("agent client ready")
	return c, nil
}

// SessionID identifies this client's conversation to the service.
func (c *Client) SessionID() string { return c.sessionID }

// Run sends query and relays step frames to observers until the final answer.
func (c *Client) Run(ctx context.Context, query string, observers ...agent.StepObserver) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "x-session-id", c.sessionID)

	cs, err := c.conn.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, model.RunMethod)
	if err != nil {
		return "", transportError(err)
	}
	stream := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: cs}

	in, err := model.Request{Query: query, SessionID: c.sessionID}.Struct()
	if err != nil {
		return "", sqlerrors.Wrap(sqlerrors.AgentFailed, "encode request", err)
	}
	if err := stream.Send(in); err != nil {
		return "", transportError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return "", transportError(err)
	}

	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", sqlerrors.New(sqlerrors.AgentFailed, "agent service closed the stream without an answer")
		}
		if err != nil {
			return "", transportError(err)
		}
		frame, err := model.FrameFromStruct(msg)
		if err != nil {
			c.log.WithError(err).Debug("skipping frame")
			continue
		}
		switch frame.Type {
		case model.FrameStep:
			for _, o := range observers {
				if o != nil {
					o.OnStep(frame.Text)
				}
			}
		case model.FrameFinal:
			return frame.Text, nil
		case model.FrameError:
			return "", sqlerrors.New(sqlerrors.AgentFailed, frame.Text)
		}
	}
}

// Close releases the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func transportError(err error) error {
	if st, ok := status.FromError(err); ok {
		return sqlerrors.Wrap(sqlerrors.AgentFailed, st.Code().String()+": "+st.Message(), err)
	}
	return sqlerrors.Wrap(sqlerrors.AgentFailed, "agent stream", err)
}
