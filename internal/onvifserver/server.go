// Package onvifserver wires the HTTP accept loop to the bounded worker
// pool and the parse → auth → route → handler → serialize → write
// pipeline each connection runs.
package onvifserver

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/onvifd/camera-onvif-daemon/internal/bufpool"
	"github.com/onvifd/camera-onvif-daemon/internal/corr"
	"github.com/onvifd/camera-onvif-daemon/internal/dispatch"
	"github.com/onvifd/camera-onvif-daemon/internal/httpx"
	"github.com/onvifd/camera-onvif-daemon/internal/logging"
	"github.com/onvifd/camera-onvif-daemon/internal/memtrack"
	"github.com/onvifd/camera-onvif-daemon/internal/soapenv"
	"github.com/onvifd/camera-onvif-daemon/internal/workerpool"
)

// Config configures the server loop.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Auth         httpx.AuthConfig
}

// Server is the daemon's HTTP accept loop.
type Server struct {
	cfg      Config
	registry *dispatch.Registry
	pool     *workerpool.Pool
	logger   *logging.Logger

	bufPool *bufpool.Pool
	tracker *memtrack.Tracker

	listener net.Listener
}

// New creates a Server bound to registry and backed by pool. bufPool and
// tracker service request body reads; either may be nil, in which case
// bodies are heap-allocated untracked.
func New(cfg Config, registry *dispatch.Registry, pool *workerpool.Pool, bufPool *bufpool.Pool, tracker *memtrack.Tracker) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		pool:     pool,
		bufPool:  bufPool,
		tracker:  tracker,
		logger:   logging.GetLogger("onvifserver"),
	}
}

// Serve starts accepting connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.logger.WithFields(logging.Fields{"addr": s.cfg.Addr}).Info("onvif server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				return err
			}
		}

		submitErr := s.pool.Submit(ctx, func(taskCtx context.Context) {
			s.handleConnection(taskCtx, conn)
		})
		if submitErr != nil {
			s.logger.WithError(submitErr).Warn("failed to submit connection to worker pool")
			conn.Close()
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}

	reader := bufio.NewReader(conn)

	for {
		req, release, err := httpx.ParseRequestPooled(reader, s.bufPool, s.tracker)
		if err != nil {
			var perr *httpx.ParseError
			if errors.As(err, &perr) {
				resp := httpx.NewResponse(perr.Status, "text/plain", []byte(perr.Reason))
				resp.Write(conn)
			}
			return
		}

		correlationID := corr.New()
		resp := s.process(req, correlationID)
		release()
		if err := resp.Write(conn); err != nil {
			return
		}

		if !keepAlive(req) {
			return
		}

		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}
	}
}

func keepAlive(req *httpx.Request) bool {
	conn, ok := req.Header("Connection")
	if !ok {
		return req.Version == "HTTP/1.1"
	}
	return conn != "close"
}

func (s *Server) process(req *httpx.Request, correlationID string) *httpx.Response {
	switch httpx.CheckBasicAuth(req, s.cfg.Auth) {
	case httpx.AuthErrNoHeader, httpx.AuthErrInvalidScheme, httpx.AuthErrParseFailed, httpx.AuthUnauthenticated:
		resp := httpx.NewResponse(401, "text/plain", []byte("Unauthorized"))
		resp.Headers["WWW-Authenticate"] = `Basic realm="` + s.cfg.Auth.Realm + `"`
		s.logger.WithFields(logging.Fields{"correlation_id": correlationID, "path": req.Path}).Warn("authentication failed")
		return resp
	}

	operation, err := soapenv.OperationName(req.Body)
	if err != nil {
		s.logger.WithFields(logging.Fields{"correlation_id": correlationID, "path": req.Path}).WithError(err).Warn("malformed SOAP envelope")
		body := soapenv.BuildFault(err, correlationID)
		return httpx.NewResponse(200, "application/soap+xml; charset=utf-8", body)
	}

	handler, err := s.registry.Route(req.Path, operation)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoSuchService) {
			return httpx.NewResponse(404, "text/plain", []byte("not found"))
		}
		s.logger.WithFields(logging.Fields{"correlation_id": correlationID, "operation": operation}).WithError(err).Warn("operation not routable")
		body := soapenv.BuildFault(err, correlationID)
		return httpx.NewResponse(200, "application/soap+xml; charset=utf-8", body)
	}

	respBody, err := handler(req.Body)
	if err != nil {
		s.logger.WithFields(logging.Fields{"correlation_id": correlationID, "operation": operation}).WithError(err).Error("handler failed")
		body := soapenv.BuildFault(err, correlationID)
		return httpx.NewResponse(200, "application/soap+xml; charset=utf-8", body)
	}

	return httpx.NewResponse(200, "application/soap+xml; charset=utf-8", respBody)
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
