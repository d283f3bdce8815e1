// Package service exposes subtype decisions over gRPC. Messages are built
// dynamically from a proto definition parsed at start-up.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/funvibe/typelattice/internal/journal"
	"github.com/funvibe/typelattice/internal/lattice"
	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Result is the answer to one Decide call.
type Result struct {
	ID     string
	Result bool
	Passes int64
	Sub    string
	Sup    string
}

// Options configures a Server. Zero values are usable.
type Options struct {
	// Journal, when set, receives every successful judgment.
	Journal *journal.Journal
	Logger  *slog.Logger
}

type Server struct {
	lattice *lattice.Lattice
	journal *journal.Journal
	log     *slog.Logger
	sd      *desc.ServiceDescriptor
}

func New(l *lattice.Lattice, opts Options) (*Server, error) {
	sd, err := loadService()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{lattice: l, journal: opts.Journal, log: logger, sd: sd}, nil
}

// Decide answers sub <: sup for two type documents.
func (s *Server) Decide(ctx context.Context, sub, sup string) (Result, error) {
	j, err := s.lattice.JudgeText(sub, sup)
	if err != nil {
		return Result{}, status.Error(codes.InvalidArgument, err.Error())
	}
	id := uuid.New()
	res := Result{
		ID:     id.String(),
		Result: j.Result,
		Passes: int64(j.Trace.Passes),
		Sub:    j.Sub.String(),
		Sup:    j.Sup.String(),
	}
	if s.journal != nil {
		if _, err := s.journal.Record(ctx, journal.Entry{
			ID:     id,
			Sub:    res.Sub,
			Sup:    res.Sup,
			Result: res.Result,
			Passes: int(res.Passes),
			Source: "service",
		}); err != nil {
			s.log.Warn("journal write failed", "id", res.ID, "err", err)
		}
	}
	s.log.Info("decide", "id", res.ID, "sub", res.Sub, "sup", res.Sup, "result", res.Result, "passes", res.Passes)
	return res, nil
}

// Register adds the Lattice service to g.
func (s *Server) Register(g *grpc.Server) {
	sd := &grpc.ServiceDesc{
		ServiceName: s.sd.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Methods:     []grpc.MethodDesc{},
		Streams:     []grpc.StreamDesc{},
		Metadata:    s.sd.GetFile().GetName(),
	}
	for _, method := range s.sd.GetMethods() {
		md := method
		sd.Methods = append(sd.Methods, grpc.MethodDesc{
			MethodName: md.GetName(),
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				h := srv.(*Server)
				in := dynamic.NewMessage(md.GetInputType())
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return h.handleUnary(ctx, md, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + sd.ServiceName + "/" + md.GetName()}
				return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
					return h.handleUnary(ctx, md, req.(*dynamic.Message))
				})
			},
		})
	}
	g.RegisterService(sd, s)
}

func (s *Server) handleUnary(ctx context.Context, md *desc.MethodDescriptor, in *dynamic.Message) (interface{}, error) {
	if md.GetName() != config.DecideMethodName {
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", md.GetName())
	}
	sub, _ := in.GetFieldByName("sub").(string)
	sup, _ := in.GetFieldByName("sup").(string)
	res, err := s.Decide(ctx, sub, sup)
	if err != nil {
		s.log.Debug("decide rejected", "sub", sub, "sup", sup, "err", err)
		return nil, err
	}
	out := dynamic.NewMessage(md.GetOutputType())
	out.SetFieldByName("result", res.Result)
	out.SetFieldByName("id", res.ID)
	out.SetFieldByName("passes", res.Passes)
	out.SetFieldByName("sub", res.Sub)
	out.SetFieldByName("sup", res.Sup)
	return out, nil
}

// Serve runs a gRPC server on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	g := grpc.NewServer()
	s.Register(g)

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			g.GracefulStop()
		case <-stopped:
		}
	}()
	defer close(stopped)

	s.log.Info("serving", "addr", lis.Addr().String(), "service", s.sd.GetFullyQualifiedName())
	if err := g.Serve(lis); err != nil {
		return fmt.Errorf("serving %s: %w", lis.Addr(), err)
	}
	return nil
}
