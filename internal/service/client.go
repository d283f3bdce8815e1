package service

import (
	"context"
	"fmt"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a remote Lattice service.
type Client struct {
	conn *grpc.ClientConn
	md   *desc.MethodDescriptor
}

// Dial connects to target without transport security. Extra options are
// applied after the defaults.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	sd, err := loadService()
	if err != nil {
		return nil, err
	}
	md := sd.FindMethodByName(config.DecideMethodName)
	if md == nil {
		return nil, fmt.Errorf("method %s not found", config.DecideMethodName)
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return &Client{conn: conn, md: md}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Decide asks the server whether sub <: sup.
func (c *Client) Decide(ctx context.Context, sub, sup string) (Result, error) {
	req := dynamic.NewMessage(c.md.GetInputType())
	req.SetFieldByName("sub", sub)
	req.SetFieldByName("sup", sup)
	resp := dynamic.NewMessage(c.md.GetOutputType())

	method := "/" + c.md.GetService().GetFullyQualifiedName() + "/" + c.md.GetName()
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return Result{}, err
	}

	var res Result
	res.Result, _ = resp.GetFieldByName("result").(bool)
	res.ID, _ = resp.GetFieldByName("id").(string)
	res.Passes, _ = resp.GetFieldByName("passes").(int64)
	res.Sub, _ = resp.GetFieldByName("sub").(string)
	res.Sup, _ = resp.GetFieldByName("sup").(string)
	return res, nil
}
