package bindingrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the Binding service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// New opens a session for the volume at path and returns its handle.
func (c *Client) New(ctx context.Context, path string) (string, error) {
	out, err := c.call(ctx, "New", map[string]any{FieldPath: path})
	if err != nil {
		return "", err
	}
	return out.GetFields()[FieldHandle].GetStringValue(), nil
}

// Vol2Bird computes the session profile.
func (c *Client) Vol2Bird(ctx context.Context, handle string) (*structpb.Struct, error) {
	return c.call(ctx, "Vol2Bird", map[string]any{FieldHandle: handle})
}

// GetAttr reads a named constant. Numbers come back as float64.
func (c *Client) GetAttr(ctx context.Context, handle, name string) (any, error) {
	out, err := c.call(ctx, "GetAttr", map[string]any{FieldHandle: handle, FieldName: name})
	if err != nil {
		return nil, err
	}
	return out.GetFields()[FieldValue].AsInterface(), nil
}

// SetAttr writes a named constant.
func (c *Client) SetAttr(ctx context.Context, handle, name string, value any) error {
	_, err := c.call(ctx, "SetAttr", map[string]any{FieldHandle: handle, FieldName: name, FieldValue: value})
	return err
}

// Close ends the session.
func (c *Client) Close(ctx context.Context, handle string) error {
	_, err := c.call(ctx, "Close", map[string]any{FieldHandle: handle})
	return err
}
