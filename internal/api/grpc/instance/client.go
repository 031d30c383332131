package instance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DefaultCallTimeout bounds a Show call when no timeout is configured.
const DefaultCallTimeout = 2 * time.Second

// Client calls the InstanceService of another launcher process.
type Client struct {
	// conn is the underlying gRPC connection.
	conn *grpc.ClientConn
	// callTimeout is the timeout of each call.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets the timeout of each call.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// errSocketRequired is returned when no socket path is given.
var errSocketRequired = errors.New("socket path must be provided")

// Dial prepares a connection to the Unix socket. The connection is
// established lazily by the first call.
func Dial(socketPath string, opts ...Option) (*Client, error) {
	if socketPath == "" {
		return nil, errSocketRequired
	}

	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial instance socket: %w", err)
	}

	client := &Client{
		conn:        conn,
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Show asks the running launcher to come to the front.
func (c *Client) Show(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.conn.Invoke(callCtx, ShowMethod, wrapperspb.String(ShowMessage), new(emptypb.Empty)); err != nil {
		return fmt.Errorf("show running launcher: %w", err)
	}

	return nil
}
