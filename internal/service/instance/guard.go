package instance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sync"
	"time"

	"google.golang.org/grpc"

	api "github.com/oshokin/roguelike-launcher/internal/api/grpc/instance"
	"github.com/oshokin/roguelike-launcher/internal/logger"
)

// ErrAlreadyRunning is returned by Acquire after a running launcher was
// asked to come to the front.
var ErrAlreadyRunning = errors.New("launcher is already running")

// Presenter is the UI hook invoked for every Show signal.
type Presenter interface {
	BringToFront(ctx context.Context)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context)

// BringToFront implements Presenter.
func (f PresenterFunc) BringToFront(ctx context.Context) {
	f(ctx)
}

// Guard owns the single-instance socket.
type Guard struct {
	// socketPath is the rendezvous path.
	socketPath string
	// server serves the socket.
	server *grpc.Server
	// done is closed when Serve returns.
	done chan struct{}
	// closeOnce makes Close idempotent.
	closeOnce sync.Once
}

// presenterService adapts a Presenter to the transport service.
type presenterService struct {
	// ctx is the context handed to the presenter.
	ctx context.Context //nolint:containedctx // Signals outlive the request that carried them.
	// presenter receives the signal.
	presenter Presenter
}

func (s *presenterService) Show(context.Context) error {
	logger.Info(s.ctx, "Show requested by another launcher")

	if s.presenter != nil {
		s.presenter.BringToFront(s.ctx)
	}

	return nil
}

// Acquire signals an already running launcher or becomes the running one.
// It returns ErrAlreadyRunning when another launcher answered.
func Acquire(ctx context.Context, socketPath string, showTimeout time.Duration, presenter Presenter) (*Guard, error) {
	ctx = logger.WithName(ctx, "instance")

	// Ask a running launcher to show itself.
	if signalRunning(ctx, socketPath, showTimeout) {
		logger.InfoKV(ctx, "Another launcher is running", "socket", socketPath)

		return nil, ErrAlreadyRunning
	}

	// Nobody answered, so any leftover socket is stale.
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}

	server := grpc.NewServer()
	api.Register(server, api.NewServer(&presenterService{
		ctx:       context.WithoutCancel(ctx),
		presenter: presenter,
	}))

	guard := &Guard{
		socketPath: socketPath,
		server:     server,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(guard.done)

		if serveErr := server.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			logger.ErrorKV(ctx, "Instance socket stopped", "error", serveErr)
		}
	}()

	logger.InfoKV(ctx, "Instance socket listening", "socket", socketPath)

	return guard, nil
}

func signalRunning(ctx context.Context, socketPath string, timeout time.Duration) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}

	client, err := api.Dial(socketPath, api.WithCallTimeout(timeout))
	if err != nil {
		return false
	}

	defer func() {
		_ = client.Close()
	}()

	if err = client.Show(ctx); err != nil {
		logger.DebugKV(ctx, "No launcher answered", "error", err)

		return false
	}

	return true
}

// SocketPath returns the served path.
func (g *Guard) SocketPath() string {
	return g.socketPath
}

// Close stops serving and removes the socket.
func (g *Guard) Close() error {
	var err error

	g.closeOnce.Do(func() {
		g.server.Stop()
		<-g.done

		if removeErr := os.Remove(g.socketPath); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			err = fmt.Errorf("remove socket: %w", removeErr)
		}
	})

	return err
}
