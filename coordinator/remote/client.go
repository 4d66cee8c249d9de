package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cschleiden/go-taskhub/coordinator"
	"github.com/cschleiden/go-taskhub/core"
	"github.com/cschleiden/go-taskhub/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errStreamEnded = errors.New("work item stream ended")

type options struct {
	coordinator.Options

	DialOptions []grpc.DialOption

	// MaxReconnectInterval caps the delay between attempts to reopen the work item stream.
	MaxReconnectInterval time.Duration
}

type Option func(*options)

func WithCoordinatorOptions(opts ...coordinator.Option) Option {
	return func(o *options) {
		for _, opt := range opts {
			opt(&o.Options)
		}
	}
}

func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) {
		o.DialOptions = append(o.DialOptions, opts...)
	}
}

func WithMaxReconnectInterval(d time.Duration) Option {
	return func(o *options) {
		o.MaxReconnectInterval = d
	}
}

// Client talks to a coordinator over gRPC. A single connection is shared by all callers.
type Client struct {
	options options
	target  string
	conn    *grpc.ClientConn
	logger  *slog.Logger

	items chan *core.WorkItem

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ coordinator.Coordinator = (*Client)(nil)

func New(target string, opts ...Option) (*Client, error) {
	o := options{
		Options:              coordinator.ApplyOptions(),
		MaxReconnectInterval: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(&o)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	}, o.DialOptions...)

	conn, err := grpc.NewClient(target, dialOptions...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		options: o,
		target:  target,
		conn:    conn,
		logger:  o.Logger.With(slog.String(log.EndpointKey, target)),
		items:   make(chan *core.WorkItem),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

func (c *Client) Options() *coordinator.Options {
	return &c.options.Options
}

func (c *Client) Endpoint() string {
	return c.target
}

func (c *Client) CompleteActivityTask(ctx context.Context, result *core.ActivityResult) error {
	return c.conn.Invoke(ctx, completeActivityTaskMethod, result, &Empty{})
}

func (c *Client) CompleteOrchestratorTask(ctx context.Context, result *core.OrchestratorResult) error {
	return c.conn.Invoke(ctx, completeOrchestratorTaskMethod, result, &Empty{})
}

// GetWorkItem returns the next work item from the coordinator's work item stream. The stream is
// opened on first use and reopened with exponential backoff when it fails.
func (c *Client) GetWorkItem(ctx context.Context) (*core.WorkItem, error) {
	c.startOnce.Do(func() {
		go c.receive()
	})

	select {
	case wi := <-c.items:
		return wi, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, status.Error(codes.Unavailable, "client is closed")
	}
}

func (c *Client) Close() error {
	c.cancel()

	started := true
	c.startOnce.Do(func() {
		started = false
	})

	if started {
		<-c.done
	}

	return c.conn.Close()
}

func (c *Client) receive() {
	defer close(c.done)

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = c.options.MaxReconnectInterval
	b.MaxElapsedTime = 0

	_ = backoff.RetryNotify(func() error {
		return c.stream(b)
	}, backoff.WithContext(b, c.ctx), func(err error, d time.Duration) {
		c.logger.Warn("work item stream failed, reconnecting", "error", err, log.DurationKey, d.Milliseconds())
	})
}

func (c *Client) stream(b backoff.BackOff) error {
	stream, err := c.conn.NewStream(c.ctx, &serviceDesc.Streams[0], getWorkItemsMethod)
	if err != nil {
		return c.permanentIfClosed(err)
	}

	if err := stream.SendMsg(&GetWorkItemsRequest{}); err != nil {
		return c.permanentIfClosed(err)
	}

	if err := stream.CloseSend(); err != nil {
		return c.permanentIfClosed(err)
	}

	for {
		wi := new(core.WorkItem)
		if err := stream.RecvMsg(wi); err != nil {
			if errors.Is(err, io.EOF) {
				return errStreamEnded
			}

			return c.permanentIfClosed(err)
		}

		b.Reset()

		select {
		case c.items <- wi:
		case <-c.ctx.Done():
			// Not handed to a runner, the coordinator redelivers it after the lease expires.
			return backoff.Permanent(c.ctx.Err())
		}
	}
}

func (c *Client) permanentIfClosed(err error) error {
	if c.ctx.Err() != nil {
		return backoff.Permanent(err)
	}

	return err
}
