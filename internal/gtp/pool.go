package gtp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const defaultPoolCapacity = 4

var errPoolAtCapacity = errors.New("connection pool at capacity")

type PoolConfig struct {
	Addr        string
	Capacity    int
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

// Pool keeps a bounded set of engine connections. Callers must pair every
// Acquire with a Release and pass the operation's error so failed connections
// get discarded instead of returned to the idle set.
type Pool struct {
	cfg PoolConfig

	mu    sync.Mutex
	total int
	idle  chan *Client
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("engine address required")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultPoolCapacity
	}
	return &Pool{
		cfg:  cfg,
		idle: make(chan *Client, cfg.Capacity),
	}, nil
}

func (p *Pool) Acquire(ctx context.Context) (*Client, error) {
	for {
		select {
		case client := <-p.idle:
			if client = p.revalidate(ctx, client); client != nil {
				return client, nil
			}
			continue
		default:
		}

		client, err := p.create(ctx)
		if err == nil {
			return client, nil
		}
		if !errors.Is(err, errPoolAtCapacity) {
			return nil, err
		}

		select {
		case client := <-p.idle:
			if client = p.revalidate(ctx, client); client != nil {
				return client, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// revalidate pings an idle connection before handing it out. The engine may
// have dropped it while it sat in the pool; a dead one is discarded and nil
// is returned so Acquire tries again.
func (p *Pool) revalidate(ctx context.Context, client *Client) *Client {
	if client == nil {
		return nil
	}
	if err := client.Ready(ctx); err != nil {
		p.discard(client)
		return nil
	}
	return client
}

// Release returns a client to the pool, or discards it if the operation it
// served failed.
func (p *Pool) Release(client *Client, err error) {
	if client == nil {
		return
	}
	if err != nil {
		p.discard(client)
		return
	}
	select {
	case p.idle <- client:
	default:
		p.discard(client)
	}
}

func (p *Pool) Close() error {
	var errs []error
	for {
		select {
		case client := <-p.idle:
			if client == nil {
				continue
			}
			if err := client.Close(); err != nil {
				errs = append(errs, err)
			}
			p.decrement()
		default:
			return errors.Join(errs...)
		}
	}
}

func (p *Pool) create(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	if p.total >= p.cfg.Capacity {
		p.mu.Unlock()
		return nil, errPoolAtCapacity
	}
	p.total++
	p.mu.Unlock()

	client, err := Dial(ctx, p.cfg.Addr, p.cfg.DialTimeout, p.cfg.IOTimeout)
	if err != nil {
		p.decrement()
		return nil, err
	}
	return client, nil
}

func (p *Pool) discard(client *Client) {
	_ = client.Close()
	p.decrement()
}

func (p *Pool) decrement() {
	p.mu.Lock()
	if p.total > 0 {
		p.total--
	}
	p.mu.Unlock()
}
