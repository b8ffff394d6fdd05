package pageclient

import (
	"fmt"
	"sync"
)

// PooledClient is a *Client checked out of a Pool. Close returns it to the
// pool rather than closing the connection; use ForceClose to discard it.
type PooledClient struct {
	*Client
	pool *Pool
}

// Close returns the client to its pool.
func (c *PooledClient) Close() error {
	if c.pool == nil {
		return fmt.Errorf("pageclient: already closed or detached from pool")
	}
	c.pool.put(c.Client)
	c.pool = nil
	return nil
}

// ForceClose closes the underlying connection permanently instead of
// returning it to the pool.
func (c *PooledClient) ForceClose() error {
	return c.Client.Close()
}

// Pool manages a bounded set of reusable connections to one pagecached
// socket, checking clients out of and back into a buffered channel.
type Pool struct {
	mu       sync.Mutex
	path     string
	conns    chan *Client
	maxSize  int
	numConns int
}

// NewPool creates a pool that dials path lazily, up to maxSize concurrent
// connections.
func NewPool(path string, maxSize int) *Pool {
	return &Pool{
		path:    path,
		conns:   make(chan *Client, maxSize),
		maxSize: maxSize,
	}
}

// Get checks out a client, dialing a new connection if the pool has not yet
// reached maxSize, or blocking for one to be returned otherwise.
func (p *Pool) Get() (*PooledClient, error) {
	select {
	case c := <-p.conns:
		return &PooledClient{Client: c, pool: p}, nil
	default:
	}

	p.mu.Lock()
	if p.numConns < p.maxSize {
		c, err := Dial(p.path)
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		p.numConns++
		p.mu.Unlock()
		return &PooledClient{Client: c, pool: p}, nil
	}
	p.mu.Unlock()

	c := <-p.conns
	return &PooledClient{Client: c, pool: p}, nil
}

func (p *Pool) put(c *Client) {
	if c == nil {
		return
	}
	select {
	case p.conns <- c:
	default:
		p.mu.Lock()
		c.Close()
		p.numConns--
		p.mu.Unlock()
	}
}

// Close closes every idle connection currently sitting in the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.conns)
	for c := range p.conns {
		c.Close()
	}
	p.numConns = 0
}
