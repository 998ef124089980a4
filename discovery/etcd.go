// Package discovery registers RPC listeners in etcd so clients can
// find them.
//
// Endpoints live under {prefix}/{name}/{addr} with a TTL lease
// attached: while Advertise keeps the lease alive the entry stays, and
// if the process dies the lease expires and etcd drops the entry on
// its own.
package discovery

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const defaultPrefix = "/onerpc"

// Endpoint is one advertised RPC listener.
type Endpoint struct {
	Name  string `json:"name"`
	Addr  string `json:"addr"`
	Proto string `json:"proto,omitempty"`
}

// Etcd advertises and looks up endpoints in an etcd cluster.
type Etcd struct {
	client *clientv3.Client
	prefix string
}

// NewEtcd connects to the given etcd endpoints. An empty prefix
// defaults to "/onerpc".
func NewEtcd(endpoints []string, prefix string) (*Etcd, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return &Etcd{client: c, prefix: normalizePrefix(prefix)}, nil
}

// Close releases the etcd client.
func (e *Etcd) Close() error {
	return e.client.Close()
}

// Advertise publishes ep under a lease of ttl seconds and renews the
// lease until ctx is canceled. After cancellation the entry expires on
// its own once the ttl runs out.
func (e *Etcd) Advertise(ctx context.Context, ep Endpoint, ttl int64) error {
	lease, err := e.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}
	val, err := json.Marshal(ep)
	if err != nil {
		return err
	}
	if _, err := e.client.Put(ctx, e.key(ep.Name, ep.Addr), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}
	ch, err := e.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	// Drain renewal responses; the channel closes when ctx is
	// canceled or the client shuts down.
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Withdraw removes ep immediately instead of waiting for its lease to
// expire.
func (e *Etcd) Withdraw(ctx context.Context, ep Endpoint) error {
	_, err := e.client.Delete(ctx, e.key(ep.Name, ep.Addr))
	return err
}

// Lookup returns all endpoints currently advertised under name.
func (e *Etcd) Lookup(ctx context.Context, name string) ([]Endpoint, error) {
	resp, err := e.client.Get(ctx, e.servicePrefix(name), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}
	eps := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue
		}
		eps = append(eps, ep)
	}
	return eps, nil
}

// Watch emits the full endpoint list for name whenever it changes.
// The channel closes when ctx is canceled.
func (e *Etcd) Watch(ctx context.Context, name string) <-chan []Endpoint {
	out := make(chan []Endpoint, 1)
	go func() {
		defer close(out)
		wch := e.client.Watch(ctx, e.servicePrefix(name), clientv3.WithPrefix())
		for range wch {
			eps, err := e.Lookup(ctx, name)
			if err != nil {
				continue
			}
			select {
			case out <- eps:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (e *Etcd) key(name, addr string) string {
	return e.servicePrefix(name) + addr
}

func (e *Etcd) servicePrefix(name string) string {
	return e.prefix + "/" + name + "/"
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return defaultPrefix
	}
	prefix = strings.TrimRight(prefix, "/")
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}
