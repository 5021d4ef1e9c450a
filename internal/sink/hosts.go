package sink

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// HostSupplier hands out search cluster nodes in round-robin order.
type HostSupplier interface {
	Get() string
	Len() int
}

type hostSupplier struct {
	hosts   []string
	current int
	mutex   sync.Mutex
}

// NewHostSupplier pings every host in parallel and keeps the ones that answer.
func NewHostSupplier(ctx context.Context, hosts []string) HostSupplier {
	if len(hosts) == 0 {
		return &hostSupplier{hosts: []string{}}
	}

	log.Infof("🔄 Checking %d search hosts...", len(hosts))

	healthy := make([]bool, len(hosts))
	semaphore := make(chan struct{}, 10)

	var wg sync.WaitGroup
	for i, host := range hosts {
		wg.Add(1)

		go func(index int, host string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if isHostHealthy(ctx, host) {
				healthy[index] = true
				log.Infof("✅ Search host %s is reachable", host)
			} else {
				log.Warnf("❌ Search host %s is not reachable, skipping", host)
			}
		}(i, strings.TrimRight(host, "/"))
	}

	wg.Wait()

	// Keep configuration order so rotation is predictable.
	valid := make([]string, 0, len(hosts))
	for i, host := range hosts {
		if healthy[i] {
			valid = append(valid, strings.TrimRight(host, "/"))
		}
	}

	log.Infof("✅ HostSupplier initialized with %d reachable hosts out of %d", len(valid), len(hosts))

	return &hostSupplier{hosts: valid}
}

// Get returns the next host, or "" when none is reachable.
func (h *hostSupplier) Get() string {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.hosts) == 0 {
		return ""
	}

	host := h.hosts[h.current]
	h.current = (h.current + 1) % len(h.hosts)

	return host
}

func (h *hostSupplier) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.hosts)
}

func isHostHealthy(ctx context.Context, host string) bool {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(0)

	resp, err := client.R().
		SetContext(ctx).
		Get(host + "/")

	if err != nil {
		log.Debugf("Health check failed for %s: %v", host, err)
		return false
	}

	if resp.IsError() {
		log.Debugf("Health check failed for %s with status: %s", host, resp.Status())
		return false
	}

	return true
}
