package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"catalog/collector/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var (
	ErrNoSearchHost    = errors.New("no reachable search host")
	ErrSearchThrottled = errors.New("search cluster is throttling bulk requests")
)

type SearchConfig struct {
	IndexName            string
	Timeout              time.Duration
	MaxRequestsPerSecond int
	ThrottleDelay        time.Duration
}

// SearchSink sends documents to a search cluster through its bulk API.
type SearchSink struct {
	rl         ratelimit.Limiter
	httpClient *resty.Client
	hosts      HostSupplier
	indexName  string
	breaker    *circuitBreaker
}

func NewSearchSink(cfg SearchConfig, hosts HostSupplier) *SearchSink {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/x-ndjson").
		SetHeader("Accept", "application/json")

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	throttleDelay := cfg.ThrottleDelay
	if throttleDelay <= 0 {
		throttleDelay = time.Minute
	}

	return &SearchSink{
		rl:         rl,
		httpClient: client,
		hosts:      hosts,
		indexName:  cfg.IndexName,
		breaker:    newCircuitBreaker(throttleDelay),
	}
}

func (s *SearchSink) Name() string {
	return "search"
}

type bulkAction struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkReply struct {
	Errors bool                       `json:"errors"`
	Items  []map[string]bulkItemReply `json:"items"`
}

type bulkItemReply struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

// DocumentID returns e.g. "product_abstract:de_de:42".
func DocumentID(locale domain.Locale, abstractProductID int64) string {
	return resourceProductAbstract + ":" + locale.Name + ":" + strconv.FormatInt(abstractProductID, 10)
}

func (s *SearchSink) buildBulkBody(locale domain.Locale, docs []domain.OutputDocument) ([]byte, error) {
	var buf bytes.Buffer
	stream := json.BorrowStream(&buf)
	defer json.ReturnStream(stream)

	for _, doc := range docs {
		stream.WriteVal(bulkAction{Index: bulkTarget{Index: s.indexName, ID: DocumentID(locale, doc.AbstractProductID)}})
		stream.WriteRaw("\n")
		stream.WriteVal(doc)
		stream.WriteRaw("\n")
		if stream.Error != nil {
			return nil, fmt.Errorf("failed to encode document %d: %w", doc.AbstractProductID, stream.Error)
		}
	}

	if err := stream.Flush(); err != nil {
		return nil, fmt.Errorf("failed to encode bulk body: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *SearchSink) UpsertDocuments(ctx context.Context, locale domain.Locale, docs []domain.OutputDocument) error {
	if len(docs) == 0 {
		return nil
	}

	if s.breaker.isOpen() {
		return fmt.Errorf("%w: retry in %v", ErrSearchThrottled, s.breaker.remaining().Round(time.Second))
	}

	body, err := s.buildBulkBody(locale, docs)
	if err != nil {
		return err
	}

	host := s.hosts.Get()
	if host == "" {
		return ErrNoSearchHost
	}

	resp, err := s.send(ctx, host, body)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		log.Warnf("🚫 Search host %s is throttling bulk requests", host)

		// One immediate attempt on another node before backing off.
		if next := s.hosts.Get(); next != "" && next != host {
			log.Infof("🔄 Retrying bulk request on %s", next)
			host = next
			resp, err = s.send(ctx, host, body)
			if err != nil {
				return err
			}
		}

		if resp.StatusCode() == http.StatusTooManyRequests {
			s.breaker.trigger()
			return ErrSearchThrottled
		}
	}

	if resp.IsError() {
		return fmt.Errorf("bulk request to %s failed: %d %s", host, resp.StatusCode(), resp.Status())
	}

	var reply bulkReply
	if err := json.UnmarshalFromString(resp.String(), &reply); err != nil {
		return fmt.Errorf("failed to decode bulk reply: %w", err)
	}

	if reply.Errors {
		return firstItemError(reply)
	}

	log.Debugf("Indexed %d documents into %s on %s", len(docs), s.indexName, host)
	return nil
}

func (s *SearchSink) send(ctx context.Context, host string, body []byte) (*resty.Response, error) {
	s.rl.Take()

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(host + "/" + s.indexName + "/_bulk")
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("bulk request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to send bulk request to %s: %w", host, err)
	}

	return resp, nil
}

func firstItemError(reply bulkReply) error {
	failed := 0
	var first error
	for _, item := range reply.Items {
		for _, r := range item {
			if r.Error == nil {
				continue
			}
			failed++
			if first == nil {
				first = fmt.Errorf("document %s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
			}
		}
	}
	if first == nil {
		return errors.New("bulk request reported errors")
	}
	return fmt.Errorf("bulk request rejected %d documents, first: %w", failed, first)
}
