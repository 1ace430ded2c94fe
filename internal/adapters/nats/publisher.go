package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

// Stream and subjects of overlap results.
const (
	StreamName           = "L8S2_OVERLAP"
	SubjectPrefix        = "l8s2.overlap."
	SubjectPathRowPrefix = SubjectPrefix + "pathrow."
	SubjectCompleted     = SubjectPrefix + "completed"
)

// PathRowSubject is the subject carrying the records of pr.
func PathRowSubject(pr domain.PathRow) string {
	return SubjectPathRowPrefix + pr.String()
}

// PathRowMessage is the payload published for each path/row.
type PathRowMessage struct {
	PathRow string               `json:"path_row"`
	Records []domain.MatchRecord `json:"records"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// ensureStream creates the overlap stream, or updates it if it exists.
// Only the latest message per subject is kept, so a new run supersedes the
// previous one path/row by path/row.
func ensureStream(js nats.JetStreamContext) error {
	cfg := nats.StreamConfig{
		Name:              StreamName,
		Subjects:          []string{SubjectPrefix + ">"},
		Retention:         nats.LimitsPolicy,
		MaxMsgsPerSubject: 1,
		MaxAge:            30 * 24 * time.Hour,
		Storage:           nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// ResetPathRows purges every path/row message, so a path/row without matches
// in the coming run is not left with the list of an earlier one. The run
// summary is kept.
func (p *Publisher) ResetPathRows(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := &nats.StreamPurgeRequest{Subject: SubjectPathRowPrefix + "*"}
	if err := p.js.PurgeStream(StreamName, req); err != nil {
		return fmt.Errorf("purge path/row subjects: %w", err)
	}
	return nil
}

func (p *Publisher) PublishPathRowMatches(ctx context.Context, pr domain.PathRow, records []domain.MatchRecord) error {
	data, err := json.Marshal(PathRowMessage{PathRow: pr.String(), Records: records})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(PathRowSubject(pr), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishRunCompleted(ctx context.Context, stats domain.MatchStats) error {
	data, err := json.Marshal(domain.RunSummary{Stats: stats, CompletedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectCompleted, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
