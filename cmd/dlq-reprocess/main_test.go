package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/bakery-pos/internal/domain"
	"github.com/vladislavdragonenkov/bakery-pos/internal/messaging/kafka"
)

func TestParseBrokers(t *testing.T) {
	brokers := parseBrokers(" broker-1:9092, ,broker-2:9092 ")
	if len(brokers) != 2 {
		t.Fatalf("unexpected brokers count: got=%d want=2", len(brokers))
	}
	if brokers[0] != "broker-1:9092" || brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %+v", brokers)
	}
}

func TestExtractReplayMessage_DLQRecord(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"outbox_id":      "outbox-1",
		"aggregate_type": "sale",
		"aggregate_id":   "5001",
		"event_type":     "sale.committed",
		"payload": map[string]any{
			"order_id": 5001,
			"total":    "5.775",
		},
		"publish_error": "kafka: broker unreachable",
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}

	event, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw})
	if err != nil {
		t.Fatalf("extractReplayMessage failed: %v", err)
	}
	if !ok {
		t.Fatal("expected replay candidate")
	}
	if event.ID != "outbox-1" {
		t.Fatalf("unexpected outbox id: %s", event.ID)
	}
	if event.AggregateType != "sale" {
		t.Fatalf("unexpected aggregate type: %s", event.AggregateType)
	}
	if event.AggregateID != "5001" {
		t.Fatalf("unexpected aggregate id: %s", event.AggregateID)
	}
	if event.EventType != kafka.EventTypeSaleCommitted {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	if !json.Valid(event.Payload) {
		t.Fatalf("replay payload must be valid JSON: %s", string(event.Payload))
	}
}

func TestExtractReplayMessage_MissingPayload(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"outbox_id":      "outbox-1",
		"aggregate_type": "sale",
		"event_type":     "sale.committed",
		"publish_error":  "timeout",
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}

	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: raw})
	if err == nil {
		t.Fatal("expected error for missing payload")
	}
	if ok {
		t.Fatal("expected no replay candidate")
	}
}

func TestExtractReplayMessage_UnknownPayload(t *testing.T) {
	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(`{"foo":"bar"}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected message to be skipped")
	}
}

func TestExtractReplayMessage_NotJSON(t *testing.T) {
	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte("not json at all")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected message to be skipped")
	}
}

type stubOffsetClient struct {
	partitions []int32
	oldest     int64
	newest     int64
}

func (c *stubOffsetClient) GetOffset(_ string, _ int32, at int64) (int64, error) {
	if at == sarama.OffsetOldest {
		return c.oldest, nil
	}
	return c.newest, nil
}

func (c *stubOffsetClient) Partitions(string) ([]int32, error) { return c.partitions, nil }
func (c *stubOffsetClient) Close() error                       { return nil }

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errs     chan *sarama.ConsumerError
}

func (c *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return c.messages }
func (c *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError    { return c.errs }
func (c *stubPartitionConsumer) Close() error                            { return nil }

type stubConsumerSource struct {
	consumer *stubPartitionConsumer
}

func (s *stubConsumerSource) ConsumePartition(string, int32, int64) (partitionConsumer, error) {
	return s.consumer, nil
}

func (s *stubConsumerSource) Close() error { return nil }

type capturingPublisher struct {
	events []domain.OutboxMessage
	err    error
}

func (p *capturingPublisher) Publish(event domain.OutboxMessage) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func dlqMessage(t *testing.T, offset int64, outboxID string) *sarama.ConsumerMessage {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"outbox_id":      outboxID,
		"aggregate_type": "sale",
		"aggregate_id":   "5001",
		"event_type":     "sale.committed",
		"payload":        map[string]any{"order_id": 5001},
		"publish_error":  "timeout",
	})
	if err != nil {
		t.Fatalf("marshal dlq message failed: %v", err)
	}
	return &sarama.ConsumerMessage{Offset: offset, Value: raw}
}

func TestRunReplay_ExecutePublishesEvents(t *testing.T) {
	messages := make(chan *sarama.ConsumerMessage, 2)
	messages <- dlqMessage(t, 0, "outbox-1")
	messages <- dlqMessage(t, 1, "outbox-2")

	consumer := &stubConsumerSource{consumer: &stubPartitionConsumer{
		messages: messages,
		errs:     make(chan *sarama.ConsumerError),
	}}
	client := &stubOffsetClient{partitions: []int32{0}, oldest: 0, newest: 2}
	publisher := &capturingPublisher{}

	cfg := config{
		sourceTopic: kafka.TopicDeadLetterQueue,
		limit:       10,
		execute:     true,
		idleTimeout: 100 * time.Millisecond,
	}

	if err := runReplay(context.Background(), cfg, client, consumer, publisher); err != nil {
		t.Fatalf("runReplay failed: %v", err)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 replayed events, got %d", len(publisher.events))
	}
	if publisher.events[0].ID != "outbox-1" || publisher.events[1].ID != "outbox-2" {
		t.Fatalf("unexpected replay order: %+v", publisher.events)
	}
}

func TestRunReplay_DryRunDoesNotPublish(t *testing.T) {
	messages := make(chan *sarama.ConsumerMessage, 1)
	messages <- dlqMessage(t, 0, "outbox-1")

	consumer := &stubConsumerSource{consumer: &stubPartitionConsumer{
		messages: messages,
		errs:     make(chan *sarama.ConsumerError),
	}}
	client := &stubOffsetClient{partitions: []int32{0}, oldest: 0, newest: 1}
	publisher := &capturingPublisher{}

	cfg := config{
		sourceTopic: kafka.TopicDeadLetterQueue,
		limit:       10,
		execute:     false,
		idleTimeout: 100 * time.Millisecond,
	}

	if err := runReplay(context.Background(), cfg, client, consumer, publisher); err != nil {
		t.Fatalf("runReplay failed: %v", err)
	}

	if len(publisher.events) != 0 {
		t.Fatalf("expected no published events in dry-run, got %d", len(publisher.events))
	}
}

func TestRunReplay_SkipsForeignMessages(t *testing.T) {
	messages := make(chan *sarama.ConsumerMessage, 2)
	messages <- &sarama.ConsumerMessage{Offset: 0, Value: []byte(`{"foo":"bar"}`)}
	messages <- dlqMessage(t, 1, "outbox-1")

	consumer := &stubConsumerSource{consumer: &stubPartitionConsumer{
		messages: messages,
		errs:     make(chan *sarama.ConsumerError),
	}}
	client := &stubOffsetClient{partitions: []int32{0}, oldest: 0, newest: 2}
	publisher := &capturingPublisher{}

	cfg := config{
		sourceTopic: kafka.TopicDeadLetterQueue,
		limit:       10,
		execute:     true,
		idleTimeout: 100 * time.Millisecond,
	}

	if err := runReplay(context.Background(), cfg, client, consumer, publisher); err != nil {
		t.Fatalf("runReplay failed: %v", err)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 replayed event, got %d", len(publisher.events))
	}
	if publisher.events[0].ID != "outbox-1" {
		t.Fatalf("unexpected replayed event: %+v", publisher.events[0])
	}
}

func TestRunReplay_PublishErrorStopsReplay(t *testing.T) {
	messages := make(chan *sarama.ConsumerMessage, 1)
	messages <- dlqMessage(t, 0, "outbox-1")

	consumer := &stubConsumerSource{consumer: &stubPartitionConsumer{
		messages: messages,
		errs:     make(chan *sarama.ConsumerError),
	}}
	client := &stubOffsetClient{partitions: []int32{0}, oldest: 0, newest: 1}
	publisher := &capturingPublisher{err: errors.New("broker down")}

	cfg := config{
		sourceTopic: kafka.TopicDeadLetterQueue,
		limit:       10,
		execute:     true,
		idleTimeout: 100 * time.Millisecond,
	}

	if err := runReplay(context.Background(), cfg, client, consumer, publisher); err == nil {
		t.Fatal("expected publish error to propagate")
	}
}

func TestRunReplay_ExecuteRequiresPublisher(t *testing.T) {
	client := &stubOffsetClient{partitions: []int32{0}}
	consumer := &stubConsumerSource{consumer: &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errs:     make(chan *sarama.ConsumerError),
	}}

	cfg := config{sourceTopic: kafka.TopicDeadLetterQueue, limit: 1, execute: true, idleTimeout: time.Millisecond}
	if err := runReplay(context.Background(), cfg, client, consumer, nil); err == nil {
		t.Fatal("expected error when publisher is missing in execute mode")
	}
}

func TestReadConfig_FromFlags(t *testing.T) {
	oldArgs := os.Args
	oldCommandLine := flag.CommandLine
	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	os.Args = []string{"dlq-reprocess", "-brokers=broker-1:9092", "-limit=5", "-execute", "-idle-timeout=500ms"}
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	cfg, err := readConfig()
	if err != nil {
		t.Fatalf("readConfig failed: %v", err)
	}

	if len(cfg.brokers) != 1 || cfg.brokers[0] != "broker-1:9092" {
		t.Fatalf("unexpected brokers: %+v", cfg.brokers)
	}
	if cfg.sourceTopic != kafka.TopicDeadLetterQueue {
		t.Fatalf("unexpected source topic: %s", cfg.sourceTopic)
	}
	if cfg.limit != 5 {
		t.Fatalf("unexpected limit: %d", cfg.limit)
	}
	if !cfg.execute {
		t.Fatal("expected execute mode")
	}
	if cfg.idleTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected idle timeout: %s", cfg.idleTimeout)
	}
}

func TestReadConfig_MissingBrokers(t *testing.T) {
	oldArgs := os.Args
	oldCommandLine := flag.CommandLine
	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	os.Args = []string{"dlq-reprocess"}
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	t.Setenv("POS_KAFKA_BROKERS", "")

	if _, err := readConfig(); err == nil {
		t.Fatal("expected error when brokers are not configured")
	}
}
