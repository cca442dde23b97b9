//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/audit/store/kafka"
	"signup/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaStoreSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "signup-audit-" + time.Now().Format("150405.000000")
	store, err := kafka.New([]string{s.redpanda.Broker}, topic)
	s.Require().NoError(err)
	defer store.Close()

	s.Require().NoError(store.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(store.EnsureTopic(ctx, 1, 1), "second call tolerates existing topic")

	err = store.Append(ctx, audit.Event{
		Timestamp: time.Now(),
		Subject:   "alice",
		Action:    string(audit.EventAccountRegistered),
		SessionID: "sess-1",
	})
	s.Require().NoError(err)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal("alice", string(records[0].Key))

	var body map[string]string
	s.Require().NoError(json.Unmarshal(records[0].Value, &body))
	s.Equal(string(audit.EventAccountRegistered), body["action"])
	s.Equal(string(audit.CategoryCompliance), body["category"])
}
