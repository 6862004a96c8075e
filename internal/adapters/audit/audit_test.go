package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/finance_deal_ledger/internal/adapters/audit"
	"github.com/SscSPs/finance_deal_ledger/internal/core/ports/collaborators"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Record(ctx context.Context, record collaborators.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jetstream.PubAck), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(distinctID string, event string, properties map[string]any) error {
	args := m.Called(distinctID, event, properties)
	return args.Error(0)
}

func sampleRecord() collaborators.AuditRecord {
	return collaborators.AuditRecord{
		Action:      "deal.activate",
		EntityTable: "deals",
		EntityID:    "deal-1",
		After:       map[string]string{"status": "ACTIVE"},
		ActorID:     "user-1",
		OccurredAt:  time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestMultiSink_DeliversToEverySinkAndJoinsErrors(t *testing.T) {
	ctx := context.Background()
	rec := sampleRecord()

	first := new(MockSink)
	second := new(MockSink)
	first.On("Record", ctx, rec).Return(errors.New("first down")).Once()
	second.On("Record", ctx, rec).Return(nil).Once()

	sink := audit.NewMultiSink(first, nil, second)
	assert.Equal(t, 2, sink.Len())

	err := sink.Record(ctx, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first down")
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestMultiSink_NoSinks(t *testing.T) {
	assert.NoError(t, audit.NewMultiSink().Record(context.Background(), sampleRecord()))
}

func TestLogSink_NeverFails(t *testing.T) {
	assert.NoError(t, audit.LogSink{}.Record(context.Background(), sampleRecord()))
}

func TestNATSSink_PublishesOnActionSubject(t *testing.T) {
	ctx := context.Background()
	rec := sampleRecord()
	js := new(MockPublisher)
	sink := audit.NewNATSSink(js, "deal_ledger")

	var published []byte
	js.On("Publish", ctx, "deal_ledger.audit.deal.activate", mock.AnythingOfType("[]uint8")).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(&jetstream.PubAck{Stream: "DEAL_LEDGER_AUDIT", Sequence: 1}, nil).Once()

	require.NoError(t, sink.Record(ctx, rec))
	js.AssertExpectations(t)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(published, &decoded))
	assert.Equal(t, "deal.activate", decoded["action"])
	assert.Equal(t, "deal-1", decoded["entityID"])
	assert.Equal(t, "user-1", decoded["actorID"])
}

func TestNATSSink_PublishFailure(t *testing.T) {
	ctx := context.Background()
	js := new(MockPublisher)
	js.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("no responders")).Once()

	err := audit.NewNATSSink(js, "deal_ledger").Record(ctx, sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deal.activate")
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "DEAL_LEDGER_AUDIT", audit.StreamName("deal_ledger"))
	assert.Equal(t, "ACME_LOANS_AUDIT", audit.StreamName("acme.loans"))
}

func TestPosthogSink_UsesActorAsDistinctID(t *testing.T) {
	client := new(MockEnqueuer)
	rec := sampleRecord()
	client.On("Enqueue", "user-1", "deal.activate", mock.MatchedBy(func(props map[string]any) bool {
		return props["entity_id"] == "deal-1" && props["entity_table"] == "deals"
	})).Return(nil).Once()

	require.NoError(t, audit.NewPosthogSink(client).Record(context.Background(), rec))
	client.AssertExpectations(t)
}

func TestPosthogSink_SystemActor(t *testing.T) {
	client := new(MockEnqueuer)
	rec := sampleRecord()
	rec.ActorID = ""
	client.On("Enqueue", "system", rec.Action, mock.Anything).Return(nil).Once()

	require.NoError(t, audit.NewPosthogSink(client).Record(context.Background(), rec))
	client.AssertExpectations(t)
}
