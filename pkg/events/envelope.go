package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Routing keys on the market exchange.
const (
	EventTypeBidPlaced      = "bid.placed"
	EventTypeAuctionCreated = "auction.created"
	EventTypeAuctionEnded   = "auction.ended"
)

// Envelope is the broker payload. It is encoded as a protobuf Struct so
// consumers in any language can read it without generated code.
type Envelope struct {
	ID          uuid.UUID
	Type        string
	AggregateID uuid.UUID
	OccurredAt  time.Time
	Data        map[string]any
}

// NewEnvelope stamps a fresh event id and time on the given payload.
func NewEnvelope(eventType string, aggregateID uuid.UUID, data map[string]any) *Envelope {
	return &Envelope{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}
}

// Marshal encodes the envelope as protobuf bytes.
func (e *Envelope) Marshal() ([]byte, error) {
	data := e.Data
	if data == nil {
		data = map[string]any{}
	}
	dataStruct, err := structpb.NewStruct(data)
	if err != nil {
		return nil, fmt.Errorf("invalid event data: %w", err)
	}

	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":           structpb.NewStringValue(e.ID.String()),
		"type":         structpb.NewStringValue(e.Type),
		"aggregate_id": structpb.NewStringValue(e.AggregateID.String()),
		"occurred_at":  structpb.NewStringValue(e.OccurredAt.Format(time.RFC3339Nano)),
		"data":         structpb.NewStructValue(dataStruct),
	}}
	return proto.Marshal(msg)
}

// UnmarshalEnvelope decodes bytes produced by Envelope.Marshal.
func UnmarshalEnvelope(body []byte) (*Envelope, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	fields := msg.GetFields()

	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid event id: %w", err)
	}
	aggregateID, err := uuid.Parse(fields["aggregate_id"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid aggregate id: %w", err)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, fields["occurred_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid occurred_at: %w", err)
	}

	return &Envelope{
		ID:          id,
		Type:        fields["type"].GetStringValue(),
		AggregateID: aggregateID,
		OccurredAt:  occurredAt,
		Data:        fields["data"].GetStructValue().AsMap(),
	}, nil
}

// Int64 reads a numeric data field. Struct numbers travel as float64.
func (e *Envelope) Int64(key string) int64 {
	if v, ok := e.Data[key].(float64); ok {
		return int64(v)
	}
	return 0
}

// String reads a string data field.
func (e *Envelope) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}
