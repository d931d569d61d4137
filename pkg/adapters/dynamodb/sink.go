// Package dynamodb publishes completed-flow records to a single DynamoDB table
// keyed by session (PK) and completion time (SK).
package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/aretw0/concierge/pkg/domain"
)

const (
	skPrefixRecord = "REC#"
	// Fixed width keeps lexical SK order equal to time order.
	skTimeLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by Sink.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Sink implements ports.RecordSink and ports.RecordLister on DynamoDB.
type Sink struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
}

// Option configures a Sink.
type Option func(*Sink)

// WithTTL sets the item expiry written to the "ttl" attribute. Zero disables it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sink) { s.ttl = ttl }
}

// New creates a Sink. A *dynamodb.Client satisfies api.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Sink, error) {
	if api == nil {
		return nil, errors.New("dynamodb sink: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("dynamodb sink: table name must not be empty")
	}
	s := &Sink{api: api, tableName: tableName}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func recordSK(rec domain.Record) string {
	return skPrefixRecord + rec.CompletedAt.UTC().Format(skTimeLayout) + "#" + rec.Reference
}

// Publish writes the record as one item.
func (s *Sink) Publish(ctx context.Context, rec domain.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("dynamodb sink: marshal fields: %w", err)
	}
	item := map[string]types.AttributeValue{
		"PK":          &types.AttributeValueMemberS{Value: sessionPK(rec.SessionID)},
		"SK":          &types.AttributeValueMemberS{Value: recordSK(rec)},
		"sessionId":   &types.AttributeValueMemberS{Value: rec.SessionID},
		"flowId":      &types.AttributeValueMemberS{Value: rec.FlowID},
		"reference":   &types.AttributeValueMemberS{Value: rec.Reference},
		"fields":      &types.AttributeValueMemberS{Value: string(fields)},
		"completedAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.CompletedAt.UnixNano(), 10)},
	}
	if s.ttl > 0 {
		item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.CompletedAt.Add(s.ttl).Unix(), 10)}
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb sink: Publish: %w", err)
	}
	return nil
}

// Records queries the session partition in ascending SK order.
func (s *Sink) Records(ctx context.Context, sessionID string) ([]domain.Record, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixRecord},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var out []domain.Record
	for {
		page, err := s.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("dynamodb sink: Records query: %w", err)
		}
		for _, item := range page.Items {
			rec, err := itemToRecord(item)
			if err != nil {
				return nil, fmt.Errorf("dynamodb sink: Records unmarshal: %w", err)
			}
			out = append(out, rec)
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
}

func itemToRecord(item map[string]types.AttributeValue) (domain.Record, error) {
	var rec domain.Record
	var err error
	if rec.SessionID, err = strAttr(item, "sessionId"); err != nil {
		return rec, err
	}
	if rec.FlowID, err = strAttr(item, "flowId"); err != nil {
		return rec, err
	}
	if rec.Reference, err = strAttr(item, "reference"); err != nil {
		return rec, err
	}
	fields, err := strAttr(item, "fields")
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
		return rec, fmt.Errorf("decode fields: %w", err)
	}
	nanos, err := intAttr(item, "completedAt")
	if err != nil {
		return rec, err
	}
	rec.CompletedAt = time.Unix(0, nanos).UTC()
	return rec, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
