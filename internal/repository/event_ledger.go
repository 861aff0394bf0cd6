package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefixEvent = "EVENT#"
	claimTTL      = 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by EventLedger.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// EventLedger remembers answered webhook event ids in a DynamoDB table keyed
// by PK. Items expire through the table's TTL attribute "ttl".
type EventLedger struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

func NewEventLedger(api dynamodbAPI, tableName string) (*EventLedger, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &EventLedger{api: api, tableName: tableName, now: time.Now}, nil
}

func eventPK(webhookEventID string) string {
	return pkPrefixEvent + webhookEventID
}

// Claim records webhookEventID. It returns false without error when the id
// was already recorded.
func (l *EventLedger) Claim(ctx context.Context, webhookEventID string) (bool, error) {
	if strings.TrimSpace(webhookEventID) == "" {
		return false, errors.New("repository: Claim: webhook event id is required")
	}

	now := l.now().UTC()
	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                claimItem(webhookEventID, now),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("repository: Claim: %w", err)
	}
	return true, nil
}

func claimItem(webhookEventID string, now time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: eventPK(webhookEventID)},
		"eventId":   &types.AttributeValueMemberS{Value: webhookEventID},
		"claimedAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Add(claimTTL).Unix())},
	}
}
