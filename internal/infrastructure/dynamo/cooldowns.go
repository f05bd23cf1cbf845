package dynamo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/authkeeper/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CooldownRepo keeps one row per (email, intent) with the time of the latest
// code issuance, in Unix milliseconds. Rows expire through TTL on expires_at.
// PK: cooldown_key
type CooldownRepo struct {
	client    API
	tableName string
}

func NewCooldownRepo(client API, tableName string) *CooldownRepo {
	return &CooldownRepo{client: client, tableName: tableName}
}

func (r *CooldownRepo) LastIssued(ctx context.Context, email string, intent domain.Intent) (time.Time, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("cooldown_key", emailTypeKey(email, intent)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return time.Time{}, err
	}
	return issuedAt(out.Item)
}

// Reserve writes at as the latest issuance only if no issuance happened in
// the preceding window. It is a single conditional put, so two concurrent
// reservations cannot both succeed.
func (r *CooldownRepo) Reserve(ctx context.Context, email string, intent domain.Intent, at time.Time, window time.Duration) (bool, time.Time, error) {
	cutoff := at.Add(-window)
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"cooldown_key": &types.AttributeValueMemberS{Value: emailTypeKey(email, intent)},
			"issued_at":    millisValue(at),
			"expires_at":   unixValue(at.Add(window)),
		},
		ConditionExpression: aws.String("attribute_not_exists(cooldown_key) OR issued_at <= :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cutoff": millisValue(cutoff),
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return true, time.Time{}, nil
	}
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return false, time.Time{}, err
	}
	last, err := issuedAt(ccf.Item)
	if err != nil {
		return false, time.Time{}, err
	}
	return false, last, nil
}

func (r *CooldownRepo) Release(ctx context.Context, email string, intent domain.Intent) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("cooldown_key", emailTypeKey(email, intent)),
	})
	return err
}

func millisValue(t time.Time) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.UnixMilli(), 10)}
}

// issuedAt reads issued_at from item, returning the zero time when absent.
func issuedAt(item map[string]types.AttributeValue) (time.Time, error) {
	n, ok := item["issued_at"].(*types.AttributeValueMemberN)
	if !ok {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
