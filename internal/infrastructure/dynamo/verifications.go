package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/authkeeper/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// VerificationRepo stores issued one-time codes.
// PK: token_id. GSI email_type-index: email_type ("<email>#<intent>") + created_at.
type VerificationRepo struct {
	client    API
	tableName string
}

func NewVerificationRepo(client API, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func emailTypeKey(email string, intent domain.Intent) string {
	return email + "#" + string(intent)
}

func unixValue(t time.Time) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}

func (r *VerificationRepo) Put(ctx context.Context, v *domain.VerificationToken) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	item["email_type"] = &types.AttributeValueMemberS{Value: emailTypeKey(v.Email, v.Type)}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(token_id)"),
	})
	return err
}

// Consume flips one matching unused, unexpired code to used. The conditional
// update guarantees a code is consumed at most once under concurrency.
// The filter runs after the key read, so a match can sit behind pages that
// came back empty; every page is walked before giving up.
func (r *VerificationRepo) Consume(ctx context.Context, email string, intent domain.Intent, code string, now time.Time) (bool, error) {
	usedAt, err := attributevalue.Marshal(now)
	if err != nil {
		return false, err
	}
	nowAV := unixValue(now)
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("email_type-index"),
			KeyConditionExpression: aws.String("email_type = :k"),
			FilterExpression:       aws.String("#tok = :code AND is_used = :f AND expires_at > :now"),
			ExpressionAttributeNames: map[string]string{
				"#tok": "token",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":k":    &types.AttributeValueMemberS{Value: emailTypeKey(email, intent)},
				":code": &types.AttributeValueMemberS{Value: code},
				":f":    &types.AttributeValueMemberBOOL{Value: false},
				":now":  nowAV,
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return false, err
		}
		for _, item := range out.Items {
			idAttr, ok := item["token_id"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			won, err := r.markUsed(ctx, idAttr.Value, code, nowAV, usedAt)
			if err != nil {
				return false, err
			}
			if won {
				return true, nil
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return false, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// markUsed reports false when another caller consumed the row first.
func (r *VerificationRepo) markUsed(ctx context.Context, tokenID, code string, nowAV, usedAt types.AttributeValue) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("token_id", tokenID),
		UpdateExpression:    aws.String("SET is_used = :t, used_at = :usedAt"),
		ConditionExpression: aws.String("#tok = :code AND is_used = :f AND expires_at > :now"),
		ExpressionAttributeNames: map[string]string{
			"#tok": "token",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":      &types.AttributeValueMemberBOOL{Value: true},
			":f":      &types.AttributeValueMemberBOOL{Value: false},
			":code":   &types.AttributeValueMemberS{Value: code},
			":now":    nowAV,
			":usedAt": usedAt,
		},
	})
	if err == nil {
		return true, nil
	}
	if !isConditionFailed(err) {
		return false, err
	}
	slog.Debug("otp consumed concurrently", "token_id", tokenID)
	return false, nil
}
