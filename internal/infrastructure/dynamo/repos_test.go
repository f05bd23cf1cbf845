package dynamo

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/authkeeper/internal/domain"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}
func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}
func (m *mockAPI) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

func strAV(v string) *types.AttributeValueMemberS { return &types.AttributeValueMemberS{Value: v} }

// --- users ---

func TestUserRepo_Create_WritesEmailLock(t *testing.T) {
	api := &mockAPI{}
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 {
			return false
		}
		lock := in.TransactItems[1].Put.Item
		return assert.ObjectsAreEqual(strAV("email#a@x.com"), lock["user_id"]) &&
			assert.ObjectsAreEqual(strAV("u1"), lock["owner_id"])
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	err := NewUserRepo(api, "users").Create(context.Background(), &domain.User{UserID: "u1", Email: "a@x.com"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestUserRepo_Create_TakenEmailIsConflict(t *testing.T) {
	api := &mockAPI{}
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{})

	err := NewUserRepo(api, "users").Create(context.Background(), &domain.User{UserID: "u1", Email: "a@x.com"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "a@x.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUserRepo_Update_MissingUser(t *testing.T) {
	api := &mockAPI{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return *in.ConditionExpression == "attribute_exists(user_id)" && len(in.ExpressionAttributeNames) == 2
	})).Return(nil, &types.ConditionalCheckFailedException{})

	err := NewUserRepo(api, "users").Update(context.Background(), "u1", map[string]interface{}{"is_active": true})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	api.AssertExpectations(t)
}

// --- accounts ---

func TestAccountRepo_Put_AlreadyLinked(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	err := NewAccountRepo(api, "accounts").Put(context.Background(), &domain.Account{Provider: "google", ProviderAccountID: "sub", UserID: "u1"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- sessions ---

func TestSessionRepo_ListByUser_FollowsPages(t *testing.T) {
	api := &mockAPI{}
	page1 := &dynamodb.QueryOutput{
		Items:            []map[string]types.AttributeValue{{"session_id": strAV("s1"), "user_id": strAV("u1")}},
		LastEvaluatedKey: map[string]types.AttributeValue{"session_id": strAV("s1")},
	}
	page2 := &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{"session_id": strAV("s2"), "user_id": strAV("u1")}},
	}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey == nil })).Return(page1, nil).Once()
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey != nil })).Return(page2, nil).Once()

	got, err := NewSessionRepo(api, "sessions").ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, "s2", got[1].SessionID)
}

func TestSessionRepo_RoundTripsUnixExpiry(t *testing.T) {
	api := &mockAPI{}
	exp := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	var stored map[string]types.AttributeValue
	api.On("PutItem", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*dynamodb.PutItemInput).Item
	}).Return(&dynamodb.PutItemOutput{}, nil)

	require.NoError(t, NewSessionRepo(api, "sessions").Put(context.Background(), &domain.Session{SessionID: "s1", ExpiresAt: exp}))
	n, ok := stored["expires_at"].(*types.AttributeValueMemberN)
	require.True(t, ok, "expires_at must be numeric for conditional comparisons")
	assert.Equal(t, strconv.FormatInt(exp.Unix(), 10), n.Value)
}

// --- verifications ---

func TestVerificationRepo_Put_AddsLookupKey(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return assert.ObjectsAreEqual(strAV("a@x.com#2fa_otp"), in.Item["email_type"])
	})).Return(&dynamodb.PutItemOutput{}, nil)

	err := NewVerificationRepo(api, "verification_tokens").Put(context.Background(), &domain.VerificationToken{
		TokenID: "t1", Email: "a@x.com", Token: "123456", Type: domain.IntentTwoFactor,
	})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestVerificationRepo_Consume_SkipsRowsLostToRace(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{"token_id": strAV("t1")}, {"token_id": strAV("t2")}},
	}, nil)
	isKey := func(id string) interface{} {
		return mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return assert.ObjectsAreEqual(strAV(id), in.Key["token_id"])
		})
	}
	api.On("UpdateItem", mock.Anything, isKey("t1")).Return(nil, &types.ConditionalCheckFailedException{})
	api.On("UpdateItem", mock.Anything, isKey("t2")).Return(&dynamodb.UpdateItemOutput{}, nil)

	ok, err := NewVerificationRepo(api, "verification_tokens").Consume(context.Background(), "a@x.com", domain.IntentTwoFactor, "123456", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerificationRepo_Consume_FollowsEmptyFilteredPages(t *testing.T) {
	api := &mockAPI{}
	page1 := &dynamodb.QueryOutput{
		LastEvaluatedKey: map[string]types.AttributeValue{"token_id": strAV("t0"), "email_type": strAV("a@x.com#2fa_otp")},
	}
	page2 := &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{"token_id": strAV("t9")}},
	}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey == nil })).Return(page1, nil).Once()
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool { return in.ExclusiveStartKey != nil })).Return(page2, nil).Once()
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return assert.ObjectsAreEqual(strAV("t9"), in.Key["token_id"])
	})).Return(&dynamodb.UpdateItemOutput{}, nil).Once()

	ok, err := NewVerificationRepo(api, "verification_tokens").Consume(context.Background(), "a@x.com", domain.IntentTwoFactor, "123456", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	api.AssertExpectations(t)
}

func TestVerificationRepo_Consume_NoMatch(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	ok, err := NewVerificationRepo(api, "verification_tokens").Consume(context.Background(), "a@x.com", domain.IntentTwoFactor, "123456", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
	api.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
}

// --- cooldowns ---

func TestCooldownRepo_Reserve(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		cutoff := in.ExpressionAttributeValues[":cutoff"].(*types.AttributeValueMemberN)
		return cutoff.Value == strconv.FormatInt(at.Add(-2*time.Minute).UnixMilli(), 10)
	})).Return(&dynamodb.PutItemOutput{}, nil)

	ok, _, err := NewCooldownRepo(api, "otp_cooldowns").Reserve(context.Background(), "a@x.com", domain.IntentTwoFactor, at, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	api.AssertExpectations(t)
}

func TestCooldownRepo_Reserve_ConflictReturnsPreviousIssue(t *testing.T) {
	prev := time.Date(2026, 1, 1, 11, 59, 30, 0, time.UTC)
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{
		Item: map[string]types.AttributeValue{
			"issued_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(prev.UnixMilli(), 10)},
		},
	})

	ok, last, err := NewCooldownRepo(api, "otp_cooldowns").Reserve(context.Background(), "a@x.com", domain.IntentTwoFactor, prev.Add(30*time.Second), 2*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, prev.Equal(last))
}

func TestCooldownRepo_LastIssued_None(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	last, err := NewCooldownRepo(api, "otp_cooldowns").LastIssued(context.Background(), "a@x.com", domain.IntentTwoFactor)
	require.NoError(t, err)
	assert.True(t, last.IsZero())
}
