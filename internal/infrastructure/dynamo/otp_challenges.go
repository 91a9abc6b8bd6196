package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ambulance-api/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ttlGrace keeps items past their logical expiry so Verify can still report
// them as expired before DynamoDB TTL removes them.
const ttlGrace = 15 * time.Minute

// OTPChallengeRepo stores outstanding OTP challenges.
// PK: identifier, SK: method. expires_at is the table TTL attribute.
type OTPChallengeRepo struct {
	client    API
	tableName string
}

func NewOTPChallengeRepo(client API, tableName string) *OTPChallengeRepo {
	return &OTPChallengeRepo{client: client, tableName: tableName}
}

type otpItem struct {
	Identifier  string `dynamodbav:"identifier"`
	Method      string `dynamodbav:"method"`
	Code        string `dynamodbav:"code"`
	Attempts    int    `dynamodbav:"attempts"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
	ExpiresAtMs int64  `dynamodbav:"expires_at_ms"`
}

func toOTPItem(rec *domain.OTPRecord) otpItem {
	return otpItem{
		Identifier:  rec.Identifier,
		Method:      string(rec.Method),
		Code:        rec.Code,
		Attempts:    rec.Attempts,
		ExpiresAt:   rec.ExpiresAt.Add(ttlGrace).Unix(),
		ExpiresAtMs: rec.ExpiresAt.UnixMilli(),
	}
}

func (it otpItem) record() *domain.OTPRecord {
	return &domain.OTPRecord{
		Method:     domain.OTPMethod(it.Method),
		Identifier: it.Identifier,
		Code:       it.Code,
		Attempts:   it.Attempts,
		ExpiresAt:  time.UnixMilli(it.ExpiresAtMs).UTC(),
	}
}

func (r *OTPChallengeRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(toOTPItem(rec))
	if err != nil {
		return fmt.Errorf("marshal otp challenge: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *OTPChallengeRepo) Get(ctx context.Context, key domain.OTPKey) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            compositeKey(fieldIdentifier, key.Identifier, fieldMethod, string(key.Method)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp challenge %s: %w", key, domain.ErrNotFound)
	}
	var it otpItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return it.record(), nil
}

func (r *OTPChallengeRepo) Delete(ctx context.Context, key domain.OTPKey) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(fieldIdentifier, key.Identifier, fieldMethod, string(key.Method)),
	})
	return err
}

// ListExpired scans for challenges whose logical expiry is before now.
func (r *OTPChallengeRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.OTPKey, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		FilterExpression:     aws.String("#exp < :now"),
		ProjectionExpression: aws.String("#id, #m"),
		ExpressionAttributeNames: map[string]string{
			"#exp": fieldExpiresAtMs,
			"#id":  fieldIdentifier,
			"#m":   fieldMethod,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	var keys []domain.OTPKey
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan otp challenges: %w", err)
		}
		var items []otpItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		for _, it := range items {
			keys = append(keys, domain.OTPKey{Method: domain.OTPMethod(it.Method), Identifier: it.Identifier})
		}
	}
	return keys, nil
}
