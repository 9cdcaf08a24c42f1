package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/phone-verification-api/internal/domain"
)

// verificationItem is the stored shape of a verification. It lives in the
// USER#<username> partition with its creation time in Unix nanoseconds as the
// sort key, so the partition reads back newest first.
type verificationItem struct {
	PK               string `dynamodbav:"pk"`
	SK               int64  `dynamodbav:"sk"`
	ID               string `dynamodbav:"id"`
	Phone            string `dynamodbav:"phone"`
	Username         string `dynamodbav:"username"`
	VerificationCode string `dynamodbav:"verification_code"`
	CreatedAt        int64  `dynamodbav:"created_at"`
	UpdatedAt        int64  `dynamodbav:"updated_at"`
}

// idPointer sits in the ID#<id> partition and locates a record by its id.
type idPointer struct {
	PK        string `dynamodbav:"pk"`
	SK        int64  `dynamodbav:"sk"`
	Username  string `dynamodbav:"username"`
	CreatedAt int64  `dynamodbav:"created_at"`
}

func toItem(v *domain.Verification) verificationItem {
	created := v.CreatedAt.UnixNano()
	return verificationItem{
		PK:               userPK(v.Username),
		SK:               created,
		ID:               v.ID,
		Phone:            v.Phone,
		Username:         v.Username,
		VerificationCode: v.VerificationCode,
		CreatedAt:        created,
		UpdatedAt:        v.UpdatedAt.UnixNano(),
	}
}

func (it verificationItem) toDomain() domain.Verification {
	return domain.Verification{
		ID:               it.ID,
		Phone:            it.Phone,
		Username:         it.Username,
		VerificationCode: it.VerificationCode,
		CreatedAt:        time.Unix(0, it.CreatedAt).UTC(),
		UpdatedAt:        time.Unix(0, it.UpdatedAt).UTC(),
	}
}

// VerificationRepo stores verifications in one pk/sk table. Every read is a
// strongly consistent base-table read, so an upsert always sees the row the
// previous request wrote.
type VerificationRepo struct {
	client    API
	tableName string
}

func NewVerificationRepo(client API, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

func (r *VerificationRepo) FindLatestByUsername(ctx context.Context, username string) (*domain.Verification, error) {
	out, err := r.client.Query(ctx, r.byUsername(username, 1))
	if err != nil {
		return nil, domain.NewStorageError("find latest verification", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("verification for %q: %w", username, domain.ErrNotFound)
	}
	var it verificationItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return nil, domain.NewStorageError("find latest verification", err)
	}
	v := it.toDomain()
	return &v, nil
}

// Insert writes the record and its id pointer in one transaction.
func (r *VerificationRepo) Insert(ctx context.Context, v *domain.Verification) error {
	it := toItem(v)
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return domain.NewStorageError("insert verification", fmt.Errorf("marshal verification: %w", err))
	}
	ptr, err := attributevalue.MarshalMap(idPointer{PK: idPK(v.ID), Username: v.Username, CreatedAt: it.CreatedAt})
	if err != nil {
		return domain.NewStorageError("insert verification", fmt.Errorf("marshal id pointer: %w", err))
	}

	notExists := aws.String("attribute_not_exists(#pk)")
	names := map[string]string{"#pk": fieldPK}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      notExists,
				ExpressionAttributeNames: names,
			}},
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     ptr,
				ConditionExpression:      notExists,
				ExpressionAttributeNames: names,
			}},
		},
	})
	return domain.NewStorageError("insert verification", err)
}

// UpdateByID resolves id through its pointer and rewrites phone, code and
// updated_at on the record. A missing id is a no-op rather than an implicit insert.
func (r *VerificationRepo) UpdateByID(ctx context.Context, id, phone, code string, updatedAt time.Time) error {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(idPK(id), 0),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.NewStorageError("update verification", err)
	}
	if out.Item == nil {
		return nil
	}
	var ptr idPointer
	if err := attributevalue.UnmarshalMap(out.Item, &ptr); err != nil {
		return domain.NewStorageError("update verification", err)
	}

	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldPhone:            phone,
		fieldVerificationCode: code,
		fieldUpdatedAt:        updatedAt.UnixNano(),
	})
	if err != nil {
		return domain.NewStorageError("update verification", err)
	}
	ue.Names["#pk"] = fieldPK

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey(userPK(ptr.Username), ptr.CreatedAt),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return domain.NewStorageError("update verification", err)
}

// ListAll scans the record partitions. Scan order is arbitrary, so rows are sorted afterwards.
func (r *VerificationRepo) ListAll(ctx context.Context) ([]domain.Verification, error) {
	out := []domain.Verification{}
	input := &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("begins_with(#pk, :user)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user": &types.AttributeValueMemberS{Value: prefixUser},
		},
		ConsistentRead: aws.Bool(true),
	}
	for {
		page, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, domain.NewStorageError("list verifications", err)
		}
		rows, err := decodeItems(page.Items)
		if err != nil {
			return nil, domain.NewStorageError("list verifications", err)
		}
		out = append(out, rows...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *VerificationRepo) ListByUsername(ctx context.Context, username string) ([]domain.Verification, error) {
	out := []domain.Verification{}
	input := r.byUsername(username, 0)
	for {
		page, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, domain.NewStorageError("list verifications by username", err)
		}
		rows, err := decodeItems(page.Items)
		if err != nil {
			return nil, domain.NewStorageError("list verifications by username", err)
		}
		out = append(out, rows...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}
	return out, nil
}

func (r *VerificationRepo) FindPhoneByUsername(ctx context.Context, username string) (string, error) {
	v, err := r.FindLatestByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("phone for %q: %w", username, domain.ErrNotFound)
		}
		var se *domain.StorageError
		if errors.As(err, &se) {
			return "", domain.NewStorageError("find phone by username", se.Err)
		}
		return "", err
	}
	return v.Phone, nil
}

// byUsername queries one username partition newest first. limit <= 0 means no limit.
func (r *VerificationRepo) byUsername(username string, limit int32) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldPK},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: userPK(username)},
		},
		ScanIndexForward: aws.Bool(false),
		ConsistentRead:   aws.Bool(true),
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	return in
}

func decodeItems(items []map[string]types.AttributeValue) ([]domain.Verification, error) {
	var raw []verificationItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Verification, len(raw))
	for i, it := range raw {
		out[i] = it.toDomain()
	}
	return out, nil
}
