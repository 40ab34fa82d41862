package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// maxBackoff is the maximum backoff duration for retry loops.
const maxBackoff = 2 * time.Second

// table is the DynamoDB handle owned by each store. Its exported methods are
// promoted to [RecordStore] and [AuditLog].
type table struct {
	client    API
	tableName string
	awsCfg    *aws.Config
	opts      *Options
}

// Connect initializes the DynamoDB client from the AWS config provided to
// the constructor. It must be called before any other method, and must
// complete before the store is used concurrently.
func (t *table) Connect() error {
	if err := t.opts.validate(); err != nil {
		return fmt.Errorf("invalid DynamoDB options: %w", err)
	}

	// Use injected DynamoDB API if provided (useful for testing).
	if t.opts.dynamoDBAPI != nil {
		t.client = t.opts.dynamoDBAPI
		return nil
	}

	if t.awsCfg == nil {
		return errors.New("AWS config cannot be nil")
	}

	t.client = dynamodb.NewFromConfig(*t.awsCfg, func(o *dynamodb.Options) {
		if t.opts.endpoint != "" {
			o.BaseEndpoint = aws.String(t.opts.endpoint)
		}

		if t.opts.maxRetryAttempts > 0 {
			o.Retryer = retry.AddWithMaxAttempts(o.Retryer, t.opts.maxRetryAttempts)
		}
	})

	return nil
}

// TableName returns the name of the DynamoDB table.
func (t *table) TableName() string {
	return t.tableName
}

// Init validates the DynamoDB table schema. It checks that the table exists,
// is active, and has a simple primary key made of the string attribute id.
//
// Pass skipSchemaValidation true to skip all checks and return immediately,
// which is useful when schema validation is managed separately.
func (t *table) Init(ctx context.Context, skipSchemaValidation bool) error {
	if skipSchemaValidation {
		return nil
	}

	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(t.tableName),
	}

	response, err := t.client.DescribeTable(ctx, input)
	if err != nil {
		var notFoundError *dynamodbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundError) {
			return fmt.Errorf("table %s does not exist", t.tableName)
		}
		return fmt.Errorf("failed to describe table %s: %w", t.tableName, err)
	}

	if response.Table == nil {
		return fmt.Errorf("table %s has no description", t.tableName)
	}

	if len(response.Table.KeySchema) < 1 {
		return fmt.Errorf("table %s has no key schema", t.tableName)
	}

	if aws.ToString(response.Table.KeySchema[0].AttributeName) != KeyAttr {
		return fmt.Errorf("table %s has partition key %s, expected %s", t.tableName, aws.ToString(response.Table.KeySchema[0].AttributeName), KeyAttr)
	}

	if len(response.Table.KeySchema) > 1 {
		return fmt.Errorf("table %s has a composite primary key, expected simple", t.tableName)
	}

	for _, def := range response.Table.AttributeDefinitions {
		if aws.ToString(def.AttributeName) == KeyAttr && def.AttributeType != dynamodbtypes.ScalarAttributeTypeS {
			return fmt.Errorf("table %s has partition key of type %s, expected %s", t.tableName, def.AttributeType, dynamodbtypes.ScalarAttributeTypeS)
		}
	}

	if response.Table.TableStatus != dynamodbtypes.TableStatusActive {
		return fmt.Errorf("table %s is not active (status: %s)", t.tableName, response.Table.TableStatus)
	}

	return nil
}

// DropAllData deletes every item from the DynamoDB table. It scans the table
// in pages and removes each page using BatchWriteItem with exponential backoff
// for unprocessed items.
//
// This method is intended for use in tests only. Do not call it in production.
func (t *table) DropAllData(ctx context.Context) error {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(t.tableName),
		ProjectionExpression: aws.String(KeyAttr),
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		output, err := t.client.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to scan DynamoDB table %s: %w", t.tableName, err)
		}

		// Process items in batches of 25 (DynamoDB BatchWriteItem limit).
		for i := 0; i < len(output.Items); i += 25 {
			end := min(i+25, len(output.Items))
			batch := output.Items[i:end]

			requestItems := make([]dynamodbtypes.WriteRequest, 0, len(batch))

			for _, item := range batch {
				requestItems = append(requestItems, dynamodbtypes.WriteRequest{
					DeleteRequest: &dynamodbtypes.DeleteRequest{
						Key: map[string]dynamodbtypes.AttributeValue{
							KeyAttr: item[KeyAttr],
						},
					},
				})
			}

			if err := t.batchWrite(ctx, requestItems); err != nil {
				return err
			}
		}

		if output.LastEvaluatedKey == nil {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return nil
}

func (t *table) batchWrite(ctx context.Context, requestItems []dynamodbtypes.WriteRequest) error {
	input := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]dynamodbtypes.WriteRequest{
			t.tableName: requestItems,
		},
	}

	// Retry with exponential backoff for unprocessed items.
	const maxRetries = 5
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		batchResult, err := t.client.BatchWriteItem(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to batch delete items from DynamoDB table %s: %w", t.tableName, err)
		}

		if len(batchResult.UnprocessedItems) == 0 {
			return nil
		}

		if attempt == maxRetries {
			return fmt.Errorf("%d unprocessed items after %d retries in DropAllData",
				len(batchResult.UnprocessedItems[t.tableName]), maxRetries)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
		input.RequestItems = batchResult.UnprocessedItems
	}

	return nil
}

func itemKey(id string) map[string]dynamodbtypes.AttributeValue {
	return map[string]dynamodbtypes.AttributeValue{
		KeyAttr: &dynamodbtypes.AttributeValueMemberS{Value: id},
	}
}

// getStringValue extracts the string value from a DynamoDB AttributeValue.
// It returns an empty string if the AttributeValue is not of type AttributeValueMemberS.
func getStringValue(attr dynamodbtypes.AttributeValue) string {
	if attrValue, ok := attr.(*dynamodbtypes.AttributeValueMemberS); ok {
		return attrValue.Value
	}

	return ""
}

// getIntValue extracts an integer from a numeric DynamoDB AttributeValue.
// A missing attribute yields zero.
func getIntValue(attr dynamodbtypes.AttributeValue) (int64, error) {
	if attr == nil {
		return 0, nil
	}

	attrValue, ok := attr.(*dynamodbtypes.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute is of type %T, expected a number", attr)
	}

	n, err := strconv.ParseInt(attrValue.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute value %q is not an integer: %w", attrValue.Value, err)
	}

	return n, nil
}

func numberValue(n int64) *dynamodbtypes.AttributeValueMemberN {
	return &dynamodbtypes.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}
