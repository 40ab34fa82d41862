package dynamodb

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockAPI is a mock implementation of API for testing.
type mockAPI struct {
	getItemFunc        func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	putItemFunc        func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	updateItemFunc     func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	scanFunc           func(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	batchWriteItemFunc func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	describeTableFunc  func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

func (m *mockAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockAPI) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.scanFunc != nil {
		return m.scanFunc(ctx, params, optFns...)
	}
	return &dynamodb.ScanOutput{}, nil
}

func (m *mockAPI) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if m.batchWriteItemFunc != nil {
		return m.batchWriteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (m *mockAPI) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.describeTableFunc != nil {
		return m.describeTableFunc(ctx, params, optFns...)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

// memoryAPI is an in-memory single-table implementation of API. It evaluates
// only the update and filter expressions written by this package.
type memoryAPI struct {
	mu    sync.Mutex
	items map[string]map[string]dynamodbtypes.AttributeValue

	// afterGetItem, when set, runs after every GetItem has read its item and
	// released the lock. Tests use it to force interleavings.
	afterGetItem func()

	// pageSize limits the items returned per Scan page. Zero means no limit.
	pageSize int

	updates int
}

func newMemoryAPI() *memoryAPI {
	return &memoryAPI{items: make(map[string]map[string]dynamodbtypes.AttributeValue)}
}

func (m *memoryAPI) putSite(id string, attrs map[string]dynamodbtypes.AttributeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := map[string]dynamodbtypes.AttributeValue{
		KeyAttr: &dynamodbtypes.AttributeValueMemberS{Value: id},
	}
	for k, v := range attrs {
		item[k] = v
	}

	m.items[id] = item
}

func (m *memoryAPI) item(id string) map[string]dynamodbtypes.AttributeValue {
	m.mu.Lock()
	defer m.mu.Unlock()

	return cloneItem(m.items[id])
}

func (m *memoryAPI) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	item := cloneItem(m.items[getStringValue(params.Key[KeyAttr])])
	m.mu.Unlock()

	if m.afterGetItem != nil {
		m.afterGetItem()
	}

	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (m *memoryAPI) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[getStringValue(params.Item[KeyAttr])] = cloneItem(params.Item)

	return &dynamodb.PutItemOutput{}, nil
}

func (m *memoryAPI) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := getStringValue(params.Key[KeyAttr])
	item := m.items[id]

	if params.ConditionExpression != nil {
		var ok bool

		if strings.Contains(*params.ConditionExpression, "attribute_not_exists("+SequenceAttr+")") {
			ok = item != nil && item[SequenceAttr] == nil
		} else {
			want, _ := getIntValue(params.ExpressionAttributeValues[":current"])
			got, err := getIntValue(item[SequenceAttr])
			ok = item != nil && item[SequenceAttr] != nil && err == nil && got == want
		}

		if !ok {
			return nil, &dynamodbtypes.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}

	if item == nil {
		item = map[string]dynamodbtypes.AttributeValue{
			KeyAttr: &dynamodbtypes.AttributeValueMemberS{Value: id},
		}
		m.items[id] = item
	}

	item[SequenceAttr] = params.ExpressionAttributeValues[":val"]
	m.updates++

	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *memoryAPI) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if params.ExclusiveStartKey != nil {
		start := getStringValue(params.ExclusiveStartKey[KeyAttr])
		idx, found := slices.BinarySearch(ids, start)
		if found {
			idx++
		}
		ids = ids[idx:]
	}

	var lastKey map[string]dynamodbtypes.AttributeValue
	if m.pageSize > 0 && len(ids) > m.pageSize {
		ids = ids[:m.pageSize]
		lastKey = map[string]dynamodbtypes.AttributeValue{
			KeyAttr: &dynamodbtypes.AttributeValueMemberS{Value: ids[len(ids)-1]},
		}
	}

	var cpu string
	if params.FilterExpression != nil {
		cpu = getStringValue(params.ExpressionAttributeValues[":cpu"])
	}

	items := []map[string]dynamodbtypes.AttributeValue{}
	for _, id := range ids {
		item := m.items[id]
		if params.FilterExpression != nil && getStringValue(item[MachineIDAttr]) != cpu {
			continue
		}
		items = append(items, cloneItem(item))
	}

	return &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: lastKey}, nil
}

func (m *memoryAPI) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, requests := range params.RequestItems {
		for _, r := range requests {
			if r.DeleteRequest != nil {
				delete(m.items, getStringValue(r.DeleteRequest.Key[KeyAttr]))
			}
		}
	}

	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (m *memoryAPI) DescribeTable(_ context.Context, params *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{Table: validTableDescription(aws.ToString(params.TableName))}, nil
}

func cloneItem(item map[string]dynamodbtypes.AttributeValue) map[string]dynamodbtypes.AttributeValue {
	if item == nil {
		return nil
	}

	clone := make(map[string]dynamodbtypes.AttributeValue, len(item))
	for k, v := range item {
		clone[k] = v
	}

	return clone
}

func validTableDescription(name string) *dynamodbtypes.TableDescription {
	return &dynamodbtypes.TableDescription{
		TableName:   aws.String(name),
		TableStatus: dynamodbtypes.TableStatusActive,
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String(KeyAttr), KeyType: dynamodbtypes.KeyTypeHash},
		},
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String(KeyAttr), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
	}
}

var fixedTime = time.Date(2024, 1, 15, 12, 0, 0, 123456000, time.UTC)

func newTestRecordStore(api API, opts ...Option) *RecordStore {
	cfg := aws.Config{}
	store := NewRecordStore(&cfg, "test-data", append([]Option{WithAPI(api)}, opts...)...)
	_ = store.Connect()
	return store
}

func newTestAuditLog(api API, opts ...Option) *AuditLog {
	cfg := aws.Config{}
	defaults := []Option{
		WithAPI(api),
		WithMachineID("123456789"),
		WithClock(func() time.Time { return fixedTime }),
	}
	log := NewAuditLog(&cfg, "test-log", append(defaults, opts...)...)
	_ = log.Connect()
	return log
}

func site(attrs map[string]string, idreq string) map[string]dynamodbtypes.AttributeValue {
	item := make(map[string]dynamodbtypes.AttributeValue, len(attrs)+1)
	for k, v := range attrs {
		item[k] = &dynamodbtypes.AttributeValueMemberS{Value: v}
	}
	if idreq != "" {
		item[SequenceAttr] = &dynamodbtypes.AttributeValueMemberN{Value: idreq}
	}
	return item
}
