//nolint:nilnil
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RecordStore reads site records from the CorporateData table and allocates
// their request sequence numbers.
//
// Use [NewRecordStore] to create a RecordStore and [RecordStore.Connect] to
// initialize the underlying DynamoDB connection. A RecordStore is safe for
// concurrent use once Connect has returned, but see
// [RecordStore.AllocateSequence] for the guarantees of concurrent
// allocations.
type RecordStore struct {
	table
}

// NewRecordStore creates a RecordStore for the given table name. Call
// [RecordStore.Connect] on the returned store before use.
func NewRecordStore(awsCfg *aws.Config, tableName string, opts ...Option) *RecordStore {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	return &RecordStore{
		table: table{
			awsCfg:    awsCfg,
			tableName: tableName,
			opts:      options,
		},
	}
}

// FetchSiteInfo returns the descriptive fields of the site with the given
// ID. Returns (nil, nil) if the site does not exist.
func (s *RecordStore) FetchSiteInfo(ctx context.Context, id string) (*SiteInfo, error) {
	item, err := s.getSite(ctx, id, false)
	if err != nil || item == nil {
		return nil, err
	}

	return &SiteInfo{
		Sede:      getStringValue(item[SedeAttr]),
		Domicilio: getStringValue(item[DomicilioAttr]),
		Localidad: getStringValue(item[LocalidadAttr]),
		Provincia: getStringValue(item[ProvinciaAttr]),
	}, nil
}

// FetchTaxID returns the CUIT of the site with the given ID. Returns
// (nil, nil) if the site does not exist.
func (s *RecordStore) FetchTaxID(ctx context.Context, id string) (*TaxID, error) {
	item, err := s.getSite(ctx, id, false)
	if err != nil || item == nil {
		return nil, err
	}

	return &TaxID{CUIT: getStringValue(item[CUITAttr])}, nil
}

// AllocateSequence increments the idreq counter of the site with the given ID
// and returns the new value. A site without a counter starts at zero, so its
// first allocation returns 1. Returns (nil, nil) if the site does not exist.
//
// The counter is read and then written in two separate requests. By default
// the write is unconditional: two concurrent allocations may read the same
// value and both write value+1, losing one increment. With
// [WithAtomicSequence] the write only succeeds if the counter still holds the
// value that was read; otherwise [ErrSequenceConflict] is returned and the
// caller decides whether to try again.
func (s *RecordStore) AllocateSequence(ctx context.Context, id string) (*Sequence, error) {
	item, err := s.getSite(ctx, id, true)
	if err != nil || item == nil {
		return nil, err
	}

	currentAttr, hasCounter := item[SequenceAttr]

	current, err := getIntValue(currentAttr)
	if err != nil {
		return nil, fmt.Errorf("invalid %s attribute on site %s: %w", SequenceAttr, id, err)
	}

	next := current + 1

	input := &dynamodb.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              itemKey(id),
		UpdateExpression: aws.String(fmt.Sprintf("SET %s = :val", SequenceAttr)),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":val": numberValue(next),
		},
	}

	if s.opts.atomicSequence {
		if hasCounter {
			input.ConditionExpression = aws.String(SequenceAttr + " = :current")
			input.ExpressionAttributeValues[":current"] = numberValue(current)
		} else {
			input.ConditionExpression = aws.String(fmt.Sprintf("attribute_exists(%s) AND attribute_not_exists(%s)", KeyAttr, SequenceAttr))
		}
	}

	logger := s.opts.logger.WithField("site_id", id).WithField("sequence", next)

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var conditionErr *dynamodbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			logger.Info("Sequence allocation lost a concurrent update")
			return nil, fmt.Errorf("%w: site %s", ErrSequenceConflict, id)
		}

		return nil, &StoreError{Op: "update item", Table: s.tableName, Err: err}
	}

	logger.Debug("Sequence allocated")

	return &Sequence{Value: next}, nil
}

func (s *RecordStore) getSite(ctx context.Context, id string, consistent bool) (map[string]dynamodbtypes.AttributeValue, error) {
	if id == "" {
		return nil, errors.New("site ID cannot be empty")
	}

	input := &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       itemKey(id),
	}

	if consistent {
		input.ConsistentRead = aws.Bool(true)
	}

	output, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, &StoreError{Op: "get item", Table: s.tableName, Err: err}
	}

	// No site found
	if len(output.Item) == 0 {
		s.opts.logger.WithField("site_id", id).Debug("Site record not found")
		return nil, nil
	}

	return output.Item, nil
}
