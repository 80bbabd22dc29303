// Package dynamodb implements roots.Catalog on an Amazon DynamoDB table.
//
// DynamoDB provides the conditional writes that object stores lack, so
// several processes can safely advance the same root.
//
// Table schema:
//   - Partition key: catalog (string) - identifies one lazyvec store
//   - Sort key: name (string) - the root name
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name lazyvec-roots \
//	  --attribute-definitions AttributeName=catalog,AttributeType=S AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=catalog,KeyType=HASH AttributeName=name,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/lazyvec/model"
	"github.com/hupe1980/lazyvec/roots"
)

const (
	attrCatalog = "catalog"
	attrName    = "name"
	attrOffset  = "offset"
	attrVersion = "version"
)

// Client is the subset of the DynamoDB API used by Catalog.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Catalog implements roots.Catalog backed by DynamoDB.
type Catalog struct {
	client  Client
	table   string
	catalog string
}

var _ roots.Catalog = (*Catalog)(nil)

// New creates a Catalog storing the roots of catalog in table.
func New(client Client, table, catalog string) *Catalog {
	return &Catalog{client: client, table: table, catalog: catalog}
}

// NewFromDefaultConfig creates a Catalog using the default AWS credential chain.
func NewFromDefaultConfig(ctx context.Context, table, catalog string) (*Catalog, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}
	return New(dynamodb.NewFromConfig(cfg), table, catalog), nil
}

func (c *Catalog) key(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrCatalog: &types.AttributeValueMemberS{Value: c.catalog},
		attrName:    &types.AttributeValueMemberS{Value: name},
	}
}

func number(v uint32) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(v), 10)}
}

func parseNumber(item map[string]types.AttributeValue, attr string) (uint32, error) {
	n, ok := item[attr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamodb: invalid %s attribute", attr)
	}
	v, err := strconv.ParseUint(n.Value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("dynamodb: parse %s: %w", attr, err)
	}
	return uint32(v), nil
}

func parseIndex(item map[string]types.AttributeValue) (model.FileIndex, error) {
	off, err := parseNumber(item, attrOffset)
	if err != nil {
		return model.InvalidIndex(), err
	}
	ver, err := parseNumber(item, attrVersion)
	if err != nil {
		return model.InvalidIndex(), err
	}
	return model.ValidIndex(model.FileOffset(off), model.Hash(ver)), nil
}

// Get returns the root stored under name using a consistent read.
func (c *Catalog) Get(ctx context.Context, name string) (model.FileIndex, error) {
	resp, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            c.key(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return model.InvalidIndex(), fmt.Errorf("dynamodb: get %s: %w", name, err)
	}
	if len(resp.Item) == 0 {
		return model.InvalidIndex(), roots.ErrNotFound
	}
	return parseIndex(resp.Item)
}

// CompareAndSwap replaces the root with a conditional PutItem.
func (c *Catalog) CompareAndSwap(ctx context.Context, name string, prev, next model.FileIndex) error {
	if !next.IsValid() {
		return roots.ErrInvalidRoot
	}

	item := c.key(name)
	item[attrOffset] = number(uint32(next.Offset))
	item[attrVersion] = number(uint32(next.Version))

	input := &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	}
	if prev.IsValid() {
		input.ConditionExpression = aws.String("#o = :o AND #v = :v")
		input.ExpressionAttributeNames = map[string]string{"#o": attrOffset, "#v": attrVersion}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":o": number(uint32(prev.Offset)),
			":v": number(uint32(prev.Version)),
		}
	} else {
		input.ConditionExpression = aws.String("attribute_not_exists(#n)")
		input.ExpressionAttributeNames = map[string]string{"#n": attrName}
	}

	if _, err := c.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return roots.ErrConflict
		}
		return fmt.Errorf("dynamodb: put %s: %w", name, err)
	}
	return nil
}

// List returns the sorted root names of the catalog.
func (c *Catalog) List(ctx context.Context) ([]string, error) {
	var (
		names []string
		start map[string]types.AttributeValue
	)
	for {
		resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                aws.String(c.table),
			KeyConditionExpression:   aws.String("#c = :c"),
			ExpressionAttributeNames: map[string]string{"#c": attrCatalog},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": &types.AttributeValueMemberS{Value: c.catalog},
			},
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb: query: %w", err)
		}
		for _, item := range resp.Items {
			n, ok := item[attrName].(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("dynamodb: invalid %s attribute", attrName)
			}
			names = append(names, n.Value)
		}
		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		start = resp.LastEvaluatedKey
	}
	return names, nil
}
