package dynamodb

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/lazyvec/model"
	"github.com/hupe1980/lazyvec/roots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient is an in-memory DynamoDB table that understands the
// condition expressions issued by Catalog.
type mockDDBClient struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	pageSize int
	queries  int
	putErr   error
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue), pageSize: 2}
}

func itemKey(item map[string]types.AttributeValue) string {
	return item[attrCatalog].(*types.AttributeValueMemberS).Value + "/" + item[attrName].(*types.AttributeValueMemberS).Value
}

func num(item map[string]types.AttributeValue, attr string) string {
	return item[attr].(*types.AttributeValueMemberN).Value
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return nil, m.putErr
	}

	k := itemKey(params.Item)
	cur, exists := m.items[k]
	failed := &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	switch aws.ToString(params.ConditionExpression) {
	case "attribute_not_exists(#n)":
		if exists {
			return nil, failed
		}
	case "#o = :o AND #v = :v":
		vals := params.ExpressionAttributeValues
		if !exists || num(cur, attrOffset) != num(vals, ":o") || num(cur, attrVersion) != num(vals, ":v") {
			return nil, failed
		}
	}
	m.items[k] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: m.items[itemKey(params.Key)]}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	catalog := params.ExpressionAttributeValues[":c"].(*types.AttributeValueMemberS).Value
	var matched []map[string]types.AttributeValue
	for _, item := range m.items {
		if item[attrCatalog].(*types.AttributeValueMemberS).Value == catalog {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return itemKey(matched[i]) < itemKey(matched[j]) })

	start := 0
	if params.ExclusiveStartKey != nil {
		after := itemKey(params.ExclusiveStartKey)
		for start < len(matched) && itemKey(matched[start]) <= after {
			start++
		}
	}
	end := min(start+m.pageSize, len(matched))
	out := &dynamodb.QueryOutput{Items: matched[start:end]}
	if end < len(matched) {
		last := matched[end-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			attrCatalog: last[attrCatalog],
			attrName:    last[attrName],
		}
	}
	return out, nil
}

func TestCatalog_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	c := New(newMockDDBClient(), "lazyvec-roots", "s3://bucket/db")
	a := model.ValidIndex(0, 1)
	b := model.ValidIndex(26, 2)

	_, err := c.Get(ctx, "graph")
	require.ErrorIs(t, err, roots.ErrNotFound)

	require.NoError(t, c.CompareAndSwap(ctx, "graph", model.InvalidIndex(), a))
	got, err := c.Get(ctx, "graph")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	assert.ErrorIs(t, c.CompareAndSwap(ctx, "graph", model.InvalidIndex(), b), roots.ErrConflict)
	assert.ErrorIs(t, c.CompareAndSwap(ctx, "graph", b, a), roots.ErrConflict)
	assert.ErrorIs(t, c.CompareAndSwap(ctx, "graph", a, model.InvalidIndex()), roots.ErrInvalidRoot)

	require.NoError(t, c.CompareAndSwap(ctx, "graph", a, b))
	got, err = c.Get(ctx, "graph")
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestCatalog_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	c1 := New(client, "lazyvec-roots", "db")
	c2 := New(client, "lazyvec-roots", "db")

	base := model.ValidIndex(0, 1)
	require.NoError(t, c1.CompareAndSwap(ctx, "graph", model.InvalidIndex(), base))

	require.NoError(t, c1.CompareAndSwap(ctx, "graph", base, model.ValidIndex(26, 1)))
	assert.ErrorIs(t, c2.CompareAndSwap(ctx, "graph", base, model.ValidIndex(52, 1)), roots.ErrConflict)
}

func TestCatalog_ListPaginates(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	c := New(client, "lazyvec-roots", "db")
	other := New(client, "lazyvec-roots", "other")

	for _, name := range []string{"e", "c", "a", "d", "b"} {
		require.NoError(t, c.CompareAndSwap(ctx, name, model.InvalidIndex(), model.ValidIndex(1, 1)))
	}
	require.NoError(t, other.CompareAndSwap(ctx, "z", model.InvalidIndex(), model.ValidIndex(1, 1)))

	names, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names)
	assert.Equal(t, 3, client.queries)
}

func TestCatalog_PutError(t *testing.T) {
	client := newMockDDBClient()
	client.putErr = errors.New("throttled")
	c := New(client, "lazyvec-roots", "db")

	err := c.CompareAndSwap(context.Background(), "graph", model.InvalidIndex(), model.ValidIndex(0, 1))
	require.ErrorIs(t, err, client.putErr)
	assert.NotErrorIs(t, err, roots.ErrConflict)
}

func TestCatalog_MalformedItem(t *testing.T) {
	client := newMockDDBClient()
	c := New(client, "lazyvec-roots", "db")
	item := c.key("graph")
	item[attrOffset] = &types.AttributeValueMemberS{Value: "oops"}
	client.items[itemKey(item)] = item

	_, err := c.Get(context.Background(), "graph")
	assert.ErrorContains(t, err, "invalid offset")
}
