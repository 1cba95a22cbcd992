package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrItemNotFound = errors.New("item not found")

func AttrString(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

// Key builds a primary key made of one string attribute.
func Key(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: AttrString(value)}
}

// Expr is a query or scan expression with its placeholders. Index and
// KeyCondition are ignored by Scan.
type Expr struct {
	Index        string
	KeyCondition string
	Filter       string
	Values       map[string]types.AttributeValue
	Names        map[string]string
}

// Update sets attributes on one item. With MustExist a missing item yields
// ErrItemNotFound instead of creating a new one.
type Update struct {
	Set       map[string]types.AttributeValue
	MustExist bool
}

func (c *DynamoDBClient) Put(ctx context.Context, tableName string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put item %s: %w", tableName, err)
	}
	return nil
}

func (c *DynamoDBClient) Get(ctx context.Context, tableName string, key map[string]types.AttributeValue, out any) error {
	res, err := c.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return fmt.Errorf("%w in %s", ErrItemNotFound, tableName)
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

// Update applies u to the item at key and decodes the updated item into out
// when out is non-nil.
func (c *DynamoDBClient) Update(ctx context.Context, tableName string, key map[string]types.AttributeValue, u Update, out any) error {
	if len(u.Set) == 0 {
		return fmt.Errorf("update %s: nothing to set", tableName)
	}

	attrs := make([]string, 0, len(u.Set))
	for name := range u.Set {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)

	names := make(map[string]string, len(attrs)+len(key))
	values := make(map[string]types.AttributeValue, len(attrs))
	assignments := make([]string, 0, len(attrs))
	for _, name := range attrs {
		names["#"+name] = name
		values[":"+name] = u.Set[name]
		assignments = append(assignments, "#"+name+" = :"+name)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(tableName),
		Key:                       key,
		UpdateExpression:          aws.String("SET " + strings.Join(assignments, ", ")),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  names,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if u.MustExist {
		conds := make([]string, 0, len(key))
		for name := range key {
			names["#key_"+name] = name
			conds = append(conds, "attribute_exists(#key_"+name+")")
		}
		sort.Strings(conds)
		input.ConditionExpression = aws.String(strings.Join(conds, " AND "))
	}

	res, err := c.svc.UpdateItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w in %s", ErrItemNotFound, tableName)
		}
		return fmt.Errorf("update item %s: %w", tableName, err)
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
			return fmt.Errorf("unmarshal updated item: %w", err)
		}
	}
	return nil
}

// Query follows LastEvaluatedKey until every page is read.
func (c *DynamoDBClient) Query(ctx context.Context, tableName string, e Expr) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(tableName),
		KeyConditionExpression:    aws.String(e.KeyCondition),
		ExpressionAttributeValues: e.Values,
	}
	if e.Index != "" {
		input.IndexName = aws.String(e.Index)
	}
	if e.Filter != "" {
		input.FilterExpression = aws.String(e.Filter)
	}
	if len(e.Names) > 0 {
		input.ExpressionAttributeNames = e.Names
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := c.svc.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query %s[%s]: %w", tableName, e.Index, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Scan reads the whole table, keeping items that match e.Filter.
func (c *DynamoDBClient) Scan(ctx context.Context, tableName string, e Expr) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(tableName),
		ExpressionAttributeValues: e.Values,
	}
	if e.Filter != "" {
		input.FilterExpression = aws.String(e.Filter)
	}
	if len(e.Names) > 0 {
		input.ExpressionAttributeNames = e.Names
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := c.svc.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableName, err)
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// QueryOrScan queries e.Index and falls back to a filtered scan when the
// table has no such index.
func (c *DynamoDBClient) QueryOrScan(ctx context.Context, tableName string, e Expr) ([]map[string]types.AttributeValue, error) {
	items, err := c.Query(ctx, tableName, e)
	if err == nil || !IsMissingIndex(err) {
		return items, err
	}

	scan := e
	scan.Filter = e.KeyCondition
	if e.Filter != "" {
		scan.Filter = e.KeyCondition + " AND " + e.Filter
	}
	return c.Scan(ctx, tableName, scan)
}

// IsMissingIndex reports whether err is DynamoDB rejecting an unknown index.
func IsMissingIndex(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "specified index") ||
		(strings.Contains(msg, "index") && strings.Contains(msg, "not found"))
}
