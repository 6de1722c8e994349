package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"education-agent/internal/domain"
)

const (
	skProfile   = "PROFILE#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ProfileStore defines the intake persistence operations used by the service
// and the CLI.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, rec domain.ProfileRecord) error
	GetProfile(ctx context.Context, sessionID string) (domain.ProfileRecord, bool, error)
}

// Client wraps a DynamoDB table holding one profile item per session.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// sessionPK returns the DynamoDB partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// UpsertProfile merges rec into the session's profile item. Only non-empty
// fields are written, so a partial record never erases saved values. A
// Reopen record removes the fields it leaves empty.
func (c *Client) UpsertProfile(ctx context.Context, rec domain.ProfileRecord) error {
	if strings.TrimSpace(rec.SessionID) == "" {
		return errors.New("repository: UpsertProfile: session id is required")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	u := newUpdate()
	u.set("sessionId", &types.AttributeValueMemberS{Value: rec.SessionID})
	u.set("updatedAt", &types.AttributeValueMemberS{Value: now})
	u.set("ttl", &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(), 10)})
	u.setIfNotExists("createdAt", &types.AttributeValueMemberS{Value: now})
	if rec.Name != "" {
		u.set("studentName", &types.AttributeValueMemberS{Value: rec.Name})
	} else if rec.Reopen {
		u.remove("studentName")
	}
	if rec.Age != 0 {
		u.set("studentAge", &types.AttributeValueMemberN{Value: strconv.Itoa(rec.Age)})
	} else if rec.Reopen {
		u.remove("studentAge")
	}
	if rec.Interest != "" {
		u.set("areaOfInterest", &types.AttributeValueMemberS{Value: rec.Interest})
	} else if rec.Reopen {
		u.remove("areaOfInterest")
	}
	if rec.Query != "" {
		u.set("studentQuery", &types.AttributeValueMemberS{Value: rec.Query})
	} else if rec.Reopen {
		u.remove("studentQuery")
	}
	if rec.GuidanceType != "" {
		u.set("guidanceType", &types.AttributeValueMemberS{Value: string(rec.GuidanceType)})
		u.set("completedAt", &types.AttributeValueMemberS{Value: now})
	} else if rec.Reopen {
		u.remove("guidanceType")
		u.remove("completedAt")
	}

	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(rec.SessionID)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
		UpdateExpression:          aws.String(u.expression()),
		ExpressionAttributeNames:  u.names,
		ExpressionAttributeValues: u.values,
	})
	if err != nil {
		return fmt.Errorf("repository: UpsertProfile: %w", err)
	}
	return nil
}

// GetProfile reads the saved profile for a session. ok is false when nothing
// has been saved yet.
func (c *Client) GetProfile(ctx context.Context, sessionID string) (domain.ProfileRecord, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: skProfile},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ProfileRecord{}, false, fmt.Errorf("repository: GetProfile get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ProfileRecord{}, false, nil
	}
	rec, err := itemToRecord(out.Item)
	if err != nil {
		return domain.ProfileRecord{}, false, fmt.Errorf("repository: GetProfile decode: %w", err)
	}
	return rec, true, nil
}

// update accumulates SET and REMOVE clauses with placeholder names, since
// several attribute names (ttl, name, query) are reserved words.
type update struct {
	clauses []string
	removes []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

func newUpdate() *update {
	return &update{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

func (u *update) set(attr string, v types.AttributeValue) {
	u.names["#"+attr] = attr
	u.values[":"+attr] = v
	u.clauses = append(u.clauses, fmt.Sprintf("#%s = :%s", attr, attr))
}

func (u *update) setIfNotExists(attr string, v types.AttributeValue) {
	u.names["#"+attr] = attr
	u.values[":"+attr] = v
	u.clauses = append(u.clauses, fmt.Sprintf("#%s = if_not_exists(#%s, :%s)", attr, attr, attr))
}

func (u *update) remove(attr string) {
	u.names["#"+attr] = attr
	u.removes = append(u.removes, "#"+attr)
}

func (u *update) expression() string {
	expr := "SET " + strings.Join(u.clauses, ", ")
	if len(u.removes) > 0 {
		expr += " REMOVE " + strings.Join(u.removes, ", ")
	}
	return expr
}

// itemToRecord converts a DynamoDB attribute map to a ProfileRecord.
func itemToRecord(item map[string]types.AttributeValue) (domain.ProfileRecord, error) {
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return domain.ProfileRecord{}, err
	}
	age, err := optionalIntAttr(item, "studentAge")
	if err != nil {
		return domain.ProfileRecord{}, err
	}
	return domain.ProfileRecord{
		SessionID:    sessionID,
		Name:         optionalStrAttr(item, "studentName"),
		Age:          age,
		Interest:     optionalStrAttr(item, "areaOfInterest"),
		Query:        optionalStrAttr(item, "studentQuery"),
		GuidanceType: domain.Category(optionalStrAttr(item, "guidanceType")),
		UpdatedAt:    optionalStrAttr(item, "updatedAt"),
		CompletedAt:  optionalStrAttr(item, "completedAt"),
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func optionalStrAttr(item map[string]types.AttributeValue, key string) string {
	s, _ := strAttr(item, key) // allow missing
	return s
}

func optionalIntAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
