/*
Copyright 2026 Prameya LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package dynamo is the production store.Store adapter over DynamoDB,
// with GSIs on type/update_date, congress/type, chamber/date, and
// version/update_date.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/go-logr/logr"

	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
)

// Named GSIs on the records table.
const (
	IndexTypeUpdateDate    = "type-update_date"
	IndexCongressType      = "congress-type"
	IndexChamberDate       = "chamber-date"
	IndexVersionUpdateDate = "version-update_date"
)

// batchWriteLimit is DynamoDB's hard cap on items per BatchWriteItem call.
const batchWriteLimit = 25

// Store is the production store.Store adapter. It is a thin mapping from
// the core's capability set onto a single DynamoDB table and its GSIs;
// it does not retry internally — retry/backoff is the batch writer's
// job, not the adapter's.
type Store struct {
	client *dynamodb.Client
	table  string
	log    logr.Logger
}

// New builds a Store over an already-configured dynamodb.Client (see
// NewClient for the conventional aws-sdk-go-v2 construction path).
func New(client *dynamodb.Client, table string, log logr.Logger) *Store {
	return &Store{client: client, table: table, log: log}
}

// NewClient loads the default AWS config chain (environment, shared
// config, EC2/ECS role) and returns a ready dynamodb.Client.
// Credentials are never read from the ingestion core's own YAML config.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *Store) DescribeTable(ctx context.Context, table string) (store.TableStatus, error) {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err == nil {
		return store.TableExists, nil
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return store.TableMissing, nil
	}
	if isAuthError(err) {
		return store.TableAuthFailed, nil
	}
	return store.TableMissing, fmt.Errorf("describe table %s: %w", table, err)
}

func (s *Store) PutItem(ctx context.Context, rec *model.Record) (store.ItemOutcome, error) {
	item, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return store.ItemValidationRejected, fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err == nil {
		return store.ItemOK, nil
	}
	return classifyItemError(err), err
}

// BatchPut partitions recs into DynamoDB's 25-item BatchWriteItem
// chunks and reports unprocessed items as throughput_exceeded; the
// writer is responsible for retrying those with backoff.
func (s *Store) BatchPut(ctx context.Context, recs []*model.Record) (store.BatchResult, error) {
	result := store.BatchResult{Failures: make(map[string]store.ItemOutcome)}

	for start := 0; start < len(recs); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(recs) {
			end = len(recs)
		}
		chunk := recs[start:end]

		writeReqs := make([]types.WriteRequest, 0, len(chunk))
		byID := make(map[string]*model.Record, len(chunk))
		for _, rec := range chunk {
			item, err := attributevalue.MarshalMap(toItem(rec))
			if err != nil {
				result.Failures[rec.ID] = store.ItemValidationRejected
				continue
			}
			writeReqs = append(writeReqs, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
			byID[rec.ID] = rec
		}
		if len(writeReqs) == 0 {
			continue
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: writeReqs},
		})
		if err != nil {
			outcome := classifyItemError(err)
			for id := range byID {
				result.Failures[id] = outcome
			}
			continue
		}

		unprocessed := make(map[string]struct{})
		for _, req := range out.UnprocessedItems[s.table] {
			if req.PutRequest == nil {
				continue
			}
			var id idOnly
			if err := attributevalue.UnmarshalMap(req.PutRequest.Item, &id); err == nil {
				unprocessed[id.ID] = struct{}{}
			}
		}
		for id := range byID {
			if _, stillPending := unprocessed[id]; stillPending {
				result.Failures[id] = store.ItemThroughputExceeded
			} else {
				result.Stored = append(result.Stored, id)
			}
		}
	}

	return result, nil
}

func (s *Store) QueryPrefix(ctx context.Context, pred store.QueryPredicate) (store.RecordIterator, error) {
	if pred.Index == "" {
		return s.scanByIDPrefix(ctx, pred.HashValue)
	}
	return s.queryIndex(ctx, pred)
}

func (s *Store) queryIndex(ctx context.Context, pred store.QueryPredicate) (store.RecordIterator, error) {
	hashAttr, rangeAttr, err := indexAttrs(pred.Index)
	if err != nil {
		return nil, err
	}

	keyCond := "#h = :h"
	names := map[string]string{"#h": hashAttr}
	values := map[string]types.AttributeValue{":h": &types.AttributeValueMemberS{Value: pred.HashValue}}

	if pred.RangeFrom != "" && pred.RangeTo != "" {
		keyCond += " AND #r BETWEEN :from AND :to"
		names["#r"] = rangeAttr
		values[":from"] = &types.AttributeValueMemberS{Value: pred.RangeFrom}
		values[":to"] = &types.AttributeValueMemberS{Value: pred.RangeTo}
	} else if pred.RangeFrom != "" {
		keyCond += " AND #r >= :from"
		names["#r"] = rangeAttr
		values[":from"] = &types.AttributeValueMemberS{Value: pred.RangeFrom}
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(pred.Index),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", pred.Index, err)
	}

	records := make([]*model.Record, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := fromItem(item)
		if err != nil {
			return nil, fmt.Errorf("unmarshal query result: %w", err)
		}
		records = append(records, rec)
	}
	return &sliceIterator{records: records}, nil
}

func (s *Store) scanByIDPrefix(ctx context.Context, prefix string) (store.RecordIterator, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.table)}
	if prefix != "" {
		input.FilterExpression = aws.String("begins_with(id, :p)")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: prefix},
		}
	}
	out, err := s.client.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("scan by id prefix: %w", err)
	}
	records := make([]*model.Record, 0, len(out.Items))
	for _, item := range out.Items {
		rec, err := fromItem(item)
		if err != nil {
			return nil, fmt.Errorf("unmarshal scan result: %w", err)
		}
		records = append(records, rec)
	}
	return &sliceIterator{records: records}, nil
}

func indexAttrs(index string) (hash, rng string, err error) {
	switch index {
	case IndexTypeUpdateDate:
		return "type", "update_date", nil
	case IndexCongressType:
		return "congress", "type", nil
	case IndexChamberDate:
		return "chamber", "update_date", nil
	case IndexVersionUpdateDate:
		return "version", "update_date", nil
	default:
		return "", "", fmt.Errorf("unknown index %q", index)
	}
}

// item is the DynamoDB wire shape for a canonical model.Record. Chamber
// is lifted out of Extras into its own attribute so the chamber-date GSI
// can key on it directly.
type item struct {
	ID         string         `dynamodbav:"id"`
	Type       string         `dynamodbav:"type"`
	Congress   int            `dynamodbav:"congress"`
	UpdateDate string         `dynamodbav:"update_date"`
	Version    int            `dynamodbav:"version"`
	URL        string         `dynamodbav:"url,omitempty"`
	Chamber    string         `dynamodbav:"chamber,omitempty"`
	Extras     map[string]any `dynamodbav:"extras,omitempty"`
}

type idOnly struct {
	ID string `dynamodbav:"id"`
}

func toItem(rec *model.Record) item {
	chamber, _ := rec.Extras["chamber"].(string)
	return item{
		ID:         rec.ID,
		Type:       string(rec.Type),
		Congress:   rec.Congress,
		UpdateDate: rec.UpdateDate,
		Version:    rec.Version,
		URL:        rec.URL,
		Chamber:    chamber,
		Extras:     rec.Extras,
	}
}

func fromItem(av map[string]types.AttributeValue) (*model.Record, error) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, err
	}
	extras := it.Extras
	if extras == nil {
		extras = make(map[string]any)
	}
	if it.Chamber != "" {
		extras["chamber"] = it.Chamber
	}
	return &model.Record{
		ID:         it.ID,
		Type:       family.Tag(it.Type),
		Congress:   it.Congress,
		UpdateDate: it.UpdateDate,
		Version:    it.Version,
		URL:        it.URL,
		Extras:     extras,
	}, nil
}

type sliceIterator struct {
	records []*model.Record
	pos     int
}

func (it *sliceIterator) Next(ctx context.Context) (*model.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if it.pos >= len(it.records) {
		return nil, false, nil
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, true, nil
}

func (it *sliceIterator) Close() error { return nil }

func classifyItemError(err error) store.ItemOutcome {
	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		return store.ItemThroughputExceeded
	}
	var conditional *types.ConditionalCheckFailedException
	if errors.As(err, &conditional) {
		return store.ItemConditionalCheckFailed
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return store.ItemTableMissing
	}
	if isAuthError(err) {
		return store.ItemAuthFailed
	}
	return store.ItemTransient
}

// isAuthError reports whether err is an HTTP 401/403 from the DynamoDB
// endpoint (expired credentials, missing IAM permissions), distinct
// from a transient network failure.
func isAuthError(err error) bool {
	var respErr *smithyhttp.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	status := respErr.HTTPStatusCode()
	return status == 401 || status == 403
}
