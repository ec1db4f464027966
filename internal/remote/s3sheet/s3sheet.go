// Package s3sheet implements remote.Backend on an S3-compatible bucket. Each
// sheet is one CSV object under a common prefix; writes are
// read-modify-write guarded by the object's ETag, so a concurrent writer
// surfaces as common.ErrRemoteBusy and the call is retried.
package s3sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/remote"
)

const objectSuffix = ".csv"

// ObjectAPI is the subset of *s3.Client the backend uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Options locates the bucket.
type Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type Backend struct {
	api    ObjectAPI
	bucket string
	prefix string
}

var _ remote.Backend = (*Backend)(nil)

// New builds an S3 client. Static credentials are used when AccessKey is
// set; otherwise the default AWS credential chain applies. A custom endpoint
// switches to path-style addressing.
func New(ctx context.Context, o Options) (*Backend, error) {
	if strings.TrimSpace(o.Bucket) == "" {
		return nil, common.NewConfigError(common.ConfigMissingDataset, "s3 bucket is not configured", nil)
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, common.NewConfigError(common.ConfigInvalidCredentials, "cannot load aws config", err)
	}
	api := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return NewWithAPI(api, o.Bucket, o.Prefix), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api ObjectAPI, bucket, prefix string) *Backend {
	return &Backend{api: api, bucket: bucket, prefix: prefix}
}

func (b *Backend) key(name string) string {
	return b.prefix + name + objectSuffix
}

func (b *Backend) ListSheets(ctx context.Context) ([]string, error) {
	var names []string
	in := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket), Prefix: aws.String(b.prefix)}
	for {
		out, err := b.api.ListObjectsV2(ctx, in)
		if err != nil {
			return nil, mapError(err)
		}
		for _, obj := range out.Contents {
			k := strings.TrimPrefix(aws.ToString(obj.Key), b.prefix)
			if strings.Contains(k, "/") || !strings.HasSuffix(k, objectSuffix) {
				continue
			}
			names = append(names, strings.TrimSuffix(k, objectSuffix))
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return names, nil
		}
		in.ContinuationToken = out.NextContinuationToken
	}
}

func (b *Backend) CreateSheet(ctx context.Context, name string, header []string) error {
	body, err := encode([][]string{header})
	if err != nil {
		return err
	}
	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(name)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
		IfNoneMatch: aws.String("*"),
	})
	return mapError(err)
}

func (b *Backend) ReadSheet(ctx context.Context, name string) ([][]string, error) {
	values, _, err := b.get(ctx, name)
	return values, err
}

func (b *Backend) AppendRows(ctx context.Context, name string, rows [][]string) error {
	return b.modify(ctx, name, func(values [][]string) [][]string {
		return append(values, rows...)
	})
}

func (b *Backend) UpdateCells(ctx context.Context, name string, cells []remote.Cell) error {
	return b.modify(ctx, name, func(values [][]string) [][]string {
		for _, c := range cells {
			for len(values) <= c.Row {
				values = append(values, nil)
			}
			for len(values[c.Row]) <= c.Col {
				values[c.Row] = append(values[c.Row], "")
			}
			values[c.Row][c.Col] = c.Value
		}
		return values
	})
}

func (b *Backend) get(ctx context.Context, name string) ([][]string, string, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return nil, "", mapError(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", b.key(name), err)
	}
	values, err := decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", b.key(name), err)
	}
	return values, aws.ToString(out.ETag), nil
}

// modify rewrites the object only if nobody changed it since it was read.
func (b *Backend) modify(ctx context.Context, name string, fn func([][]string) [][]string) error {
	values, etag, err := b.get(ctx, name)
	if err != nil {
		return err
	}
	body, err := encode(fn(values))
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(name)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	}
	if etag != "" {
		in.IfMatch = aws.String(etag)
	}
	_, err = b.api.PutObject(ctx, in)
	return mapError(err)
}

func encode(values [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(values); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// mapError translates S3 API error codes into the common taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "SlowDown", "Throttling", "ThrottlingException", "TooManyRequests", "RequestLimitExceeded", "ServiceUnavailable":
		return fmt.Errorf("%w: %w", common.ErrRateLimited, err)
	case "PreconditionFailed", "ConditionalRequestConflict", "OperationAborted":
		return fmt.Errorf("%w: %w", common.ErrRemoteBusy, err)
	case "NoSuchBucket":
		return common.NewConfigError(common.ConfigNotFound, "bucket does not exist", err)
	case "NoSuchKey", "NotFound":
		return common.NewConfigError(common.ConfigNotFound, "sheet object does not exist", err)
	case "AccessDenied", "AllAccessDisabled", "AccountProblem":
		return common.NewConfigError(common.ConfigPermissionDenied, "", err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
		return common.NewConfigError(common.ConfigInvalidCredentials, "", err)
	}
	return err
}
