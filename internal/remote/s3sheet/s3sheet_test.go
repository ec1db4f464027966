package s3sheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/delegsync/internal/common"
	"github.com/dmitrijs2005/delegsync/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	body []byte
	etag string
}

// fakeS3 is an in-memory bucket honouring IfMatch and IfNoneMatch.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	version int
	// beforePut runs before a conditional put is evaluated.
	beforePut func(key string)
}

func newFake() *fakeS3 { return &fakeS3{objects: map[string]object{}} }

func (f *fakeS3) put(key, body string) {
	f.version++
	f.objects[key] = object{body: []byte(body), etag: fmt.Sprintf(`"v%d"`, f.version)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body)), ETag: aws.String(obj.etag)}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if f.beforePut != nil {
		f.beforePut(key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, exists := f.objects[key]
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "exists"}
	}
	if in.IfMatch != nil && (!exists || cur.etag != aws.ToString(in.IfMatch)) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "etag mismatch"}
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.put(key, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	return out, nil
}

func TestSheetLifecycle(t *testing.T) {
	fake := newFake()
	fake.put("other/ignored.csv", "x\n")
	fake.put("delegsync/nested/skip.csv", "x\n")
	b := NewWithAPI(fake, "bucket", "delegsync/")
	ctx := context.Background()

	require.NoError(t, b.CreateSheet(ctx, "requests", []string{"uuid", "date", "note"}))
	kind, _ := common.ConfigKind(b.CreateSheet(ctx, "requests", nil))
	assert.Empty(t, kind)
	require.ErrorIs(t, b.CreateSheet(ctx, "requests", nil), common.ErrRemoteBusy)

	require.NoError(t, b.AppendRows(ctx, "requests", [][]string{{"", "2025-01-15", "with, comma"}}))
	require.NoError(t, b.UpdateCells(ctx, "requests", []remote.Cell{{Row: 1, Col: 0, Value: "r-1"}, {Row: 0, Col: 3, Value: "status"}}))

	values, err := b.ReadSheet(ctx, "requests")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"uuid", "date", "note", "status"}, {"r-1", "2025-01-15", "with, comma"}}, values)

	names, err := b.ListSheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"requests"}, names)
}

func TestConcurrentWriterIsBusy(t *testing.T) {
	fake := newFake()
	fake.put("p/requests.csv", "uuid\n")
	b := NewWithAPI(fake, "bucket", "p/")

	fake.beforePut = func(key string) {
		fake.mu.Lock()
		fake.put(key, "uuid\nfrom-other-device\n")
		fake.mu.Unlock()
		fake.beforePut = nil
	}

	err := b.AppendRows(context.Background(), "requests", [][]string{{"mine"}})
	require.ErrorIs(t, err, common.ErrRemoteBusy)
	assert.True(t, common.IsTransient(err))

	values, err := b.ReadSheet(context.Background(), "requests")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"uuid"}, {"from-other-device"}}, values)
}

func TestMissingSheet(t *testing.T) {
	b := NewWithAPI(newFake(), "bucket", "")
	_, err := b.ReadSheet(context.Background(), "nope")
	kind, ok := common.ConfigKind(err)
	require.True(t, ok)
	assert.Equal(t, common.ConfigNotFound, kind)
}

func TestMapError(t *testing.T) {
	kindOf := func(code string) common.ConfigErrorKind {
		k, _ := common.ConfigKind(mapError(&smithy.GenericAPIError{Code: code}))
		return k
	}
	assert.Nil(t, mapError(nil))
	plain := errors.New("dial tcp")
	assert.Equal(t, plain, mapError(plain))

	assert.ErrorIs(t, mapError(&smithy.GenericAPIError{Code: "SlowDown"}), common.ErrRateLimited)
	assert.ErrorIs(t, mapError(&smithy.GenericAPIError{Code: "PreconditionFailed"}), common.ErrRemoteBusy)
	assert.Equal(t, common.ConfigNotFound, kindOf("NoSuchBucket"))
	assert.Equal(t, common.ConfigPermissionDenied, kindOf("AccessDenied"))
	assert.Equal(t, common.ConfigInvalidCredentials, kindOf("InvalidAccessKeyId"))
	assert.Equal(t, common.ConfigNotFound, kindOf("NoSuchKey"))
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), Options{})
	kind, _ := common.ConfigKind(err)
	assert.Equal(t, common.ConfigMissingDataset, kind)

	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() { loadDefaultAWSConfig, newS3ClientFromConfig = origLoad, origNew })

	var gotRegion string
	var gotOpts s3.Options
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		gotRegion = lo.Region
		require.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) ObjectAPI {
		for _, fn := range optFns {
			fn(&gotOpts)
		}
		return newFake()
	}

	b, err := New(context.Background(), Options{Bucket: "b", Prefix: "x/", Region: "eu-west-1",
		Endpoint: "http://localhost:9000", AccessKey: "ak", SecretKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", gotRegion)
	assert.Equal(t, "http://localhost:9000", aws.ToString(gotOpts.BaseEndpoint))
	assert.True(t, gotOpts.UsePathStyle)
	assert.Equal(t, "x/requests.csv", b.key("requests"))

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}
	_, err = New(context.Background(), Options{Bucket: "b"})
	kind, _ = common.ConfigKind(err)
	assert.Equal(t, common.ConfigInvalidCredentials, kind)
}
