package s3store_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/stashbox"
	"github.com/sagarc03/stashbox/s3store"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.ListObjectsV2Output), args.Error(1)
}

func (m *MockAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func (m *MockAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

type MockPresigner struct {
	mock.Mock
}

func (m *MockPresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v4.PresignedHTTPRequest), args.Error(1)
}

const bucket = "uploads"

func newStore(t *testing.T) (*s3store.Store, *MockAPI, *MockPresigner) {
	t.Helper()
	api := new(MockAPI)
	presigner := new(MockPresigner)
	return s3store.NewWithClient(api, presigner, bucket), api, presigner
}

func forKey(key string) any {
	return mock.MatchedBy(func(in any) bool {
		switch v := in.(type) {
		case *s3.PutObjectInput:
			return aws.ToString(v.Bucket) == bucket && aws.ToString(v.Key) == key
		case *s3.GetObjectInput:
			return aws.ToString(v.Bucket) == bucket && aws.ToString(v.Key) == key
		case *s3.HeadObjectInput:
			return aws.ToString(v.Bucket) == bucket && aws.ToString(v.Key) == key
		case *s3.DeleteObjectInput:
			return aws.ToString(v.Bucket) == bucket && aws.ToString(v.Key) == key
		}
		return false
	})
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := s3store.New(context.Background(), s3store.Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestStore_Put(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()
	body := strings.NewReader("hello")

	api.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "a.txt" &&
			aws.ToString(in.ContentType) == "text/plain" &&
			aws.ToInt64(in.ContentLength) == 5 &&
			in.Body == body
	})).Return(&s3.PutObjectOutput{ETag: aws.String(`"abc123"`)}, nil)

	obj, err := store.Put(ctx, "a.txt", "text/plain", body, 5)
	require.NoError(t, err)

	assert.Equal(t, "a.txt", obj.Key)
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, "abc123", obj.ETag)
	assert.Equal(t, "text/plain", obj.ContentType)
	api.AssertExpectations(t)
}

func TestStore_Put_UnknownSize(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()

	api.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return in.ContentLength == nil && in.ContentType == nil
	})).Return(&s3.PutObjectOutput{}, nil)

	_, err := store.Put(ctx, "a.txt", "", strings.NewReader("x"), -1)
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestStore_Put_Error(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()

	sdkErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}
	api.On("PutObject", ctx, forKey("a.txt")).Return(nil, sdkErr)

	_, err := store.Put(ctx, "a.txt", "text/plain", strings.NewReader("x"), 1)

	var se *stashbox.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "put", se.Op)
	assert.Equal(t, sdkErr.Error(), se.Error())
	assert.NotErrorIs(t, err, stashbox.ErrNotFound)
}

func TestStore_Get(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()
	modified := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	api.On("GetObject", ctx, forKey("a.txt")).Return(&s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader("hello")),
		ContentLength: aws.Int64(5),
		ContentType:   aws.String("text/plain"),
		LastModified:  aws.Time(modified),
		ETag:          aws.String(`"abc"`),
	}, nil)

	obj, body, err := store.Get(ctx, "a.txt")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, stashbox.StoredObject{
		Key: "a.txt", Size: 5, LastModified: modified, ContentType: "text/plain", ETag: "abc",
	}, obj)
}

func TestStore_Get_DefaultContentType(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()

	api.On("GetObject", ctx, forKey("a.bin")).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("")),
	}, nil)

	obj, _, err := store.Get(ctx, "a.bin")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", obj.ContentType)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()

	api.On("GetObject", ctx, forKey("missing.txt")).Return(nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")})

	_, body, err := store.Get(ctx, "missing.txt")
	assert.Nil(t, body)
	assert.ErrorIs(t, err, stashbox.ErrNotFound)
	assert.Contains(t, err.Error(), "The specified key does not exist.")
}

func TestStore_List(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.Bucket) == bucket && in.ContinuationToken == nil
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("a.txt"), Size: aws.Int64(1), LastModified: aws.Time(t1), ETag: aws.String(`"e1"`)},
		},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("page2"),
	}, nil).Once()

	api.On("ListObjectsV2", mock.Anything, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "page2"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("b.txt"), Size: aws.Int64(2048), LastModified: aws.Time(t2)},
		},
		IsTruncated: aws.Bool(false),
	}, nil).Once()

	objects, err := store.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, []stashbox.StoredObject{
		{Key: "a.txt", Size: 1, LastModified: t1, ETag: "e1"},
		{Key: "b.txt", Size: 2048, LastModified: t2},
	}, objects)
	api.AssertExpectations(t)
}

func TestStore_List_Empty(t *testing.T) {
	store, api, _ := newStore(t)

	api.On("ListObjectsV2", mock.Anything, mock.Anything).Return(&s3.ListObjectsV2Output{}, nil)

	objects, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, objects)
	assert.Empty(t, objects)
}

func TestStore_List_Error(t *testing.T) {
	store, api, _ := newStore(t)

	api.On("ListObjectsV2", mock.Anything, mock.Anything).Return(nil, &types.NoSuchBucket{Message: aws.String("bucket gone")})

	_, err := store.List(context.Background())

	var se *stashbox.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "list", se.Op)
}

func TestStore_Delete(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()

	api.On("HeadObject", ctx, forKey("a.txt")).Return(&s3.HeadObjectOutput{}, nil)
	api.On("DeleteObject", ctx, forKey("a.txt")).Return(&s3.DeleteObjectOutput{}, nil)

	require.NoError(t, store.Delete(ctx, "a.txt"))
	api.AssertExpectations(t)
}

func TestStore_Delete_Missing(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()

	api.On("HeadObject", ctx, forKey("missing.txt")).Return(nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"})

	err := store.Delete(ctx, "missing.txt")
	assert.ErrorIs(t, err, stashbox.ErrNotFound)
	api.AssertNotCalled(t, "DeleteObject", mock.Anything, mock.Anything)
}

func TestStore_Delete_Error(t *testing.T) {
	store, api, _ := newStore(t)
	ctx := context.Background()

	api.On("HeadObject", ctx, forKey("a.txt")).Return(&s3.HeadObjectOutput{}, nil)
	api.On("DeleteObject", ctx, forKey("a.txt")).Return(nil, errors.New("connection reset"))

	err := store.Delete(ctx, "a.txt")
	assert.EqualError(t, err, "connection reset")
}

func TestStore_PresignGet(t *testing.T) {
	store, _, presigner := newStore(t)
	ctx := context.Background()

	presigner.On("PresignGetObject", ctx, forKey("a.txt")).
		Return(&v4.PresignedHTTPRequest{URL: "https://uploads.s3.amazonaws.com/a.txt?X-Amz-Signature=abc"}, nil)

	url, err := store.PresignGet(ctx, "a.txt", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://uploads.s3.amazonaws.com/a.txt?X-Amz-Signature=abc", url)
}

func TestStore_PresignGet_Error(t *testing.T) {
	store, _, presigner := newStore(t)
	ctx := context.Background()

	presigner.On("PresignGetObject", ctx, forKey("a.txt")).Return(nil, errors.New("no credentials"))

	_, err := store.PresignGet(ctx, "a.txt", time.Hour)
	assert.EqualError(t, err, "no credentials")
}
