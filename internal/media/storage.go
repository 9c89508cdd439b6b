package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage persists encoded assets under relative keys
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// LocalStorage writes files below a root directory
type LocalStorage struct {
	root string
}

// NewLocalStorage returns a storage rooted at root
func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

// Path returns the absolute location of key
func (s *LocalStorage) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	// O_EXCL so a generated name can never overwrite an existing asset
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return f.Close()
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// S3API is the subset of the S3 client used for media
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores assets in a bucket using the relative path as key
type S3Storage struct {
	svc    S3API
	bucket string
}

// S3Options configures NewS3Storage
type S3Options struct {
	Bucket   string
	Region   string
	Endpoint string // e.g. a LocalStack or MinIO URL
}

// NewS3Storage loads the default AWS configuration and builds a client
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	svc := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})
	return NewS3StorageWithClient(svc, opts.Bucket), nil
}

// NewS3StorageWithClient wraps an existing client
func NewS3StorageWithClient(svc S3API, bucket string) *S3Storage {
	return &S3Storage{svc: svc, bucket: bucket}
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// MemoryStorage keeps assets in a map. Used by tests and dry runs.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailOn makes Put fail for the listed keys
	FailOn map[string]error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: map[string][]byte{}}
}

func (s *MemoryStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailOn[key]; err != nil {
		return err
	}
	if _, exists := s.objects[key]; exists {
		return fmt.Errorf("object %s already exists", key)
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns a stored object
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Keys returns every stored key sorted
func (s *MemoryStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
