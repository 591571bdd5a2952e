package filestorage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/cozy-creator/classify-server/internal/config"
)

type S3FileStorage struct {
	client *s3.Client
	cfg    *config.S3Config
}

func NewS3FileStorage(ctx context.Context, cfg *config.Config) (*S3FileStorage, error) {
	if cfg.S3 == nil {
		return nil, fmt.Errorf("s3 config is not set")
	}

	region := cfg.S3.Region
	if region == "" {
		region = "auto"
	}

	credentialsProvider := credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, "")
	awsCfg, err := awsConfig.LoadDefaultConfig(
		ctx,
		awsConfig.WithRegion(region),
		awsConfig.WithCredentialsProvider(credentialsProvider),
	)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.EndpointUrl != "" {
			o.BaseEndpoint = &cfg.S3.EndpointUrl
		}
	})

	return &S3FileStorage{
		client: s3Client,
		cfg:    cfg.S3,
	}, nil
}

func (u *S3FileStorage) key(file FileInfo) string {
	folder := strings.Trim(u.cfg.Folder, "/")
	if file.IsTemp {
		folder = "temp"
	}

	parts := []string{}
	for _, part := range []string{folder, strings.Trim(file.Subfolder, "/"), file.Filename()} {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, "/")
}

func (u *S3FileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	key := u.key(file)

	var (
		mtype   string
		content io.Reader
	)
	switch file.Kind {
	case FileKindBytes:
		data, ok := file.Content.([]byte)
		if !ok {
			return "", ErrUnknownFileKind
		}
		mtype = mimetype.Detect(data).String()
		content = bytes.NewReader(data)
	case FileKindStream:
		reader, ok := file.Content.(io.Reader)
		if !ok {
			return "", ErrUnknownFileKind
		}
		// Peek the header for sniffing without consuming the stream.
		buffered := bufio.NewReaderSize(reader, 3072)
		header, err := buffered.Peek(3072)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return "", err
		}
		mtype = mimetype.Detect(header).String()
		content = buffered
	default:
		return "", ErrUnknownFileKind
	}

	input := s3.PutObjectInput{
		Key:         &key,
		ContentType: &mtype,
		Bucket:      &u.cfg.Bucket,
		Body:        content,
		ACL:         types.ObjectCannedACLPublicRead,
	}
	if _, err := u.client.PutObject(ctx, &input); err != nil {
		return "", err
	}

	return u.publicURL(key), nil
}

// publicURL infers where an uploaded key is served from. Providers that
// cannot be inferred (R2 and friends) need public_url set.
func (u *S3FileStorage) publicURL(key string) string {
	if u.cfg.PublicUrl != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.cfg.PublicUrl, "/"), key)
	}

	switch {
	case strings.Contains(u.cfg.EndpointUrl, "digitaloceanspaces.com"):
		return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", u.cfg.Bucket, u.cfg.Region, key)
	case strings.Contains(u.cfg.EndpointUrl, "amazonaws.com"):
		endpoint := strings.TrimPrefix(u.cfg.EndpointUrl, "https://")
		endpoint = strings.TrimSuffix(endpoint, "/")
		return fmt.Sprintf("https://%s.%s/%s", u.cfg.Bucket, endpoint, key)
	case u.cfg.EndpointUrl == "":
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.cfg.Bucket, u.cfg.Region, key)
	}

	return ""
}

func (u *S3FileStorage) UploadMultiple(ctx context.Context, files []FileInfo) ([]string, error) {
	return uploadAll(ctx, u, files)
}

func (u *S3FileStorage) GetFile(ctx context.Context, filename string) (*FileInfo, error) {
	params := &s3.GetObjectInput{
		Bucket: &u.cfg.Bucket,
		Key:    &filename,
	}

	object, err := u.client.GetObject(ctx, params)
	if err != nil {
		return nil, err
	}
	defer object.Body.Close()

	content, err := io.ReadAll(object.Body)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	return &FileInfo{
		Name:      strings.TrimSuffix(filename, ext),
		Extension: ext,
		Content:   content,
		Kind:      FileKindBytes,
	}, nil
}

// ResolveFile has no local path for remote objects; it returns the key.
func (u *S3FileStorage) ResolveFile(filename string, subfolder string, isTemp bool) (string, error) {
	return u.key(FileInfo{Name: filename, Subfolder: subfolder, IsTemp: isTemp}), nil
}
