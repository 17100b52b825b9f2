package s3

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/tsforecast/internal/storage/implementations/file"
	"github.com/inferloop/tsforecast/pkg/constants"
	"github.com/inferloop/tsforecast/pkg/errors"
	"github.com/inferloop/tsforecast/pkg/models"
)

// S3Config holds configuration for the S3 CSV source
type S3Config struct {
	Region          string        `json:"region" mapstructure:"region"`
	AccessKeyID     string        `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string        `json:"secret_access_key" mapstructure:"secret_access_key"`
	SessionToken    string        `json:"session_token,omitempty" mapstructure:"session_token"`
	Endpoint        string        `json:"endpoint,omitempty" mapstructure:"endpoint"`
	ForcePathStyle  bool          `json:"force_path_style" mapstructure:"force_path_style"`
	DisableSSL      bool          `json:"disable_ssl" mapstructure:"disable_ssl"`
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries      int           `json:"max_retries" mapstructure:"max_retries"`
}

// S3Source loads CSV objects addressed as bucket/key
type S3Source struct {
	config     *S3Config
	s3Client   *s3.S3
	downloader *s3manager.Downloader
	logger     *logrus.Logger
	mu         sync.RWMutex
	closed     bool
}

// NewS3Source creates a new S3 source instance
func NewS3Source(config *S3Config, logger *logrus.Logger) (*S3Source, error) {
	if config == nil {
		return nil, errors.NewStorageError("INVALID_CONFIG", "S3 config cannot be nil")
	}

	if config.Region == "" {
		return nil, errors.NewStorageError("INVALID_CONFIG", "S3 region is required")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &S3Source{
		config: config,
		logger: logger,
	}, nil
}

// GetType returns the source scheme
func (s *S3Source) GetType() string {
	return constants.SchemeS3
}

// Connect creates the AWS session
func (s *S3Source) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3Client != nil {
		return nil
	}

	awsConfig := &aws.Config{
		Region:     aws.String(s.config.Region),
		MaxRetries: aws.Int(s.config.MaxRetries),
	}

	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			s.config.SessionToken,
		)
	}

	// S3-compatible services
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}

	if s.config.DisableSSL {
		awsConfig.DisableSSL = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.NewSourceError("s3", s.config.Region, "connect", err)
	}

	s.s3Client = s3.New(sess)
	s.downloader = s3manager.NewDownloader(sess)
	s.closed = false

	s.logger.WithFields(logrus.Fields{
		"region":   s.config.Region,
		"endpoint": s.config.Endpoint,
	}).Debug("Connected to S3")

	return nil
}

// Close closes the S3 connection
func (s *S3Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.s3Client = nil
	s.downloader = nil
	s.closed = true
	return nil
}

// Ping checks the client is connected
func (s *S3Source) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.s3Client == nil {
		return errors.NewStorageError("NOT_CONNECTED", "S3 not connected")
	}
	return nil
}

// Load downloads bucket/key and parses it as CSV. Keys ending in .gz are
// decompressed first.
func (s *S3Source) Load(ctx context.Context, location string) (*models.Frame, error) {
	bucket, key, err := SplitLocation(location)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	downloader := s.downloader
	s.mu.RUnlock()
	if downloader == nil {
		return nil, errors.NewStorageError("NOT_CONNECTED", "S3 not connected")
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	buf := aws.NewWriteAtBuffer([]byte{})
	n, err := downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.NewDataNotFoundError("s3", location)
		}
		if strings.Contains(err.Error(), "NoSuchKey") {
			return nil, errors.NewDataNotFoundError("s3", location)
		}
		return nil, errors.NewSourceError("s3", location, "download", err)
	}

	var r io.Reader = bytes.NewReader(buf.Bytes())
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.NewSourceError("s3", location, "decompress", err)
		}
		defer gz.Close()
		r = gz
	}

	frame, err := file.ParseCSV(key, r, ',')
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"bucket":   bucket,
		"key":      key,
		"bytes":    n,
		"rows":     frame.Len(),
		"duration": time.Since(start),
	}).Debug("Loaded CSV object from S3")

	return frame, nil
}

// SplitLocation splits "bucket/key" into its parts
func SplitLocation(location string) (bucket, key string, err error) {
	location = strings.TrimPrefix(location, "/")
	parts := strings.SplitN(location, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.NewInputError(errors.CodeInvalidSource,
			fmt.Sprintf("S3 location must be bucket/key, got %q", location))
	}
	return parts[0], parts[1], nil
}
