// Package media hands authenticated clients short-lived S3 URLs for video
// objects.
package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/shreels/tgauth/internal/common"
	sc "github.com/shreels/tgauth/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

var ErrInvalidKey = fmt.Errorf("%w: invalid media key", common.ErrorValidation)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".m4v":  "video/x-m4v",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mkv":  "video/x-matroska",
}

// PresignedURL is a time-limited GET URL for one object.
type PresignedURL struct {
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Presigner struct {
	config *sc.Config
	now    func() time.Time
}

func NewPresigner(cfg *sc.Config) *Presigner {
	return &Presigner{config: cfg, now: time.Now}
}

// ContentType validates key and returns the MIME type of its extension.
// Keys must name a video file and may not climb out of the bucket prefix.
func ContentType(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	ct, ok := videoContentTypes[strings.ToLower(path.Ext(key))]
	if !ok {
		return "", fmt.Errorf("%w: unsupported extension %q", ErrInvalidKey, path.Ext(key))
	}
	return ct, nil
}

func (p *Presigner) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(p.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.config.S3RootUser,
			p.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignGet returns a URL that streams key with the matching Content-Type
// until PresignTTL elapses.
func (p *Presigner) PresignGet(ctx context.Context, key string) (*PresignedURL, error) {
	ct, err := ContentType(key)
	if err != nil {
		return nil, err
	}
	key = strings.TrimPrefix(key, "/")

	presignClient, err := p.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 config: %w", common.ErrorConfiguration, err)
	}

	bucket := p.config.S3Bucket
	ttl := p.config.PresignTTL
	expires := p.now().Add(ttl)

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket:              &bucket,
		Key:                 &key,
		ResponseContentType: aws.String(ct),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, fmt.Errorf("%w: presign: %w", common.ErrorInternal, err)
	}

	return &PresignedURL{URL: req.URL, ContentType: ct, ExpiresAt: expires}, nil
}
