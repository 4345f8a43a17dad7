package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/de-tools/promo-lab/pkg/adapters"
	"github.com/de-tools/promo-lab/pkg/models/domain"
)

// Archiver keeps a durable copy of finished post-mortem reports.
type Archiver interface {
	ArchivePostMortem(ctx context.Context, report domain.PostMortemReport) (string, error)
}

type Settings struct {
	Bucket string
	Prefix string
	Region string
}

// New returns an S3 archiver when a bucket is configured, otherwise a no-op.
func New(ctx context.Context, settings Settings) (Archiver, error) {
	if settings.Bucket == "" {
		return NopArchiver{}, nil
	}
	return NewS3Archiver(ctx, settings)
}

type NopArchiver struct{}

func (NopArchiver) ArchivePostMortem(context.Context, domain.PostMortemReport) (string, error) {
	return "", nil
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver writes reports to keys like
//
//	<prefix>/postmortems/YYYY/MM/DD/<scenario_id>-<unix_nanos>.json
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader uploader
	now      func() time.Time
}

func NewS3Archiver(ctx context.Context, settings Settings) (*S3Archiver, error) {
	if settings.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}

	var opts []func(*awsConfig.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, awsConfig.WithRegion(settings.Region))
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Archiver{
		bucket:   settings.Bucket,
		prefix:   settings.Prefix,
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (a *S3Archiver) ArchivePostMortem(ctx context.Context, report domain.PostMortemReport) (string, error) {
	body, err := json.Marshal(adapters.MapPostMortemDomainToApi(report))
	if err != nil {
		return "", fmt.Errorf("marshal post-mortem: %w", err)
	}

	key := ObjectKey(a.prefix, "postmortems", report.ScenarioID, a.now())
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(a.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return key, nil
}

func ObjectKey(prefix, kind, id string, ts time.Time) string {
	year, month, day := ts.Date()
	return path.Join(prefix, kind,
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		fmt.Sprintf("%s-%d.json", id, ts.UnixNano()),
	)
}
