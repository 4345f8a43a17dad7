package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/de-tools/promo-lab/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*manager.UploadOutput), args.Error(1)
}

func report() domain.PostMortemReport {
	return domain.PostMortemReport{
		ScenarioID: "scn-1",
		Period: domain.DateRange{
			Start: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC),
		},
		ActualSource: "provided",
		VsForecast:   map[string]float64{domain.ActualSalesValue: 0.2},
	}
}

func TestObjectKey(t *testing.T) {
	ts := time.Date(2024, 11, 5, 8, 0, 0, 42, time.UTC)
	assert.Equal(t, "reports/postmortems/2024/11/05/scn-1-1730793600000000042.json", ObjectKey("reports", "postmortems", "scn-1", ts))
	assert.Equal(t, "postmortems/2024/11/05/scn-1-1730793600000000042.json", ObjectKey("", "postmortems", "scn-1", ts))
}

func TestS3Archiver_ArchivePostMortem(t *testing.T) {
	up := new(MockUploader)
	a := &S3Archiver{
		bucket:   "promo-archive",
		prefix:   "prod",
		uploader: up,
		now:      func() time.Time { return time.Date(2024, 11, 5, 8, 0, 0, 0, time.UTC) },
	}

	var captured *s3.PutObjectInput
	up.On("Upload", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*s3.PutObjectInput)
		}).
		Return(&manager.UploadOutput{}, nil)

	key, err := a.ArchivePostMortem(context.Background(), report())
	require.NoError(t, err)
	assert.Equal(t, "prod/postmortems/2024/11/05/scn-1-1730793600000000000.json", key)

	require.NotNil(t, captured)
	assert.Equal(t, "promo-archive", aws.ToString(captured.Bucket))
	assert.Equal(t, key, aws.ToString(captured.Key))
	assert.Equal(t, s3types.ServerSideEncryptionAes256, captured.ServerSideEncryption)

	body, err := io.ReadAll(captured.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "scn-1", decoded["scenario_id"])
	assert.Equal(t, "provided", decoded["actual_source"])
}

func TestS3Archiver_UploadFailure(t *testing.T) {
	up := new(MockUploader)
	up.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied"))
	a := &S3Archiver{bucket: "b", uploader: up, now: time.Now}

	_, err := a.ArchivePostMortem(context.Background(), report())
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestNew_WithoutBucket(t *testing.T) {
	a, err := New(context.Background(), Settings{})
	require.NoError(t, err)

	key, err := a.ArchivePostMortem(context.Background(), report())
	require.NoError(t, err)
	assert.Empty(t, key)
}
