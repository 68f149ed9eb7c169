// Package export turns a time-series query into a CSV object in S3 and hands
// back a short-lived download link.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/timestreamquery"
	tstypes "github.com/aws/aws-sdk-go-v2/service/timestreamquery/types"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/vignesh-goutham/artemis-capture/pkg/logger"
)

// QueryAPI is the subset of the Timestream query client used here
type QueryAPI interface {
	Query(ctx context.Context, params *timestreamquery.QueryInput, optFns ...func(*timestreamquery.Options)) (*timestreamquery.QueryOutput, error)
}

// ObjectAPI is the subset of the S3 client used here
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs download links
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ErrInvalidRequest marks a request rejected before any backend call
var ErrInvalidRequest = errors.New("invalid export request")

var measurePattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// Request selects one measure over a time range
type Request struct {
	Measure string    `json:"measure"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
}

// Validate rejects requests that would build an unsafe or empty query
func (r Request) Validate() error {
	if r.Measure == "" {
		return errors.Wrap(ErrInvalidRequest, "measure is required")
	}
	if !measurePattern.MatchString(r.Measure) {
		return errors.Wrapf(ErrInvalidRequest, "measure %q contains unsupported characters", r.Measure)
	}
	if r.From.IsZero() || r.To.IsZero() {
		return errors.Wrap(ErrInvalidRequest, "from and to are required")
	}
	if !r.From.Before(r.To) {
		return errors.Wrap(ErrInvalidRequest, "from must be before to")
	}
	return nil
}

// Result describes the uploaded export
type Result struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	Rows      int    `json:"rows"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

// Exporter runs exports against one database table and bucket
type Exporter struct {
	query     QueryAPI
	objects   ObjectAPI
	presigner Presigner
	database  string
	table     string
	bucket    string
	urlTTL    time.Duration
	now       func() time.Time
	newID     func() string
}

// Options configures an Exporter
type Options struct {
	Database string
	Table    string
	Bucket   string
	URLTTL   time.Duration
}

// NewExporter returns an Exporter
func NewExporter(query QueryAPI, objects ObjectAPI, presigner Presigner, opts Options) *Exporter {
	return &Exporter{
		query:     query,
		objects:   objects,
		presigner: presigner,
		database:  opts.Database,
		table:     opts.Table,
		bucket:    opts.Bucket,
		urlTTL:    opts.URLTTL,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// NewFromConfig builds an Exporter on Timestream and S3 clients from cfg
func NewFromConfig(cfg aws.Config, opts Options) *Exporter {
	s3Client := s3.NewFromConfig(cfg)
	return NewExporter(timestreamquery.NewFromConfig(cfg), s3Client, s3.NewPresignClient(s3Client), opts)
}

// Run executes the export
func (e *Exporter) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.bucket == "" {
		return nil, errors.New("export bucket is not configured")
	}

	body, rows, err := e.queryCSV(ctx, e.buildQuery(req))
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s_%s_%s.csv",
		req.Measure,
		req.From.UTC().Format("20060102T150405Z"),
		req.To.UTC().Format("20060102T150405Z"),
		e.newID())

	_, err = e.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upload export %s", key)
	}

	signed, err := e.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(e.urlTTL))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to presign export %s", key)
	}

	logger.Infow("Export uploaded", "bucket", e.bucket, "key", key, "rows", rows)
	return &Result{
		Bucket:    e.bucket,
		Key:       key,
		Rows:      rows,
		URL:       signed.URL,
		ExpiresAt: e.now().Add(e.urlTTL).UTC().Format(time.RFC3339),
	}, nil
}

func (e *Exporter) buildQuery(req Request) string {
	return fmt.Sprintf(
		`SELECT time, measure_name, measure_value::double AS value FROM "%s"."%s" `+
			`WHERE measure_name = '%s' `+
			`AND time BETWEEN from_iso8601_timestamp('%s') AND from_iso8601_timestamp('%s') `+
			`ORDER BY time ASC`,
		e.database, e.table, req.Measure,
		req.From.UTC().Format(time.RFC3339), req.To.UTC().Format(time.RFC3339))
}

// queryCSV pages through the query and writes a header plus one line per row
func (e *Exporter) queryCSV(ctx context.Context, query string) ([]byte, int, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	paginator := timestreamquery.NewQueryPaginator(e.query, &timestreamquery.QueryInput{
		QueryString: aws.String(query),
	})

	rows := 0
	wroteHeader := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, 0, errors.Wrap(err, "failed to query time series")
		}
		if !wroteHeader && len(page.ColumnInfo) > 0 {
			header := make([]string, len(page.ColumnInfo))
			for i, col := range page.ColumnInfo {
				header[i] = aws.ToString(col.Name)
			}
			if err := w.Write(header); err != nil {
				return nil, 0, errors.Wrap(err, "failed to write csv header")
			}
			wroteHeader = true
		}
		for _, row := range page.Rows {
			if err := w.Write(rowValues(row)); err != nil {
				return nil, 0, errors.Wrap(err, "failed to write csv row")
			}
			rows++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, errors.Wrap(err, "failed to flush csv")
	}
	return buf.Bytes(), rows, nil
}

func rowValues(row tstypes.Row) []string {
	values := make([]string, len(row.Data))
	for i, datum := range row.Data {
		if datum.ScalarValue != nil {
			values[i] = *datum.ScalarValue
		}
	}
	return values
}
