// Package s3 loads CSV sources from S3-compatible object storage.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/couchcryptid/risk-asset-explorer/internal/config"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
)

// Client opens objects addressed by s3://bucket/key URIs.
type Client struct {
	api *awss3.Client
}

// NewClient builds an S3 client from the default AWS credential chain, with
// region, endpoint, and path-style addressing taken from cfg.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	api := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = cfg.S3PathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	return &Client{api: api}, nil
}

// NewClientFromAPI wraps an existing SDK client.
func NewClientFromAPI(api *awss3.Client) *Client {
	return &Client{api: api}
}

// Open returns a fetcher for the object named by uri.
func (c *Client) Open(uri string) (*Object, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return &Object{api: c.api, bucket: bucket, key: key}, nil
}

// Object is one CSV object.
type Object struct {
	api    *awss3.Client
	bucket string
	key    string
}

// Fetch streams the object body. The caller closes the reader.
func (o *Object) Fetch(ctx context.Context) (io.ReadCloser, error) {
	out, err := o.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrFetchFailure, o.Source(), err)
	}
	return out.Body, nil
}

// Source returns the s3:// URI of the object.
func (o *Object) Source() string {
	return "s3://" + o.bucket + "/" + o.key
}

// ParseURI splits s3://bucket/key into its parts.
func ParseURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 uri %q: %w", uri, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("parse s3 uri %q: scheme must be s3", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("parse s3 uri %q: bucket and key required", uri)
	}
	return u.Host, key, nil
}
