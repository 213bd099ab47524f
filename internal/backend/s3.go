package backend

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Credentials is the narrow set of fields DuckDB's httpfs S3 PRAGMAs need.
type S3Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// ResolveS3Credentials resolves credentials through the AWS SDK's default provider chain
// (environment, shared config, IMDS, etc). A resolution failure is non-fatal: it returns a
// zero S3Credentials so the caller can fall back to explicit config values or proceed
// without S3 access.
func ResolveS3Credentials(ctx context.Context, region string) (S3Credentials, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return S3Credentials{}, fmt.Errorf("load aws config: %w", err)
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return S3Credentials{}, fmt.Errorf("retrieve aws credentials: %w", err)
	}
	return S3Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
	}, nil
}

// ExpandS3Glob lists the objects under an s3://bucket/prefix*.parquet-style path and returns
// their fully-qualified s3:// URIs. Only a single "*" in the final path component is
// supported, matching the CLI's narrow globbing needs; a path with no "*"
// is returned unchanged as a single-element slice.
func ExpandS3Glob(ctx context.Context, region, uri string) ([]string, error) {
	if !strings.Contains(uri, "*") {
		return []string{uri}, nil
	}

	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return nil, err
	}

	prefix, suffix, ok := splitGlobSegment(key)
	if !ok {
		return nil, fmt.Errorf("unsupported glob shape in %q: only a single '*' in the final path segment is supported", uri)
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	var matches []string
	var continuationToken *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range out.Contents {
			k := aws.ToString(obj.Key)
			if suffix != "" && !strings.HasSuffix(k, suffix) {
				continue
			}
			matches = append(matches, fmt.Sprintf("s3://%s/%s", bucket, k))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	return matches, nil
}

func splitS3URI(uri string) (bucket, key string, err error) {
	const prefix = "s3://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("not an s3:// uri: %q", uri)
	}
	rest := uri[len(prefix):]
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("s3 uri missing bucket or key: %q", uri)
	}
	return parts[0], parts[1], nil
}

// splitGlobSegment splits a key like "orders/2024-*.parquet" into its literal prefix
// ("orders/2024-") and literal suffix (".parquet") around the single "*" in its final path
// component.
func splitGlobSegment(key string) (prefix, suffix string, ok bool) {
	dir, base := path.Split(key)
	starIdx := strings.Index(base, "*")
	if starIdx < 0 || strings.Contains(base[starIdx+1:], "*") {
		return "", "", false
	}
	return dir + base[:starIdx], base[starIdx+1:], true
}
