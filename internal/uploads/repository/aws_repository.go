package repository

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
}

func NewAwsRepository(client *s3.Client, preSignClient *s3.PresignClient) uploads.BlobRepository {
	return &awsRepository{
		client:        client,
		preSignClient: preSignClient,
	}
}

func (a *awsRepository) GetPresignedPutURL(ctx context.Context, input *models.PresignInput) (string, error) {
	putObjectReq, err := a.preSignClient.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &input.Bucket,
			Key:           &input.Key,
			ContentLength: &input.Size,
			ContentType:   &input.ContentType,
		},
		s3.WithPresignExpires(input.Expiry),
	)
	if err != nil {
		return "", errors.Wrap(err, "awsRepository.GetPresignedPutURL")
	}
	return putObjectReq.URL, nil
}

func (a *awsRepository) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	res, err := a.client.GetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &bucket,
			Key:    &key,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "awsRepository.GetObject")
	}
	return res.Body, nil
}

func (a *awsRepository) PutObject(ctx context.Context, input *models.BlobUploadInput) error {
	_, err := a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:      &input.Bucket,
			Key:         &input.Key,
			ContentType: &input.ContentType,
			Body:        input.File,
		},
	)
	if err != nil {
		return errors.Wrap(err, "awsRepository.PutObject")
	}
	return nil
}

func (a *awsRepository) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "awsRepository.ListObjects")
		}
		for _, obj := range page.Contents {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

func (a *awsRepository) RemoveObject(ctx context.Context, bucket, key string) error {
	_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return errors.Wrap(err, "awsRepository.RemoveObject")
	}
	return nil
}

// RemovePrefix discards every object under prefix. Used to drop partial
// rendition output after a failed or cancelled job.
func (a *awsRepository) RemovePrefix(ctx context.Context, bucket, prefix string) error {
	keys, err := a.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err = a.RemoveObject(ctx, bucket, key); err != nil {
			return err
		}
	}
	return nil
}
