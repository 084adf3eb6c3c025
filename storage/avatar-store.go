package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"crm-project/backend/logging"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("file not found")

// AvatarStore keeps employee avatars in a GridFS bucket. Uploading under an
// existing name replaces the previous file.
type AvatarStore struct {
	bucket  *gridfs.Bucket
	baseURL string
}

func NewAvatarStore(db *mongo.Database, publicBaseURL string) (*AvatarStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("avatars"))
	if err != nil {
		return nil, fmt.Errorf("failed to open avatars bucket: %w", err)
	}
	return &AvatarStore{bucket: bucket, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Upload writes the file and returns its public URL (without cache buster).
func (s *AvatarStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := s.remove(ctx, name); err != nil {
		return "", err
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{"contentType": contentType})
	if _, err := s.bucket.UploadFromStream(name, r, opts); err != nil {
		return "", fmt.Errorf("failed to upload avatar %s: %w", name, err)
	}
	logging.Logger.Infof("Event ID: AVATAR_UPLOADED, Description: Avatar %s stored", name)
	return s.PublicURL(name), nil
}

func (s *AvatarStore) remove(ctx context.Context, name string) error {
	cursor, err := s.bucket.FindContext(ctx, bson.M{"filename": name})
	if err != nil {
		return fmt.Errorf("failed to look up avatar %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var f struct {
			ID interface{} `bson:"_id"`
		}
		if err := cursor.Decode(&f); err != nil {
			return fmt.Errorf("failed to decode avatar file: %w", err)
		}
		if err := s.bucket.DeleteContext(ctx, f.ID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("failed to replace avatar %s: %w", name, err)
		}
	}
	return cursor.Err()
}

// Open streams a stored file. The caller closes it.
func (s *AvatarStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	var meta struct {
		Metadata struct {
			ContentType string `bson:"contentType"`
		} `bson:"metadata"`
	}
	cursor, err := s.bucket.FindContext(ctx, bson.M{"filename": name})
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up avatar %s: %w", name, err)
	}
	if cursor.Next(ctx) {
		_ = cursor.Decode(&meta)
	}
	cursor.Close(ctx)

	stream, err := s.bucket.OpenDownloadStreamByName(name)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open avatar %s: %w", name, err)
	}
	return stream, meta.Metadata.ContentType, nil
}

func (s *AvatarStore) PublicURL(name string) string {
	return s.baseURL + "/avatars/" + url.PathEscape(name)
}
