package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ObjectConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	UseSSL    bool   `json:"use_ssl"`
}

type Object struct {
	client    *minio.Client
	locations Locations
}

func NewObject(config ObjectConfig, locations Locations) (*Object, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect to object store: %w", err)
	}
	return &Object{client: client, locations: locations}, nil
}

func (s *Object) Save(ctx context.Context, kind Kind, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	location := s.locations[kind]
	_, err = s.client.PutObject(
		ctx,
		location.Bucket,
		location.Filename,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	return err
}

func (s *Object) Load(ctx context.Context, kind Kind, out any) error {
	location := s.locations[kind]
	obj, err := s.client.GetObject(ctx, location.Bucket, location.Filename, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var res minio.ErrorResponse
		if errors.As(err, &res) && res.Code == "NoSuchKey" {
			return ErrNotExist
		}
		return err
	}
	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

func (s *Object) PutBytes(ctx context.Context, kind Kind, name string, data []byte, contentType string) error {
	_, err := s.client.PutObject(
		ctx,
		s.locations[kind].Bucket,
		name,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	return err
}
