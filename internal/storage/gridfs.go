// Package storage guarda los archivos subidos (comprobantes, banners, productos) en GridFS.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrFileNotFound = errors.New("archivo no encontrado")

type FileInfo struct {
	ID          string
	Name        string
	Category    string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName("uploads"))
	if err != nil {
		return nil, err
	}
	return &GridFSStore{bucket: bucket}, nil
}

// Put guarda el contenido. UploadFromStream no recibe ctx: una subida no se
// cancela una vez empezada.
func (s *GridFSStore) Put(ctx context.Context, name, contentType, category string, r io.Reader) (*FileInfo, error) {
	meta := bson.M{"contentType": contentType, "category": category}
	id, err := s.bucket.UploadFromStream(name, r, options.GridFSUpload().SetMetadata(meta))
	if err != nil {
		return nil, fmt.Errorf("gridfs upload %q: %w", name, err)
	}

	info, err := s.Stat(ctx, id.Hex())
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *GridFSStore) Stat(ctx context.Context, fileID string) (*FileInfo, error) {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil, ErrFileNotFound
	}
	cur, err := s.bucket.FindContext(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, err
		}
		return nil, ErrFileNotFound
	}
	var f gridfs.File
	if err := cur.Decode(&f); err != nil {
		return nil, err
	}
	return toInfo(fileID, &f), nil
}

// Open devuelve un stream para leer el archivo.
func (s *GridFSStore) Open(ctx context.Context, fileID string) (io.ReadCloser, *FileInfo, error) {
	info, err := s.Stat(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	oid, _ := primitive.ObjectIDFromHex(fileID)
	stream, err := s.bucket.OpenDownloadStream(oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, ErrFileNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return stream, info, nil
}

// Delete es idempotente: un id desconocido no es error.
func (s *GridFSStore) Delete(ctx context.Context, fileID string) error {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return nil
	}
	err = s.bucket.DeleteContext(ctx, oid)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil
	}
	return err
}

func toInfo(id string, f *gridfs.File) *FileInfo {
	info := &FileInfo{
		ID:         id,
		Name:       f.Name,
		Size:       f.Length,
		UploadedAt: f.UploadDate,
	}
	if f.Metadata != nil {
		if v, ok := f.Metadata.Lookup("contentType").StringValueOK(); ok {
			info.ContentType = v
		}
		if v, ok := f.Metadata.Lookup("category").StringValueOK(); ok {
			info.Category = v
		}
	}
	return info
}
