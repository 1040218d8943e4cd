package cache

import (
	"context"
	"time"

	"watchlist/pkg/models"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"
)

const metadataPrefix = "tmdb:title:"

// RedisMetadata caches lookup results in Redis as protobuf structs.
type RedisMetadata struct {
	redis  *Redis
	logger *logrus.Logger
}

func NewRedisMetadata(r *Redis, logger *logrus.Logger) *RedisMetadata {
	return &RedisMetadata{redis: r, logger: logger}
}

func (m *RedisMetadata) Get(ctx context.Context, key string) (*models.MetadataResult, bool) {
	var s structpb.Struct
	if !m.redis.GetProto(ctx, metadataPrefix+key, &s) {
		return nil, false
	}
	return fromStruct(&s), true
}

func (m *RedisMetadata) Set(ctx context.Context, key string, result *models.MetadataResult, ttl time.Duration) {
	s, err := toStruct(result)
	if err == nil {
		err = m.redis.SetProto(ctx, metadataPrefix+key, s, ttl)
	}
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("failed to cache metadata result")
	}
}

func toStruct(r *models.MetadataResult) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"title":       r.Title,
		"external_id": r.ExternalID,
		"image_url":   r.ImageURL,
		"description": r.Description,
	})
}

func fromStruct(s *structpb.Struct) *models.MetadataResult {
	f := s.GetFields()
	return &models.MetadataResult{
		Title:       f["title"].GetStringValue(),
		ExternalID:  f["external_id"].GetStringValue(),
		ImageURL:    f["image_url"].GetStringValue(),
		Description: f["description"].GetStringValue(),
	}
}

// LocalMetadata caches lookup results in process memory.
type LocalMetadata struct {
	items *gocache.Cache
}

func NewLocalMetadata(cleanupInterval time.Duration) *LocalMetadata {
	return &LocalMetadata{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *LocalMetadata) Get(_ context.Context, key string) (*models.MetadataResult, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	r := v.(models.MetadataResult)
	return &r, true
}

func (m *LocalMetadata) Set(_ context.Context, key string, result *models.MetadataResult, ttl time.Duration) {
	m.items.Set(key, *result, ttl)
}
