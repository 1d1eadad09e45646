// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// DefaultVectorDimension 默认向量维度
	DefaultVectorDimension = 1024

	fieldID     = "id"
	fieldVector = "vector"
	fieldText   = "text"
)

// metadataFields 分块元数据列，与 entity 包的元数据键一一对应
var metadataFields = []string{
	"collection_name",
	"file_name",
	"file_type",
	"tag",
	"title",
}

// ChunkSchema 知识库分块 Collection Schema
func ChunkSchema(collectionName, description string, dim int) *entity.Schema {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}

	fields := []*entity.Field{
		{
			Name:       fieldID,
			DataType:   entity.FieldTypeVarChar,
			PrimaryKey: true,
			AutoID:     false,
			TypeParams: map[string]string{
				"max_length": "64",
			},
		},
		{
			Name:     fieldVector,
			DataType: entity.FieldTypeFloatVector,
			TypeParams: map[string]string{
				"dim": strconv.Itoa(dim),
			},
		},
		{
			Name:     fieldText,
			DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{
				"max_length": "65535",
			},
		},
	}
	for _, name := range metadataFields {
		fields = append(fields, &entity.Field{
			Name:     name,
			DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{
				"max_length": "512",
			},
		})
	}

	return &entity.Schema{
		CollectionName: collectionName,
		Description:    description,
		Fields:         fields,
	}
}
