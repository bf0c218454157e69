package models

import (
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"gorm.io/datatypes"
)

const name string = "github.com/hackcomp/grading-api/cmd/server/internal/models"

var tracer = otel.Tracer(name)

// Derived from gorm.Model
type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ID        uuid.UUID `gorm:"primaryKey;default:uuidv7_sub_ms()"`
}

// Transmutes a pointer into a [datatypes.Null]
func NewNull[T any](d *T) datatypes.Null[T] {
	if d != nil {
		return datatypes.NewNull(*d)
	}

	return datatypes.Null[T]{}
}

// Transmutes data into valid [datatypes.Null]
func NewNullFromData[T any](d T) datatypes.Null[T] {
	return datatypes.NewNull(d)
}
