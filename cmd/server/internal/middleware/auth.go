package middleware

import (
	"context"
	"errors"
	"os"
	"reflect"

	"github.com/alexedwards/argon2id"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/hackcomp/grading-api/cmd/server/internal/models"
	"github.com/hackcomp/grading-api/cmd/server/internal/response"
	"github.com/hackcomp/grading-api/internal/logger"
)

// Used when doing a fake compare in the error case of BasicAuthValidator
var defaultHashForError string

// Generate a hash
func init() {
	var err error

	defaultHashForError, err = argon2id.CreateHash(
		"bnZSraUCS+nZh3MI8F3iiXbKFBcAyJhvAB6u/GBJzhC00ZPAQlyYVpQ+aryw7QvE2ZI=",
		argon2id.DefaultParams,
	)
	if err != nil {
		logger.Logger.Error("error creating default hash", "error", err)
		os.Exit(1)
	}
}

// Does a fake hash and compare for a hard coded password. Used when BasicAuthValidator hits an error or a nonexistent team.
func fakePasswordHash(ctx context.Context) {
	_, span := tracer.Start(ctx, "fakePasswordHash")
	defer span.End()

	_, err := argon2id.ComparePasswordAndHash("i am a very real password", defaultHashForError)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compare fake password with default hash for error")
		return
	}

	span.AddEvent("compared fake password and default hash for error")
}

// Validates a basic auth against the roster
func (h *Handler) BasicAuthValidator(teamName, password string, c echo.Context) (bool, error) {
	ctx, span := tracer.Start(c.Request().Context(), "BasicAuthValidator")
	defer span.End()

	db := h.DB.WithContext(ctx)

	span.SetAttributes(
		attribute.String("team", teamName),
	)

	span.AddEvent("getting team by name")
	team, err := models.TeamByName(ctx, db, teamName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "db error when searching for team")

		fakePasswordHash(ctx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// ok because Ok > Error
			span.SetStatus(codes.Ok, "team not found")
			return false, nil
		}

		return false, response.InternalServerError
	}

	span.SetAttributes(
		attribute.Bool("active.valid", team.Active.Valid),
		attribute.Bool("active.value", team.Active.V),
	)

	span.AddEvent("checking hash")
	comparison, oldParams, err := argon2id.CheckHash(password, team.Password)
	// All expensive ops have been performed that may result in a forbidden
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check password")
		return false, response.InternalServerError
	}

	if !team.Active.Valid || !team.Active.V {
		span.AddEvent("team is not active")
		return false, nil
	}

	if !reflect.DeepEqual(oldParams, argon2id.DefaultParams) {
		span.AddEvent("updating team with the new params")
		newHash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create new hash for password")
			return false, response.InternalServerError
		}

		team.Password = newHash

		span.AddEvent("saving new team to the database")
		err = db.Save(team).Error
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to save new hash to the database")
			return false, response.InternalServerError
		}
	}

	if comparison {
		span.AddEvent("successful login attempt")
		c.Set("team", team)
	} else {
		span.AddEvent("failed login attempt")
	}

	return comparison, nil
}
