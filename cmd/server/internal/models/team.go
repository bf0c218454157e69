package models

import (
	"context"
	"fmt"

	"github.com/alexedwards/argon2id"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hackcomp/grading-api/internal/config"
)

type Team struct {
	Name     string   `gorm:"uniqueIndex"` // also the basic auth user and the ledger team number
	Password string   // argon2id hash
	Members  []string `gorm:"type:jsonb;serializer:json"`
	Model
	Active datatypes.Null[bool]
	Admin  bool
}

func (Team) TableName() string {
	return "teams"
}

// TeamByName fetches a roster entry by its login name.
func TeamByName(ctx context.Context, db *gorm.DB, teamName string) (*Team, error) {
	var team Team

	ctx, span := tracer.Start(ctx, "TeamByName", trace.WithAttributes(
		attribute.String("team", teamName),
	))
	defer span.End()

	db = db.WithContext(ctx)

	err := db.Where("name = ?", teamName).First(&team).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get team by name")
		return nil, err
	}

	return &team, nil
}

// ActiveTeamNames returns the roster in insertion order for a grading run.
func ActiveTeamNames(ctx context.Context, db *gorm.DB) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ActiveTeamNames")
	defer span.End()

	db = db.WithContext(ctx)

	var names []string
	err := db.Model(&Team{}).
		Where("active = ?", true).
		Order("created_at, name").
		Pluck("name", &names).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list active teams")
		return nil, err
	}

	span.SetAttributes(attribute.Int("teams", len(names)))
	return names, nil
}

// Config is the authoritative roster
//
// 1. Upsert team data
// 2. Disable teams not currently contained in the config
func LoadTeamsFromConfig(ctx context.Context, db *gorm.DB, teams []config.Team) error {
	ctx, span := tracer.Start(ctx, "LoadTeamsFromConfig")
	defer span.End()

	db = db.WithContext(ctx)

	teamsToUpsert := make([]*Team, len(teams))
	namesInConfig := make([]string, len(teams))
	for i, team := range teams {
		hash, err := argon2id.CreateHash(team.Password, argon2id.DefaultParams)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "error creating hash for team password")
			span.SetAttributes(attribute.String("failedTeam", team.Name))
			return err
		}

		newModel := Team{
			Name:     team.Name,
			Password: hash,
			Members:  team.Members,
			Active:   NewNull(team.Active),
			Admin:    team.Admin,
		}

		teamsToUpsert[i] = &newModel
		namesInConfig[i] = newModel.Name
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "LoadTeamsFromConfig/Transaction")
		defer span.End()

		tx = tx.WithContext(ctx)

		if len(teamsToUpsert) != 0 {
			span.AddEvent("upserting defined teams")
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				UpdateAll: true,
			}).Create(teamsToUpsert)
			if result.Error != nil {
				span.RecordError(result.Error)
				span.SetStatus(codes.Error, "failed to upsert defined teams")
				return fmt.Errorf("failed to upsert defined teams: %w", result.Error)
			}
			if result.RowsAffected != int64(len(teams)) {
				span.AddEvent("updated rows did not equal configured team count")
				span.SetAttributes(
					attribute.Int64("rowsAffected", result.RowsAffected),
					attribute.Int64("teams", int64(len(teams))),
				)
			}
		} else {
			span.AddEvent("no defined teams to upsert")
		}

		span.AddEvent("setting all rows not in defined roster inactive")

		result := tx.Model(&Team{}).
			Where("name NOT IN ?", namesInConfig).
			Updates(&Team{Active: NewNullFromData(false)})
		if result.Error != nil {
			span.RecordError(result.Error)
			span.SetStatus(codes.Error, "failed to set all rows not in defined roster inactive")
			return fmt.Errorf(
				"failed to set all rows not in defined roster inactive: %w",
				result.Error,
			)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "updated roster")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update roster")
		return fmt.Errorf("failed to update roster: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated roster")
	return nil
}
