package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() teamdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, team *teamdomain.Team) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO teams (
			id, external_id, title, slug, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		team.ID,
		team.ExternalID,
		team.Title,
		team.Slug,
		team.CreatedAt,
		team.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, team *teamdomain.Team) error {
	return db.WithContext(ctx).Exec(
		`UPDATE teams SET title = ?, slug = ?, updated_at = ? WHERE id = ?`,
		team.Title,
		team.Slug,
		team.UpdatedAt,
		team.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*teamdomain.Team, error) {
	var team teamdomain.Team
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, title, slug, created_at, updated_at FROM teams WHERE id = ?`,
		id,
	).Scan(&team).Error
	if err != nil {
		return nil, err
	}
	if team.ID == 0 {
		return nil, nil
	}
	return &team, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID int64) (*teamdomain.Team, error) {
	var team teamdomain.Team
	err := db.WithContext(ctx).Raw(
		`SELECT id, external_id, title, slug, created_at, updated_at FROM teams WHERE external_id = ?`,
		externalID,
	).Scan(&team).Error
	if err != nil {
		return nil, err
	}
	if team.ID == 0 {
		return nil, nil
	}
	return &team, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM teams`).Scan(&count).Error
	return count, err
}

func (r *repo) InsertMembership(ctx context.Context, db *gorm.DB, membership *teamdomain.TeamMember) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO team_members (id, team_id, member_id, created_at) VALUES (?, ?, ?, ?)`,
		membership.ID,
		membership.TeamID,
		membership.MemberID,
		membership.CreatedAt,
	).Error
}

func (r *repo) DeleteMembership(ctx context.Context, db *gorm.DB, teamID, memberID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM team_members WHERE team_id = ? AND member_id = ?`,
		teamID,
		memberID,
	).Error
}

func (r *repo) ListMemberIDs(ctx context.Context, db *gorm.DB, teamID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT member_id FROM team_members WHERE team_id = ? ORDER BY created_at ASC, id ASC`,
		teamID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ListTeamsByMemberID(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]teamdomain.Team, error) {
	var teams []teamdomain.Team
	err := db.WithContext(ctx).Raw(
		`SELECT t.id, t.external_id, t.title, t.slug, t.created_at, t.updated_at
		 FROM teams t
		 JOIN team_members tm ON tm.team_id = t.id
		 WHERE tm.member_id = ?
		 ORDER BY t.id ASC`,
		memberID,
	).Scan(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *repo) HasMembership(ctx context.Context, db *gorm.DB, teamID, memberID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM team_members WHERE team_id = ? AND member_id = ?`,
		teamID,
		memberID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
