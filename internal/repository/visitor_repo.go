package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/newsdesk-api/internal/database"
	"github.com/newsdesk-api/internal/models"
)

const visitorColumns = `id, ip_address, user_id, visitor_name, user_agent, page_visited, referrer,
	device_type, browser, country, city, push_token, is_subscribed_push, created_at`

type visitorRepo struct {
	db *database.DB
}

// NewVisitorRepo creates a new visitor analytics repository
func NewVisitorRepo(db *database.DB) VisitorRepository {
	return &visitorRepo{db: db}
}

// Create records a visit
func (r *visitorRepo) Create(ctx context.Context, v *models.Visit) error {
	query := `
		INSERT INTO visitor_data (` + visitorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, nullString(v.IPAddress), nullStringPtr(v.UserID), nullString(v.VisitorName),
		nullString(v.UserAgent), nullString(v.PageVisited), nullString(v.Referrer),
		nullString(v.DeviceType), nullString(v.Browser), nullString(v.Country), nullString(v.City),
		nullString(v.PushToken), v.IsSubscribedPush, v.CreatedAt,
	)
	return err
}

// List returns the newest visits matching filter
func (r *visitorRepo) List(ctx context.Context, filter models.VisitorFilter) ([]*models.Visit, error) {
	var visits []*models.Visit
	err := r.StreamAll(ctx, filter, func(v *models.Visit) error {
		visits = append(visits, v)
		return nil
	})
	return visits, err
}

// StreamAll passes every visit matching filter to callback, newest first
func (r *visitorRepo) StreamAll(ctx context.Context, filter models.VisitorFilter, callback func(*models.Visit) error) error {
	sb := psql.Select(visitorColumns).From("visitor_data").OrderBy("created_at DESC")
	if filter.Search != "" {
		sb = sb.Where(visitorSearch(filter.SearchField, "%"+filter.Search+"%"))
	}
	if filter.DeviceType != "" && filter.DeviceType != "all" {
		sb = sb.Where(squirrel.Eq{"device_type": filter.DeviceType})
	}
	if filter.Limit > 0 {
		sb = sb.Limit(uint64(filter.Limit))
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return err
		}
		if err := callback(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// DeleteOlderThan removes visits recorded before cutoff
func (r *visitorRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM visitor_data WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func visitorSearch(field models.VisitorSearchField, pattern string) squirrel.Sqlizer {
	switch field {
	case models.SearchIP:
		return squirrel.ILike{"ip_address": pattern}
	case models.SearchName:
		return squirrel.ILike{"visitor_name": pattern}
	case models.SearchUser:
		return squirrel.ILike{"user_id": pattern}
	default:
		return squirrel.Or{
			squirrel.ILike{"ip_address": pattern},
			squirrel.ILike{"visitor_name": pattern},
			squirrel.ILike{"user_id": pattern},
			squirrel.ILike{"page_visited": pattern},
		}
	}
}

func scanVisit(row rowScanner) (*models.Visit, error) {
	var v models.Visit
	var ip, userID, name, ua, page, referrer, device, browser, country, city, pushToken sql.NullString
	err := row.Scan(&v.ID, &ip, &userID, &name, &ua, &page, &referrer,
		&device, &browser, &country, &city, &pushToken, &v.IsSubscribedPush, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.IPAddress = ip.String
	v.VisitorName = name.String
	v.UserAgent = ua.String
	v.PageVisited = page.String
	v.Referrer = referrer.String
	v.DeviceType = device.String
	v.Browser = browser.String
	v.Country = country.String
	v.City = city.String
	v.PushToken = pushToken.String
	if userID.Valid {
		v.UserID = &userID.String
	}
	return &v, nil
}
