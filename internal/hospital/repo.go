package hospital

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Overview(ctx context.Context) (*Overview, error) {
	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				(SELECT COUNT(*) FROM doctors),
				(SELECT COUNT(*) FROM patients),
				(SELECT COUNT(*) FROM appointments);`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var overview Overview
	if err := rows.Scan(&overview.Doctors, &overview.Patients, &overview.Appointments); err != nil {
		return nil, err
	}
	return &overview, nil
}
