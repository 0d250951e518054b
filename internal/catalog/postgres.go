package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository resolves products from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a catalog repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Network fetches an active network by code.
func (r *PostgresRepository) Network(ctx context.Context, code string) (Network, error) {
	row := r.db.QueryRow(ctx, `SELECT code, name, airtime_markup, active
        FROM networks WHERE code = $1`, code)
	var n Network
	if err := row.Scan(&n.Code, &n.Name, &n.AirtimeMarkup, &n.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Network{}, ErrUnavailable
		}
		return Network{}, err
	}
	if !n.Active {
		return Network{}, ErrUnavailable
	}
	return n, nil
}

// DataPlan fetches an active data plan by identifier.
func (r *PostgresRepository) DataPlan(ctx context.Context, id string) (DataPlan, error) {
	row := r.db.QueryRow(ctx, `SELECT id, network_code, name, price, active
        FROM data_plans WHERE id = $1`, id)
	var p DataPlan
	if err := row.Scan(&p.ID, &p.NetworkCode, &p.Name, &p.Price, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DataPlan{}, ErrUnavailable
		}
		return DataPlan{}, err
	}
	if !p.Active {
		return DataPlan{}, ErrUnavailable
	}
	return p, nil
}
