package storage

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/courier-client/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveAssignment(a *models.Assignment) error {
	_, err := p.db.Exec(`INSERT INTO assignments(order_id, rider_id, unique_key, requester_lat, requester_lng, address, status, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.OrderID, a.RiderID, a.UniqueKey, a.Requester.Lat, a.Requester.Lng, a.Address, a.Status, a.CreatedAt, a.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateAssignment(a *models.Assignment) error {
	_, err := p.db.Exec(`UPDATE assignments SET rider_id=$1, status=$2, updated_at=$3 WHERE order_id=$4`, a.RiderID, a.Status, time.Now(), a.OrderID)
	return err
}
