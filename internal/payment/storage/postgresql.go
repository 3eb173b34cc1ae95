package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"brewhub/internal/config"
	"brewhub/internal/logger"
	"brewhub/internal/models"
)

type PostgreSQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

func NewPostgreSQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*PostgreSQLStore, error) {
	log.LogDatabase("CONNECT", "payments", "Connecting to PostgreSQL")

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		log.Error("DATABASE", "Failed to open PostgreSQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := db.Ping(); err != nil {
		log.Error("DATABASE", "Failed to ping PostgreSQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgreSQLStore{db: db, log: log}

	if err := store.initTables(); err != nil {
		log.Error("DATABASE", "Failed to initialize payment tables: "+err.Error())
		return nil, fmt.Errorf("failed to initialize payment tables: %w", err)
	}

	log.LogDatabase("SUCCESS", "payments", "PostgreSQL connection established")
	return store, nil
}

func (s *PostgreSQLStore) initTables() error {
	s.log.LogDatabase("MIGRATE", "payments", "Creating payments table if not exists")

	query := `
    CREATE TABLE IF NOT EXISTS payments (
        payment_id   VARCHAR(64) PRIMARY KEY,
        order_id     VARCHAR(64) NOT NULL,
        status       VARCHAR(16) NOT NULL,
        amount       NUMERIC(10,2) NOT NULL,
        currency     VARCHAR(8) NOT NULL,
        session_id   VARCHAR(128),
        created_date TIMESTAMPTZ NOT NULL,
        updated_date TIMESTAMPTZ
    );
    CREATE INDEX IF NOT EXISTS idx_payments_order_id ON payments(order_id);`

	_, err := s.db.Exec(query)
	return err
}

func (s *PostgreSQLStore) CreatePayment(payment models.Payment) error {
	_, err := s.db.Exec(`
        INSERT INTO payments (payment_id, order_id, status, amount, currency, session_id, created_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		payment.PaymentID, payment.OrderID, payment.Status, payment.Amount,
		payment.Currency, payment.SessionID, payment.CreatedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	s.log.LogDatabase("INSERT", "payments", fmt.Sprintf("payment %s for order %s", payment.PaymentID, payment.OrderID))
	return nil
}

func (s *PostgreSQLStore) GetPaymentByOrderID(orderID string) (*models.Payment, error) {
	var p models.Payment
	var sessionID sql.NullString
	var updated sql.NullTime

	err := s.db.QueryRow(`
        SELECT payment_id, order_id, status, amount, currency, session_id, created_date, updated_date
        FROM payments WHERE order_id = $1
        ORDER BY created_date DESC LIMIT 1`, orderID).
		Scan(&p.PaymentID, &p.OrderID, &p.Status, &p.Amount, &p.Currency, &sessionID, &p.CreatedDate, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no payment found for order %s", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}

	if sessionID.Valid {
		p.SessionID = sessionID.String
	}
	if updated.Valid {
		p.UpdatedDate = updated.Time
	}
	return &p, nil
}

func (s *PostgreSQLStore) UpdatePaymentStatus(orderID string, status models.PaymentStatus, sessionID string) error {
	res, err := s.db.Exec(`
        UPDATE payments SET status = $1, session_id = COALESCE(NULLIF($2, ''), session_id), updated_date = $3
        WHERE order_id = $4`,
		status, sessionID, time.Now().UTC(), orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	affected, _ := res.RowsAffected()
	s.log.LogDatabase("UPDATE", "payments", fmt.Sprintf("order %s -> %s (%d rows)", orderID, status, affected))
	return nil
}

func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}
