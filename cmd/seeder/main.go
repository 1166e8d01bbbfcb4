// cmd/seeder/main.go
package main

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"time"

	"minicrm-service/internal/config"
	authUsecase "minicrm-service/internal/service/auth"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type demoCustomer struct {
	name, company, email, phone, status, notes string
	tags                                       []string
	contacts                                   [][2]string
	appointments                               [][3]string
}

var demoCustomers = []demoCustomer{
	{
		name: "Max Mustermann", company: "Mustermann GmbH", email: "max@mustermann.de", phone: "0151 1234567",
		status: "erstkontakt", notes: "Interesse an BU-Versicherung",
		tags:         []string{"Gewerbe", "BU-Interesse"},
		contacts:     [][2]string{{"Telefon", "Erstes Gespräch, Rückruf vereinbart"}},
		appointments: [][3]string{{"Beratungstermin", "2025-02-10", "10:00"}},
	},
	{
		name: "Anna Schmidt", email: "anna.schmidt@example.de", phone: "0170 9876543",
		status: "konzept", notes: "Altersvorsorge, Angebot in Arbeit",
		tags:     []string{"Privat", "Altersvorsorge"},
		contacts: [][2]string{{"E-Mail", "Unterlagen angefordert"}, {"Meeting", "Bedarfsanalyse durchgeführt"}},
	},
	{
		name: "Peter Weber", company: "Weber & Söhne", phone: "089 445566",
		status: "abschluss", tags: []string{"VIP", "Bestandskunde"},
	},
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[SEEDER] No .env file found, relying on system env vars")
	}
	cfg := config.Load()

	passwords, err := authUsecase.ParsePasswordMode(cfg.PasswordMode)
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	fmt.Println("Schema applied")

	hash, err := passwords.Hash(cfg.SeedAdminPassword)
	if err != nil {
		log.Fatal(err)
	}
	if err := seedAdmin(ctx, db, cfg.SeedAdminUsername, hash, cfg.SeedAdminName); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("Seeded user: %s\n", cfg.SeedAdminUsername)

	n, err := seedCustomers(ctx, db)
	if err != nil {
		log.Fatalf("failed to seed customers: %v", err)
	}
	fmt.Printf("Seeded customers: %d\n", n)

	fmt.Println("Database seeding completed successfully!")
}

func seedAdmin(ctx context.Context, db *sql.DB, username, passwordHash, name string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, name = EXCLUDED.name
	`, username, passwordHash, name)
	return err
}

// seedCustomers inserts the demo customers into an empty table only.
func seedCustomers(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, c := range demoCustomers {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO customers (name, company, email, phone, status, notes, tags)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, c.name, c.company, c.email, c.phone, c.status, c.notes, pq.Array(c.tags)).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", c.name, err)
		}

		for _, ct := range c.contacts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO contacts (customer_id, type, note, date) VALUES ($1, $2, $3, $4)`,
				id, ct[0], ct[1], time.Now().Format("2006-01-02"),
			); err != nil {
				return 0, fmt.Errorf("insert contact for %s: %w", c.name, err)
			}
		}
		for _, a := range c.appointments {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO appointments (customer_id, title, date, time) VALUES ($1, $2, $3, $4)`,
				id, a[0], a[1], a[2],
			); err != nil {
				return 0, fmt.Errorf("insert appointment for %s: %w", c.name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(demoCustomers), nil
}
