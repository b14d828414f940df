// seed inserts development sample data for local testing: a parent with two
// students, a driver, bus assignment, a position report, and known link
// codes. Idempotent: skips inserts if the dev parent already exists.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"schoolbus-platform/backend/internal/config"
	"schoolbus-platform/backend/internal/db"
	"schoolbus-platform/backend/internal/security"
)

// Link codes printed at the end so a developer can run the linking flow
// against a local LINE channel.
const (
	devParentID    = "P-001"
	devParentCode  = "PARENT01"
	devStudent1ID  = "S-001"
	devStudent2ID  = "S-002"
	devStudentCode = "STUDENT1"
	devDriverID    = "D-001"
	devDriverCode  = "DRIVER01"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()

	var existing string
	err = conn.QueryRowContext(ctx, `SELECT domain_id FROM parents WHERE domain_id = $1`, devParentID).Scan(&existing)
	if err == nil {
		log.Printf("seed: parent %s already exists, skipping", devParentID)
		printCodes()
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Fatalf("seed: check existing: %v", err)
	}

	hasher := security.NewLinkCodeHasher(cfg.LinkCodeBcryptCost)
	hash := func(code string) string {
		h, err := hasher.Hash(code)
		if err != nil {
			log.Fatalf("seed: hash link code: %v", err)
		}
		return h
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("seed: begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(query string, args ...any) {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	exec(`INSERT INTO parents (domain_id, name, contact, link_code_hash)
	      VALUES ($1, $2, $3, $4)`,
		devParentID, "สมศรี ใจดี", "089-111-1111", hash(devParentCode))
	exec(`INSERT INTO students (domain_id, name, contact, link_code_hash)
	      VALUES ($1, $2, $3, $4)`,
		devStudent1ID, "น้องเอ ใจดี", "", hash(devStudentCode))
	exec(`INSERT INTO students (domain_id, name, contact, link_code_hash)
	      VALUES ($1, $2, $3, $4)`,
		devStudent2ID, "น้องบี ใจดี", "", hash(devStudentCode))
	exec(`INSERT INTO drivers (domain_id, name, contact, link_code_hash)
	      VALUES ($1, $2, $3, $4)`,
		devDriverID, "สมชาย ขับดี", "081-000-0000", hash(devDriverCode))

	exec(`INSERT INTO guardianships (parent_domain_id, student_domain_id) VALUES ($1, $2)`,
		devParentID, devStudent1ID)
	exec(`INSERT INTO guardianships (parent_domain_id, student_domain_id) VALUES ($1, $2)`,
		devParentID, devStudent2ID)

	exec(`INSERT INTO bus_assignments (student_domain_id, driver_domain_id, bus_no)
	      VALUES ($1, $2, $3)`,
		devStudent1ID, devDriverID, "7")
	exec(`INSERT INTO bus_assignments (student_domain_id, driver_domain_id, bus_no)
	      VALUES ($1, $2, $3)`,
		devStudent2ID, devDriverID, "7")

	exec(`INSERT INTO bus_positions (driver_domain_id, latitude, longitude, recorded_at)
	      VALUES ($1, $2, $3, $4)`,
		devDriverID, 13.7563, 100.5018, time.Now().UTC())

	if err := tx.Commit(); err != nil {
		log.Fatalf("seed: commit: %v", err)
	}

	log.Println("seed: sample data inserted")
	printCodes()
}

func printCodes() {
	fmt.Printf("link commands for the dev channel:\n")
	fmt.Printf("  link parent %s %s\n", devParentID, devParentCode)
	fmt.Printf("  link student %s %s\n", devStudent1ID, devStudentCode)
	fmt.Printf("  link driver %s %s\n", devDriverID, devDriverCode)
}
