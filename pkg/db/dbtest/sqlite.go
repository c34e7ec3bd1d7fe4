// Package dbtest opens in-memory SQLite databases carrying the photo schema.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/landmarklens/landmark-api/pkg/config"
	"github.com/landmarklens/landmark-api/pkg/db"
	"github.com/landmarklens/landmark-api/pkg/logger"
)

var schema = []string{
	`CREATE TABLE photos (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		gcs_key TEXT NOT NULL UNIQUE,
		original_filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		processing_status TEXT NOT NULL DEFAULT 'pending'
			CHECK (processing_status IN ('pending','processing','completed','failed')),
		uploaded_at DATETIME NOT NULL,
		updated_at DATETIME
	)`,
	`CREATE TABLE landmarks (
		id TEXT PRIMARY KEY,
		photo_id TEXT NOT NULL UNIQUE REFERENCES photos(id) ON DELETE CASCADE,
		detected_landmark_name TEXT,
		latitude REAL,
		longitude REAL,
		formatted_address TEXT,
		street_number TEXT,
		route TEXT,
		neighborhood TEXT,
		sublocality TEXT,
		locality TEXT,
		state TEXT,
		district TEXT,
		country TEXT,
		postal_code TEXT,
		analysis_timestamp DATETIME,
		CHECK ((latitude IS NULL) = (longitude IS NULL))
	)`,
}

// Open returns a database private to the calling test with the photos and
// landmarks tables created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	// one connection keeps every query on the same in-memory database
	client, err := db.Open(context.Background(), sqlite.Open(dsn), config.DBConfig{MaxOpenConns: 1}, logger.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	conn := client.DB()
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
