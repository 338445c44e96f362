package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/meinhoongagan/vetcare-app/models"
	"github.com/meinhoongagan/vetcare-app/services"
)

func TestNotFound(t *testing.T) {
	wrapped := fmt.Errorf("query: %w", gorm.ErrRecordNotFound)
	if err := notFound(wrapped, services.ErrPetNotFound); !errors.Is(err, services.ErrPetNotFound) {
		t.Errorf("expected ErrPetNotFound, got %v", err)
	}
	other := errors.New("connection reset")
	if err := notFound(other, services.ErrPetNotFound); err != other {
		t.Errorf("unrelated errors must pass through, got %v", err)
	}
}

func TestDuplicate(t *testing.T) {
	if err := duplicate(gorm.ErrDuplicatedKey, services.ErrSlotConflict); !errors.Is(err, services.ErrSlotConflict) {
		t.Errorf("expected ErrSlotConflict, got %v", err)
	}
	if err := duplicate(gorm.ErrInvalidData, services.ErrSlotConflict); !errors.Is(err, gorm.ErrInvalidData) {
		t.Errorf("unrelated errors must pass through, got %v", err)
	}
}

// dryRun builds statements without a live server.
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=vetcare dbname=vetcare sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("opening dry-run connection: %v", err)
	}
	return conn
}

func TestPaginate(t *testing.T) {
	conn := dryRun(t)
	tests := []struct {
		limit, offset int
		want          []string
		notWant       []string
	}{
		{limit: 20, offset: 40, want: []string{"LIMIT", "OFFSET"}},
		{limit: 10, want: []string{"LIMIT"}, notWant: []string{"OFFSET"}},
		{notWant: []string{"LIMIT", "OFFSET"}},
	}
	for _, tt := range tests {
		var pets []models.Pet
		stmt := paginate(conn.Model(&models.Pet{}), tt.limit, tt.offset).Find(&pets).Statement
		sql := stmt.SQL.String()
		for _, w := range tt.want {
			if !strings.Contains(sql, w) {
				t.Errorf("limit=%d offset=%d: %q missing %q", tt.limit, tt.offset, sql, w)
			}
		}
		for _, w := range tt.notWant {
			if strings.Contains(sql, w) {
				t.Errorf("limit=%d offset=%d: %q should not contain %q", tt.limit, tt.offset, sql, w)
			}
		}
	}
}
