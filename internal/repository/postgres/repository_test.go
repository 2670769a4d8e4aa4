package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"visionguard/internal/broker"
)

func TestListCamerasByDirection(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "url", "status", "directions"}).
		AddRow("a", "A", "rtsp://a", "online", pq.StringArray{"forward"}).
		AddRow("b", "B", "rtsp://b", "online", pq.StringArray{"forward", "left"})

	mock.ExpectQuery("SELECT id, name, url, status, directions").
		WithArgs("forward").
		WillReturnRows(rows)

	repo := New(db)
	cameras, err := repo.ListCamerasByDirection(context.Background(), "forward")
	if err != nil {
		t.Fatalf("ListCamerasByDirection: %v", err)
	}
	if len(cameras) != 2 {
		t.Fatalf("expected 2 cameras, got %d", len(cameras))
	}
	if cameras[1].Name != "B" || len(cameras[1].Directions) != 2 {
		t.Fatalf("unexpected camera row: %+v", cameras[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetCameraByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, url, status, directions").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := New(db)
	cam, err := repo.GetCameraByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected nil error for not-found, got %v", err)
	}
	if cam != nil {
		t.Fatalf("expected nil camera, got %+v", cam)
	}
}

func TestListAngleRangesEnabled_ConnectionErrorClassifiedTransient(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, min_angle, max_angle, enabled, camera_ids").
		WillReturnError(fmt.Errorf("dial tcp: connection refused"))

	repo := New(db)
	_, err = repo.ListAngleRangesEnabled(context.Background())
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !broker.IsTransient(err) {
		t.Fatalf("expected connection-shaped error to classify as transient, got %v", err)
	}
}
